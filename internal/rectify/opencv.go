//go:build gocv

package rectify

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVCorners computes the Otsu and adaptive corner estimates for the image
// at path with OpenCV, for cross-checking the pure Go pipeline.
func OpenCVCorners(path string, blockSize int, c float64) (otsu, adaptive Quad, err error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return Quad{}, Quad{}, fmt.Errorf("failed to read %s", path)
	}
	defer img.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
	defer kernel.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(gray, &bin, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	gocv.Dilate(bin, &bin, kernel)
	gocv.Erode(bin, &bin, kernel)

	ad := gocv.NewMat()
	defer ad.Close()
	gocv.AdaptiveThreshold(gray, &ad, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, blockSize, float32(c))
	gocv.Erode(ad, &ad, kernel)
	gocv.Dilate(ad, &ad, kernel)

	if otsu, err = openCVLargest(bin); err != nil {
		return Quad{}, Quad{}, err
	}
	if adaptive, err = openCVLargest(ad); err != nil {
		return Quad{}, Quad{}, err
	}
	return otsu, adaptive, nil
}

func openCVLargest(bin gocv.Mat) (Quad, error) {
	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var (
		best     []image.Point
		bestArea = -1.0
	)
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if area := gocv.ContourArea(contour); area > bestArea {
			bestArea = area
			best = contour.ToPoints()
		}
	}
	if len(best) == 0 {
		return Quad{}, ErrNoContour
	}
	return ExtremeCorners(Contour(best)), nil
}
