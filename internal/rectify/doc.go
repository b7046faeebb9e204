// Package rectify straightens photographs of projected slides.
//
// A slide photo is binarized twice, once with a global Otsu threshold and once
// with a Gaussian adaptive threshold. Each binary image yields the four extreme
// corners of its largest outer contour. The two estimates are reconciled by
// MergeCorners and the merged quadrilateral is warped onto an upright
// rectangle (800x600 unless configured otherwise).
//
// # Corner Order
//
// A Quad always lists top-left, top-right, bottom-right, bottom-left. Extreme
// corners are chosen by projecting contour points onto the diagonals:
//
//	top-left      min(x+y)
//	top-right     max(x-y)
//	bottom-right  max(x+y)
//	bottom-left   min(x-y)
//
// The first contour point reaching an extreme wins ties.
//
// # Merging
//
// Corners closer than the agreement threshold (a fraction of the image width)
// are averaged. When exactly three agree, edge lengths decide which estimate
// to trust for the remaining pair. Anything else falls back to a whole
// estimate: the Otsu corners when the adaptive ones touch the image border,
// the adaptive corners otherwise.
//
// # Batch and Watch Modes
//
// ProcessDir rectifies a directory concurrently; Watch keeps rectifying new
// files as they arrive. Both write outputs under the same file names.
package rectify
