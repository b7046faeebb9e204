// Package imaging loads, converts and exports images for the document tools.
//
// It covers the generic image chores the other packages lean on: a decoded
// image cache, metadata queries, color-space conversion, JPEG compression,
// image-to-PDF export and base64 encoding for inline tool results. The
// slide rectifier itself lives in package rectify.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X growing
// rightward and Y growing downward. Images returned by this package always
// have their bounds anchored at (0,0), even when the input was a sub-image.
//
// # Color Spaces
//
// ConvertColorSpace packs non-RGB results into 8-bit channels following the
// OpenCV conventions, so values can be compared with output from OpenCV-based
// tools:
//   - HSV: hue halved to 0..179, saturation and value scaled to 0..255
//   - Lab: lightness scaled to 0..255, a and b offset by 128
//   - YUV: luma, with both chroma channels offset by 128
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and may be called concurrently on different images.
package imaging
