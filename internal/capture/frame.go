package capture

import "gocv.io/x/gocv"

// Mirror flips m around the vertical axis in place.
func Mirror(m *gocv.Mat) {
	gocv.Flip(*m, m, 1)
}

// BlankFrame returns a black BGR frame of the given size. It stands in for the camera picture
// while the device is unavailable so the game screens keep rendering.
func BlankFrame(width, height int) gocv.Mat {
	if width <= 0 || height <= 0 {
		width, height = DefaultWidth, DefaultHeight
	}
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
}
