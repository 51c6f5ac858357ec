// Package testdata generates synthetic camera frames for tests and the mock camera.
package testdata

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// SceneFrames returns n frames of size width x height showing a block that slides across a
// gradient background. Callers own the returned Mats.
func SceneFrames(width, height, n int) ([]*gocv.Mat, error) {
	if width <= 0 || height <= 0 || n <= 0 {
		return nil, fmt.Errorf("invalid scene %dx%d with %d frames", width, height, n)
	}

	frames := make([]*gocv.Mat, 0, n)
	block := max(height/4, 1)
	for i := 0; i < n; i++ {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 30, 20, 0), height, width, gocv.MatTypeCV8UC3)

		// Horizontal bands stand in for a room background.
		for y := 0; y < height; y += max(height/8, 1) {
			shade := uint8(30 + (y*90)/height)
			gocv.Line(&mat, image.Pt(0, y), image.Pt(width, y), color.RGBA{R: shade, G: shade, B: shade, A: 255}, 1)
		}

		x := (i * width / n) % max(width-block, 1)
		y := height/2 - block/2
		gocv.Rectangle(&mat, image.Rect(x, y, x+block, y+block), color.RGBA{R: 200, G: 120, B: 40, A: 255}, -1)

		frames = append(frames, &mat)
	}
	return frames, nil
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// EncodeJPEG encodes frame as JPEG, for tests that need a realistic frame payload.
func EncodeJPEG(frame *gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
