package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestBlankFrame(t *testing.T) {
	frame := BlankFrame(320, 240)
	defer frame.Close()

	if frame.Cols() != 320 || frame.Rows() != 240 {
		t.Errorf("size = %dx%d, want 320x240", frame.Cols(), frame.Rows())
	}
	if frame.Channels() != 3 {
		t.Errorf("Channels() = %d, want 3", frame.Channels())
	}
	if n := gocv.CountNonZero(grayOf(t, frame)); n != 0 {
		t.Errorf("blank frame has %d non-zero pixels", n)
	}
}

func TestBlankFrame_DefaultSize(t *testing.T) {
	frame := BlankFrame(0, 0)
	defer frame.Close()

	if frame.Cols() != DefaultWidth || frame.Rows() != DefaultHeight {
		t.Errorf("size = %dx%d, want default", frame.Cols(), frame.Rows())
	}
}

func TestMirror(t *testing.T) {
	frame := BlankFrame(20, 10)
	defer frame.Close()
	frame.SetUCharAt(0, 0, 255)

	Mirror(&frame)

	if got := frame.GetUCharAt(0, 19*3); got != 255 {
		t.Errorf("mirrored pixel = %d, want 255 at the right edge", got)
	}
	if got := frame.GetUCharAt(0, 0); got != 0 {
		t.Errorf("left edge = %d, want 0 after mirroring", got)
	}
}

func grayOf(t *testing.T, m gocv.Mat) gocv.Mat {
	t.Helper()
	gray := gocv.NewMat()
	t.Cleanup(func() { gray.Close() })
	gocv.CvtColor(m, &gray, gocv.ColorBGRToGray)
	return gray
}
