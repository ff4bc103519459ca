package preprocess

import (
	"image/color"
	"testing"

	"github.com/swdee/go-posematch"
	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float32
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)

		resizedImg := gocv.NewMat()

		resizer := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		resizer.LetterBoxResize(img, &resizedImg, black)

		if resizer.XPad() != tc.expectedXPad || resizer.YPad() != tc.expectedYPad {
			t.Errorf("Test failed for src (%d, %d): Padding values wrong, expected XPad=%d, YPad=%d, got xPad=%d, yPad=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad, resizer.XPad(), resizer.YPad())
		}

		if resizer.ScaleFactor() != tc.expectedScale {
			t.Errorf("Test failed for src (%d, %d): Scalefactor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.ScaleFactor())
		}

		if resizedImg.Cols() != tc.resizeWidth || resizedImg.Rows() != tc.resizeHeight {
			t.Errorf("Test failed for src (%d, %d): output size %dx%d",
				tc.srcWidth, tc.srcHeight, resizedImg.Cols(), resizedImg.Rows())
		}

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestToSource(t *testing.T) {

	resizer := NewResizer(1280, 720, 640, 640)
	defer resizer.Close()

	tests := []struct {
		x, y     float32
		expected posematch.Point
	}{
		// top left of the picture area sits below the letterbox padding
		{0, 140, posematch.Point{X: 0, Y: 0}},
		{320, 320, posematch.Point{X: 640, Y: 360}},
		{640, 500, posematch.Point{X: 1280, Y: 720}},
		// points in the padding clamp to the frame
		{10, 10, posematch.Point{X: 20, Y: 0}},
		{700, 700, posematch.Point{X: 1280, Y: 720}},
	}

	for _, tc := range tests {
		got := resizer.ToSource(tc.x, tc.y)

		if got != tc.expected {
			t.Errorf("ToSource(%v, %v) expected %+v, got %+v", tc.x, tc.y, tc.expected, got)
		}
	}

	if !resizer.Matches(1280, 720) || resizer.Matches(720, 1280) {
		t.Errorf("Matches returned wrong result")
	}
}

func TestScaleToHeight(t *testing.T) {

	tests := []struct {
		srcWidth, srcHeight int
		height              int
		expectedW           int
		expectedH           int
	}{
		{1600, 1200, 500, 666, 500},
		{1080, 1920, 500, 281, 500},
		{300, 200, 500, 750, 500},
		{300, 200, 0, 300, 200},
	}

	for _, tc := range tests {
		src := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		dest := gocv.NewMat()

		ScaleToHeight(src, &dest, tc.height)

		if dest.Cols() != tc.expectedW || dest.Rows() != tc.expectedH {
			t.Errorf("ScaleToHeight %dx%d to %d expected %dx%d, got %dx%d",
				tc.srcWidth, tc.srcHeight, tc.height, tc.expectedW, tc.expectedH,
				dest.Cols(), dest.Rows())
		}

		src.Close()
		dest.Close()
	}
}
