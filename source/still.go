package source

import (
	"fmt"

	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/preprocess"
	"gocv.io/x/gocv"
)

// Decoder decodes encoded still images into frames.  It implements
// posematch.ImageDecoder.
type Decoder struct{}

// Decode decodes a JPEG or PNG image and scales it to the given height,
// keeping the aspect ratio.  A height of zero keeps the original size.
func (Decoder) Decode(data []byte, height int) (posematch.Frame, error) {

	if len(data) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)

	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("image could not be decoded")
	}

	if height <= 0 || height == img.Rows() {
		return NewFrame(img), nil
	}

	scaled := gocv.NewMat()
	preprocess.ScaleToHeight(img, &scaled, height)
	img.Close()

	return NewFrame(scaled), nil
}

// EncodeJPEG encodes a frame as JPEG at the given quality from 1 to 100
func EncodeJPEG(f *Frame, quality int) ([]byte, error) {

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.Mat(),
		[]int{gocv.IMWriteJpegQuality, quality})

	if err != nil {
		return nil, fmt.Errorf("error encoding jpeg: %w", err)
	}

	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}
