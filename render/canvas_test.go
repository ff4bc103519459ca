package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-posematch"
)

func TestCanvasDraws(t *testing.T) {

	var buf bytes.Buffer
	c := NewCanvas(64, 48, &buf)

	assert.Nil(t, c.Snapshot())

	c.FillCircle(pt(10, 10), 4, Red)
	c.StrokeLine(pt(0, 30), pt(60, 30), Blue, 4)
	c.Label("hi", pt(30, 12), White)
	require.NoError(t, c.Flush())

	snap := c.Snapshot()
	require.NotNil(t, snap)

	assert.Equal(t, Red, snap.RGBAAt(10, 10))

	line := snap.RGBAAt(30, 30)
	assert.Equal(t, uint8(255), line.B)
	assert.Equal(t, uint8(0), line.R)

	// untouched pixels stay transparent
	assert.Equal(t, uint8(0), snap.RGBAAt(60, 5).A)

	// the sink receives a decodable PNG of the canvas size
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
}

func TestCanvasClear(t *testing.T) {

	c := NewCanvas(32, 32, nil)

	c.FillCircle(pt(16, 16), 6, Red)
	c.Clear(image.Rect(0, 0, 32, 32))
	require.NoError(t, c.Flush())

	assert.Equal(t, uint8(0), c.Snapshot().RGBAAt(16, 16).A)
}

func TestCanvasWithSkeleton(t *testing.T) {

	c := NewCanvas(200, 200, nil)

	err := Skeleton(c, armPose(), posematch.DefaultSkeleton, DefaultStyle(200, 200))
	require.NoError(t, err)

	snap := c.Snapshot()
	assert.Equal(t, Red, snap.RGBAAt(60, 103))

	// midpoint of the shoulder line
	assert.NotZero(t, snap.RGBAAt(80, 100).A)
}
