package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestMatSurfaceFlush(t *testing.T) {

	m := NewMatSurface(64, 48)
	defer m.Close()

	_, seq := m.Latest()
	assert.Equal(t, uint64(0), seq)

	m.Clear(image.Rect(0, 0, 64, 48))
	m.FillCircle(pt(10, 10), 4, Red)
	m.StrokeLine(pt(0, 30), pt(60, 30), Blue, 2)
	m.Label("0.90", pt(20, 20), Green)
	require.NoError(t, m.Flush())

	data, seq := m.Latest()
	assert.Equal(t, uint64(1), seq)
	require.NotEmpty(t, data)

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, 64, img.Cols())
	assert.Equal(t, 48, img.Rows())
}

func TestMatSurfaceClosed(t *testing.T) {

	m := NewMatSurface(8, 8)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Error(t, m.Flush())
}

func TestOverlayClosesSurface(t *testing.T) {

	m := NewMatSurface(32, 32)
	o := NewOverlay(m, 32, 32)

	require.NoError(t, o.Close())
	assert.NoError(t, m.Close(), "closing twice is allowed")

	// surfaces without resources close cleanly
	assert.NoError(t, NewOverlay(&recorder{}, 32, 32).Close())
}
