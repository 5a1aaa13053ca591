package plot

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	black = color.RGBA{0, 0, 0, 255}
	white = color.RGBA{255, 255, 255, 255}
)

func newCanvas(t *testing.T) *Canvas {
	t.Helper()
	c, err := New(100, 100)
	require.NoError(t, err)
	return c
}

func TestNewSize(t *testing.T) {
	for _, size := range [][2]int{{0, 10}, {10, -1}, {MaxImageSize + 1, 1}} {
		_, err := New(size[0], size[1])
		require.ErrorIs(t, err, ErrSize)
	}
	c := newCanvas(t)
	assert.Equal(t, black, c.Image().RGBAAt(0, 0))
}

func TestPlotMapping(t *testing.T) {
	c := newCanvas(t)
	c.Plot(0, 0)
	c.Plot(-1, 1)
	c.Plot(1, -1) // just outside.
	img := c.Image()
	assert.Equal(t, white, img.RGBAAt(50, 50))
	assert.Equal(t, white, img.RGBAAt(0, 0))
	assert.Equal(t, black, img.RGBAAt(99, 99))
	require.NoError(t, c.SetRange(0, 10, 0, 100))
	c.SetColor(color.RGBA{255, 0, 0, 255})
	c.Plot(2.5, 75)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, c.Image().RGBAAt(25, 25))
	c.Plot(math.NaN(), 1)
	c.Plot(math.Inf(1), 1)
}

func TestErase(t *testing.T) {
	c := newCanvas(t)
	blue := color.RGBA{0, 0, 255, 255}
	c.Erase(blue)
	img := c.Image()
	assert.Equal(t, blue, img.RGBAAt(0, 0))
	assert.Equal(t, blue, img.RGBAAt(99, 99))
}

func TestDotSize(t *testing.T) {
	c := newCanvas(t)
	for _, s := range []float64{0, -1, MaxDotSize + 1, math.NaN()} {
		require.ErrorIs(t, c.SetDotSize(s), ErrDot)
	}
	require.NoError(t, c.SetDotSize(5))
	c.Plot(0, 0)
	img := c.Image()
	assert.Equal(t, white, img.RGBAAt(50, 50))
	assert.Equal(t, white, img.RGBAAt(48, 51))
	assert.Equal(t, black, img.RGBAAt(55, 50))
}

func TestRangeErrors(t *testing.T) {
	c := newCanvas(t)
	require.ErrorIs(t, c.SetRange(1, 1, 0, 1), ErrRange)
	require.ErrorIs(t, c.SetRange(0, 1, 2, 1), ErrRange)
	require.ErrorIs(t, c.SetRange(0, 1, math.NaN(), 1), ErrRange)
	require.ErrorIs(t, c.SetRange(-math.MaxFloat64, math.MaxFloat64, 0, 1), ErrRange)
}

func TestLines(t *testing.T) {
	c := newCanvas(t)
	c.Line(-1, 0, 1, 0)
	img := c.Image()
	assert.NotZero(t, img.RGBAAt(50, 50).R)
	assert.Positive(t, int(img.RGBAAt(1, 49).R)+int(img.RGBAAt(1, 50).R))
	assert.Equal(t, black, img.RGBAAt(50, 10))
	before := c.Image()
	c.Line(5, 5, 6, 6)
	c.Line(math.NaN(), 0, 0, 0)
	assert.Equal(t, before.Pix, c.Image().Pix)
	require.NoError(t, c.SetDotSize(4))
	c.Line(0, -10, 0, 10) // vertical, clipped.
	assert.Equal(t, white, c.Image().RGBAAt(50, 90))
}

func TestClip(t *testing.T) {
	b := image.Rect(0, 0, 100, 100)
	x0, y0, x1, y1, ok := clip(-10, 5, 110, 5, b, 0)
	require.True(t, ok)
	assert.InDelta(t, 0, x0, 1e-9)
	assert.InDelta(t, 5, y0, 1e-9)
	assert.InDelta(t, 100, x1, 1e-9)
	assert.InDelta(t, 5, y1, 1e-9)
	_, _, _, _, ok = clip(-10, -10, -5, -5, b, 0)
	assert.False(t, ok)
	x0, y0, x1, y1, ok = clip(10, 20, 30, 40, b, 0)
	require.True(t, ok)
	assert.Equal(t, [4]float64{10, 20, 30, 40}, [4]float64{x0, y0, x1, y1})
	_, y0, _, y1, ok = clip(50, -50, 50, 150, b, 2)
	require.True(t, ok)
	assert.InDelta(t, -2, y0, 1e-9)
	assert.InDelta(t, 102, y1, 1e-9)
}

func TestProjection(t *testing.T) {
	u, v := newProjection(1, 0, 0).project(7, 2, 3)
	assert.InDelta(t, 2, u, 1e-9)
	assert.InDelta(t, 3, v, 1e-9)
	u, v = newProjection(0, 0, 5).project(0.5, -0.25, 9)
	assert.InDelta(t, 0.5, u, 1e-9)
	assert.InDelta(t, -0.25, v, 1e-9)
	assert.False(t, newProjection(0, 0, 0).valid)
	assert.False(t, newProjection(math.NaN(), 1, 1).valid)

	c := newCanvas(t)
	c.SetViewpoint(0, 0, 0) // ignored.
	c.Plot3D(0, 0, 0)
	assert.Equal(t, white, c.Image().RGBAAt(50, 50))
	c.SetViewpoint(0, 0, 1)
	c.Plot3D(0.5, 0.5, 9)
	assert.Equal(t, white, c.Image().RGBAAt(75, 25))
	c.Line3D(0, -1, 0, 0, 1, 0)
	img := c.Image()
	assert.Positive(t, int(img.RGBAAt(49, 10).R)+int(img.RGBAAt(50, 10).R))
}

func TestSave(t *testing.T) {
	c := newCanvas(t)
	c.Plot(0, 0)
	dir := t.TempDir()
	name := filepath.Join(dir, "out.png")
	require.NoError(t, c.Save(name))
	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), img.Bounds())
	r, g, b, _ := img.At(50, 50).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r, g, b})

	name = filepath.Join(dir, "out.BMP")
	require.NoError(t, c.Save(name))
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "BM", string(data[:2]))

	name = filepath.Join(dir, "out.gif")
	require.ErrorIs(t, c.Save(name), ErrFormat)
	_, err = os.Stat(name)
	assert.True(t, os.IsNotExist(err))
}
