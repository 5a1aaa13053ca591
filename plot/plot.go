// Package plot is the drawing surface of the graphics instructions: a
// bitmap canvas with a user coordinate range, 2D and projected 3D dots and
// lines, saved as PNG or BMP.
package plot

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"fortio.org/log"
	"golang.org/x/image/bmp"
	"golang.org/x/image/vector"
)

// MaxImageSize is the largest width or height of a canvas.
const MaxImageSize = 4096

// MaxDotSize is the largest dot (and line width) in pixels.
const MaxDotSize = 100

var (
	ErrSize   = errors.New("invalid canvas size")
	ErrRange  = errors.New("invalid range")
	ErrDot    = errors.New("invalid dot size")
	ErrFormat = errors.New("unknown image format")
)

// Canvas implements the plotting calls of the interpreter.
// The default range is [-1, 1] on both axes, the default viewpoint is
// (1, 1, 1), drawing in white with 1 pixel dots on black.
type Canvas struct {
	mu   sync.Mutex
	img  *image.RGBA
	fg   color.RGBA
	dot  float64
	xmin float64
	xmax float64
	ymin float64
	ymax float64
	view projection
	r    *vector.Rasterizer
}

func New(width, height int) (*Canvas, error) {
	if width <= 0 || height <= 0 || width > MaxImageSize || height > MaxImageSize {
		return nil, fmt.Errorf("%w %dx%d (max %d)", ErrSize, width, height, MaxImageSize)
	}
	c := &Canvas{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		fg:   color.RGBA{255, 255, 255, 255},
		dot:  1,
		xmin: -1,
		xmax: 1,
		ymin: -1,
		ymax: 1,
		r:    vector.NewRasterizer(width, height),
	}
	c.view = newProjection(1, 1, 1)
	c.fill(color.RGBA{0, 0, 0, 255})
	return c, nil
}

func (c *Canvas) fill(col color.RGBA) {
	draw.Draw(c.img, c.img.Bounds(), &image.Uniform{col}, image.Point{}, draw.Src)
}

// Erase fills the whole canvas with col.
func (c *Canvas) Erase(col color.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill(col)
}

func (c *Canvas) SetColor(col color.RGBA) {
	c.mu.Lock()
	c.fg = col
	c.mu.Unlock()
}

func (c *Canvas) SetDotSize(size float64) error {
	if !(size > 0 && size <= MaxDotSize) {
		return fmt.Errorf("%w %g (0 < size <= %d)", ErrDot, size, MaxDotSize)
	}
	c.mu.Lock()
	c.dot = size
	c.mu.Unlock()
	return nil
}

// SetRange sets the user coordinates shown by the canvas.
func (c *Canvas) SetRange(xmin, xmax, ymin, ymax float64) error {
	if !(xmin < xmax && ymin < ymax) || math.IsInf(xmax-xmin, 0) || math.IsInf(ymax-ymin, 0) {
		return fmt.Errorf("%w x [%g, %g] y [%g, %g]", ErrRange, xmin, xmax, ymin, ymax)
	}
	c.mu.Lock()
	c.xmin, c.xmax, c.ymin, c.ymax = xmin, xmax, ymin, ymax
	c.mu.Unlock()
	return nil
}

// SetViewpoint sets the direction the 3D scene is looked at from (towards
// the origin). A null or invalid vector is ignored.
func (c *Canvas) SetViewpoint(x, y, z float64) {
	p := newProjection(x, y, z)
	if !p.valid {
		log.Warnf("Ignoring invalid 3D viewpoint (%g, %g, %g)", x, y, z)
		return
	}
	c.mu.Lock()
	c.view = p
	c.mu.Unlock()
}

// toPixel maps user coordinates to pixel coordinates (y going down).
func (c *Canvas) toPixel(x, y float64) (float64, float64) {
	b := c.img.Bounds()
	px := (x - c.xmin) / (c.xmax - c.xmin) * float64(b.Dx())
	py := (c.ymax - y) / (c.ymax - c.ymin) * float64(b.Dy())
	return px, py
}

func (c *Canvas) Plot(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	px, py := c.toPixel(x, y)
	c.dotAt(px, py)
}

func (c *Canvas) Plot3D(x, y, z float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, v := c.view.project(x, y, z)
	px, py := c.toPixel(u, v)
	c.dotAt(px, py)
}

func (c *Canvas) Line(x0, y0, x1, y1 float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	px0, py0 := c.toPixel(x0, y0)
	px1, py1 := c.toPixel(x1, y1)
	c.segment(px0, py0, px1, py1)
}

func (c *Canvas) Line3D(x0, y0, z0, x1, y1, z1 float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u0, v0 := c.view.project(x0, y0, z0)
	u1, v1 := c.view.project(x1, y1, z1)
	px0, py0 := c.toPixel(u0, v0)
	px1, py1 := c.toPixel(u1, v1)
	c.segment(px0, py0, px1, py1)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// dotAt draws a square dot of the current size centered on the pixel
// coordinates.
func (c *Canvas) dotAt(px, py float64) {
	if !finite(px, py) {
		log.LogVf("Skipping dot at %g, %g", px, py)
		return
	}
	b := c.img.Bounds()
	if c.dot <= 1 {
		if px >= float64(b.Min.X) && px < float64(b.Max.X) && py >= float64(b.Min.Y) && py < float64(b.Max.Y) {
			c.img.SetRGBA(int(px), int(py), c.fg)
		}
		return
	}
	h := c.dot / 2
	x0, y0, x1, y1, ok := clip(px-h, py, px+h, py, b, h)
	if !ok {
		return
	}
	c.polygon(
		[2]float64{x0, y0 - h}, [2]float64{x1, y1 - h},
		[2]float64{x1, y1 + h}, [2]float64{x0, y0 + h})
}

// segment draws a line of the current dot size, clipped to the canvas.
func (c *Canvas) segment(x0, y0, x1, y1 float64) {
	if !finite(x0, y0, x1, y1) {
		log.LogVf("Skipping line %g,%g %g,%g", x0, y0, x1, y1)
		return
	}
	h := max(c.dot, 1) / 2
	x0, y0, x1, y1, ok := clip(x0, y0, x1, y1, c.img.Bounds(), h)
	if !ok {
		return
	}
	dx, dy := x1-x0, y1-y0
	l := math.Hypot(dx, dy)
	if l == 0 {
		c.dotAt(x0, y0)
		return
	}
	nx, ny := -dy/l*h, dx/l*h
	c.polygon(
		[2]float64{x0 + nx, y0 + ny}, [2]float64{x1 + nx, y1 + ny},
		[2]float64{x1 - nx, y1 - ny}, [2]float64{x0 - nx, y0 - ny})
}

func (c *Canvas) polygon(points ...[2]float64) {
	b := c.img.Bounds()
	c.r.Reset(b.Dx(), b.Dy())
	c.r.MoveTo(float32(points[0][0]), float32(points[0][1]))
	for _, p := range points[1:] {
		c.r.LineTo(float32(p[0]), float32(p[1]))
	}
	c.r.ClosePath()
	c.r.Draw(c.img, b, &image.Uniform{c.fg}, image.Point{})
}

// clip is the Liang-Barsky clipping of the segment to the rectangle b
// grown by margin. ok is false when nothing is left.
func clip(x0, y0, x1, y1 float64, b image.Rectangle, margin float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	xmin, ymin := float64(b.Min.X)-margin, float64(b.Min.Y)-margin
	xmax, ymax := float64(b.Max.X)+margin, float64(b.Max.Y)+margin
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	p := [4]float64{-dx, dx, -dy, dy}
	q := [4]float64{x0 - xmin, xmax - x0, y0 - ymin, ymax - y0}
	for i := range p {
		if p[i] == 0 {
			if q[i] < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		t := q[i] / p[i]
		if p[i] < 0 {
			if t > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, t)
		} else {
			if t < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, t)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// Image returns a copy of the current canvas.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	img := image.NewRGBA(c.img.Bounds())
	copy(img.Pix, c.img.Pix)
	return img
}

// Encode writes the canvas in the given format ("png" or "bmp").
func (c *Canvas) Encode(w io.Writer, format string) error {
	img := c.Image()
	switch strings.ToLower(format) {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w %q", ErrFormat, format)
	}
}

// Save writes the canvas to a file, the format comes from the extension.
func (c *Canvas) Save(name string) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if format != "png" && format != "bmp" {
		return fmt.Errorf("%w for %s (.png or .bmp)", ErrFormat, name)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = c.Encode(f, format)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("saving %s: %w", name, err)
	}
	log.Infof("Saved %s", name)
	return nil
}
