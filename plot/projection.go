package plot

import "math"

// projection is the orthographic projection on the plane orthogonal to the
// viewpoint direction, z up.
type projection struct {
	right [3]float64
	up    [3]float64
	valid bool
}

func dot3(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func normalize(a [3]float64) ([3]float64, bool) {
	l := math.Sqrt(dot3(a, a))
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return a, false
	}
	return [3]float64{a[0] / l, a[1] / l, a[2] / l}, true
}

func newProjection(x, y, z float64) projection {
	v, ok := normalize([3]float64{x, y, z})
	if !ok {
		return projection{}
	}
	// Looking straight down (or up) the z axis: y is up on screen.
	right, ok := normalize(cross([3]float64{0, 0, 1}, v))
	if !ok {
		right = [3]float64{1, 0, 0}
	}
	return projection{right: right, up: cross(v, right), valid: true}
}

func (p projection) project(x, y, z float64) (float64, float64) {
	pt := [3]float64{x, y, z}
	return dot3(pt, p.right), dot3(pt, p.up)
}
