package render

import "math"

// Projection maps a screen-space vertex position to its warped position.
type Projection func(x, y float32) (float32, float32)

// TransitionProjection returns the perspective warp used while switching
// maps. The screen plane rotates about its horizontal centre line by angle
// radians (0..π). Past π/2 the plane is shown from the other side, so the
// incoming map rotates from edge-on back to flat.
func TransitionProjection(angle float64, screenW, screenH int) Projection {
	if angle > math.Pi/2 {
		angle -= math.Pi
	}
	cx := float64(screenW) / 2
	cy := float64(screenH) / 2
	focal := float64(screenH) * 2
	cos := math.Cos(angle)
	sin := math.Sin(angle)

	return func(x, y float32) (float32, float32) {
		dy := float64(y) - cy
		depth := focal + dy*sin
		if depth < 1 {
			depth = 1
		}
		scale := focal / depth
		px := cx + (float64(x)-cx)*scale
		py := cy + dy*cos*scale
		return float32(px), float32(py)
	}
}
