package common

// TileSize is the default tile edge length in pixels.
const TileSize = 16

func Lerp(a, b, t float32) float32 {
	return a + t*(b-a)
}

// ClampInt restricts v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
