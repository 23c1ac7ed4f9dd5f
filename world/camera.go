package world

import (
	"math"

	"github.com/milk9111/tileworld/common"
)

// Camera keeps a world point at the centre of the screen, clamped so the
// view never leaves the map. Maps smaller than the screen are centred.
type Camera struct {
	PosX float64
	PosY float64

	screenW int
	screenH int

	// smoothing factor (0..1), 0 snaps straight to the target
	smooth float64
	// world bounds in pixels
	worldW float64
	worldH float64
}

func NewCamera(screenW, screenH int) *Camera {
	return &Camera{
		screenW: screenW,
		screenH: screenH,
		PosX:    float64(screenW) / 2,
		PosY:    float64(screenH) / 2,
	}
}

func (c *Camera) SetWorldBounds(w, h int) {
	c.worldW = float64(w)
	c.worldH = float64(h)
}

func (c *Camera) SetSmooth(f float64) {
	c.smooth = common.Clamp(f, 0, 1)
}

// Update moves the camera toward the target world coordinate.
func (c *Camera) Update(targetX, targetY float64) {
	if c.smooth <= 0 {
		c.PosX = targetX
		c.PosY = targetY
	} else {
		c.PosX += (targetX - c.PosX) * c.smooth
		c.PosY += (targetY - c.PosY) * c.smooth
	}
	c.clamp()
}

// SnapTo places the camera at the target immediately.
func (c *Camera) SnapTo(x, y float64) {
	c.PosX = x
	c.PosY = y
	c.clamp()
}

// Offset returns the translation from world to screen pixels.
func (c *Camera) Offset() common.Vec {
	return common.Vec{
		X: float32(math.Round(float64(c.screenW)/2 - c.PosX)),
		Y: float32(math.Round(float64(c.screenH)/2 - c.PosY)),
	}
}

func (c *Camera) clamp() {
	halfW := float64(c.screenW) / 2
	halfH := float64(c.screenH) / 2
	if c.worldW > 0 {
		minX := halfW
		maxX := c.worldW - halfW
		if maxX < minX {
			c.PosX = c.worldW / 2
		} else {
			c.PosX = common.Clamp(c.PosX, minX, maxX)
		}
	}
	if c.worldH > 0 {
		minY := halfH
		maxY := c.worldH - halfH
		if maxY < minY {
			c.PosY = c.worldH / 2
		} else {
			c.PosY = common.Clamp(c.PosY, minY, maxY)
		}
	}
}
