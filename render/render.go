// Package render holds the GPU-facing collaborators of the engine: texture
// upload and the vertex batching unit that turns textured quads into draw
// calls. The core packages only see the interfaces; the ebiten-backed
// implementations live alongside them.
package render

import "image/color"

// Flags modify how a region is drawn.
type Flags uint8

const (
	FlipHorizontal Flags = 1 << iota
	FlipVertical
)

// Texture is a GPU-resident image.
type Texture interface {
	Size() (w, h int)
}

// Uploader creates and destroys GPU textures from RGBA pixel data
// (4 bytes per pixel, rows top-down).
type Uploader interface {
	Upload(pix []byte, w, h int) (Texture, error)
	Destroy(tex Texture)
}

// Region is one textured quad.
type Region struct {
	SrcX, SrcY float32
	SrcW, SrcH int
	DstX, DstY float32
	DstW, DstH int
	// Z is the draw depth. More negative values are further away.
	Z     float32
	Tint  [4]color.RGBA
	Flags Flags
}

// Batcher coalesces the regions cached between Begin and End for one texture
// into as few submissions as possible.
type Batcher interface {
	Begin(tex Texture, repeat bool)
	Cache(r Region)
	End()
}

// DepthSorter is implemented by batchers that can defer regions and submit
// them back to front. Regions cached between BeginDepth and EndDepth are
// ordered by Z regardless of which bracket they were cached in.
type DepthSorter interface {
	BeginDepth()
	EndDepth()
}

// Projector is implemented by batchers that can warp vertex positions before
// submission. A nil Projection restores the default.
type Projector interface {
	SetProjection(p Projection)
}

// White is the untinted corner colour set.
var White = [4]color.RGBA{
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
	{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

// Tint returns a corner colour set of c.
func Tint(c color.RGBA) [4]color.RGBA {
	return [4]color.RGBA{c, c, c, c}
}
