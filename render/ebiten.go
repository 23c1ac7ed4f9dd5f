package render

import (
	"fmt"
	"sort"

	"github.com/hajimehoshi/ebiten/v2"
)

// maxQuadsPerSubmission keeps vertex indices inside uint16 range.
const maxQuadsPerSubmission = 65536/4 - 1

// EbitenTexture is a Texture backed by an *ebiten.Image.
type EbitenTexture struct {
	Image *ebiten.Image
}

func (t *EbitenTexture) Size() (int, int) {
	if t == nil || t.Image == nil {
		return 0, 0
	}
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}

// EbitenUploader uploads pixel data into ebiten images.
type EbitenUploader struct{}

func (EbitenUploader) Upload(pix []byte, w, h int) (Texture, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: invalid texture size %dx%d", w, h)
	}
	if len(pix) != w*h*4 {
		return nil, fmt.Errorf("render: pixel buffer is %d bytes, want %d", len(pix), w*h*4)
	}
	img := ebiten.NewImage(w, h)
	img.WritePixels(premultiply(pix))
	return &EbitenTexture{Image: img}, nil
}

// premultiply returns pix with colour scaled by alpha, as ebiten expects. pix
// is returned as is when it is fully opaque or fully transparent throughout.
func premultiply(pix []byte) []byte {
	var out []byte
	for i := 0; i < len(pix); i += 4 {
		a := pix[i+3]
		if a == 0xff || (a == 0 && pix[i]|pix[i+1]|pix[i+2] == 0) {
			continue
		}
		if out == nil {
			out = make([]byte, len(pix))
			copy(out, pix)
		}
		for j := 0; j < 3; j++ {
			out[i+j] = uint8(uint16(pix[i+j]) * uint16(a) / 0xff)
		}
	}
	if out == nil {
		return pix
	}
	return out
}

func (EbitenUploader) Destroy(tex Texture) {
	if et, ok := tex.(*EbitenTexture); ok && et.Image != nil {
		et.Image.Deallocate()
		et.Image = nil
	}
}

type deferredQuad struct {
	src    *ebiten.Image
	repeat bool
	z      float32
	verts  [4]ebiten.Vertex
}

// VertexCache is the ebiten Batcher. Quads cached inside one bracket are
// submitted with a single DrawTriangles call (split only when the index
// range would overflow).
type VertexCache struct {
	target *ebiten.Image

	active bool
	src    *ebiten.Image
	repeat bool

	vertices []ebiten.Vertex
	indices  []uint16

	projection Projection

	depth    bool
	deferred []deferredQuad

	// Submissions counts DrawTriangles calls since the last ResetStats.
	Submissions int
}

func NewVertexCache() *VertexCache {
	return &VertexCache{
		vertices: make([]ebiten.Vertex, 0, 1024),
		indices:  make([]uint16, 0, 1536),
	}
}

// SetTarget sets the image that subsequent batches draw into.
func (c *VertexCache) SetTarget(img *ebiten.Image) {
	c.target = img
}

func (c *VertexCache) ResetStats() {
	c.Submissions = 0
}

func (c *VertexCache) SetProjection(p Projection) {
	c.projection = p
}

func (c *VertexCache) Begin(tex Texture, repeat bool) {
	if c.active {
		panic("render: Begin called inside an open batch")
	}
	et, ok := tex.(*EbitenTexture)
	if !ok || et.Image == nil {
		panic(fmt.Sprintf("render: cannot batch texture of type %T", tex))
	}
	c.active = true
	c.src = et.Image
	c.repeat = repeat
}

func (c *VertexCache) Cache(r Region) {
	if !c.active {
		panic("render: Cache called outside a batch")
	}

	verts := c.quad(r)
	if c.depth {
		c.deferred = append(c.deferred, deferredQuad{src: c.src, repeat: c.repeat, z: r.Z, verts: verts})
		return
	}

	if len(c.vertices)/4 >= maxQuadsPerSubmission {
		c.flush(c.src, c.repeat)
	}
	c.push(verts)
}

func (c *VertexCache) End() {
	if !c.active {
		panic("render: End called without Begin")
	}
	if !c.depth {
		c.flush(c.src, c.repeat)
	}
	c.active = false
	c.src = nil
}

func (c *VertexCache) BeginDepth() {
	c.depth = true
	c.deferred = c.deferred[:0]
}

// EndDepth submits the deferred quads back to front, merging runs that share
// a source image.
func (c *VertexCache) EndDepth() {
	c.depth = false
	sort.SliceStable(c.deferred, func(i, j int) bool {
		return c.deferred[i].z < c.deferred[j].z
	})

	var src *ebiten.Image
	repeat := false
	for _, q := range c.deferred {
		if q.src != src || q.repeat != repeat || len(c.vertices)/4 >= maxQuadsPerSubmission {
			c.flush(src, repeat)
			src = q.src
			repeat = q.repeat
		}
		c.push(q.verts)
	}
	c.flush(src, repeat)
	c.deferred = c.deferred[:0]
}

func (c *VertexCache) push(verts [4]ebiten.Vertex) {
	base := uint16(len(c.vertices))
	c.vertices = append(c.vertices, verts[:]...)
	c.indices = append(c.indices, base, base+1, base+2, base+1, base+3, base+2)
}

func (c *VertexCache) flush(src *ebiten.Image, repeat bool) {
	if len(c.vertices) == 0 {
		return
	}
	if c.target != nil && src != nil {
		op := &ebiten.DrawTrianglesOptions{}
		if repeat {
			op.Address = ebiten.AddressRepeat
		}
		c.target.DrawTriangles(c.vertices, c.indices, src, op)
		c.Submissions++
	}
	c.vertices = c.vertices[:0]
	c.indices = c.indices[:0]
}

// quad builds the four corners in order top-left, top-right, bottom-left,
// bottom-right.
func (c *VertexCache) quad(r Region) [4]ebiten.Vertex {
	sx0, sy0 := r.SrcX, r.SrcY
	sx1, sy1 := r.SrcX+float32(r.SrcW), r.SrcY+float32(r.SrcH)
	if r.Flags&FlipHorizontal != 0 {
		sx0, sx1 = sx1, sx0
	}
	if r.Flags&FlipVertical != 0 {
		sy0, sy1 = sy1, sy0
	}

	dx0, dy0 := r.DstX, r.DstY
	dx1, dy1 := r.DstX+float32(r.DstW), r.DstY+float32(r.DstH)

	corners := [4][4]float32{
		{dx0, dy0, sx0, sy0},
		{dx1, dy0, sx1, sy0},
		{dx0, dy1, sx0, sy1},
		{dx1, dy1, sx1, sy1},
	}

	var out [4]ebiten.Vertex
	for i, cr := range corners {
		x, y := cr[0], cr[1]
		if c.projection != nil {
			x, y = c.projection(x, y)
		}
		tint := r.Tint[i]
		out[i] = ebiten.Vertex{
			DstX:   x,
			DstY:   y,
			SrcX:   cr[2],
			SrcY:   cr[3],
			ColorR: float32(tint.R) / 0xff,
			ColorG: float32(tint.G) / 0xff,
			ColorB: float32(tint.B) / 0xff,
			ColorA: float32(tint.A) / 0xff,
		}
	}
	return out
}
