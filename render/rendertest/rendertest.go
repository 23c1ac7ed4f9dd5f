// Package rendertest provides GPU-free render collaborators for tests.
package rendertest

import (
	"errors"

	"github.com/milk9111/tileworld/render"
)

// ErrUploadFailed is returned by Uploader when Fail is set.
var ErrUploadFailed = errors.New("rendertest: upload failed")

// Texture is an in-memory texture.
type Texture struct {
	ID    int
	W, H  int
	Pix   []byte
	Freed bool
}

func (t *Texture) Size() (int, int) {
	return t.W, t.H
}

// Uploader records uploads and destroys.
type Uploader struct {
	Fail      bool
	Uploads   int
	Destroyed int
	live      map[*Texture]struct{}
	nextID    int
}

func NewUploader() *Uploader {
	return &Uploader{live: make(map[*Texture]struct{})}
}

func (u *Uploader) Upload(pix []byte, w, h int) (render.Texture, error) {
	if u.Fail {
		return nil, ErrUploadFailed
	}
	u.Uploads++
	u.nextID++
	tex := &Texture{ID: u.nextID, W: w, H: h, Pix: append([]byte(nil), pix...)}
	u.live[tex] = struct{}{}
	return tex, nil
}

func (u *Uploader) Destroy(tex render.Texture) {
	t, ok := tex.(*Texture)
	if !ok {
		return
	}
	if t.Freed {
		panic("rendertest: texture destroyed twice")
	}
	t.Freed = true
	u.Destroyed++
	delete(u.live, t)
}

// Live returns the number of textures uploaded and not yet destroyed.
func (u *Uploader) Live() int {
	return len(u.live)
}

// Bracket is one Begin/End pair and the regions cached inside it.
type Bracket struct {
	Texture render.Texture
	Repeat  bool
	Regions []render.Region
}

// Batcher records every bracket it is given.
type Batcher struct {
	Brackets   []Bracket
	Projection render.Projection
	// ProjectionSets counts SetProjection calls, including resets.
	ProjectionSets int
	DepthPasses    int
	inDepth        bool
	open           bool
}

func (b *Batcher) Begin(tex render.Texture, repeat bool) {
	if b.open {
		panic("rendertest: nested Begin")
	}
	b.open = true
	b.Brackets = append(b.Brackets, Bracket{Texture: tex, Repeat: repeat})
}

func (b *Batcher) Cache(r render.Region) {
	if !b.open {
		panic("rendertest: Cache outside bracket")
	}
	last := &b.Brackets[len(b.Brackets)-1]
	last.Regions = append(last.Regions, r)
}

func (b *Batcher) End() {
	if !b.open {
		panic("rendertest: End without Begin")
	}
	b.open = false
}

func (b *Batcher) BeginDepth() {
	b.inDepth = true
}

func (b *Batcher) EndDepth() {
	b.inDepth = false
	b.DepthPasses++
}

func (b *Batcher) SetProjection(p render.Projection) {
	b.Projection = p
	b.ProjectionSets++
}

// Reset forgets recorded brackets.
func (b *Batcher) Reset() {
	b.Brackets = nil
}

// Regions returns every region cached, in order.
func (b *Batcher) Regions() []render.Region {
	var out []render.Region
	for _, br := range b.Brackets {
		out = append(out, br.Regions...)
	}
	return out
}
