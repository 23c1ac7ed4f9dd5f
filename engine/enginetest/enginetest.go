// Package enginetest builds engine contexts backed by in-memory files and
// GPU-free render fakes.
package enginetest

import (
	"bytes"
	"testing"
	"testing/fstest"
	"time"

	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/render/rendertest"
	"github.com/milk9111/tileworld/texture"
)

type Env struct {
	Ctx      *engine.Context
	FS       fstest.MapFS
	Uploader *rendertest.Uploader
	Batcher  *rendertest.Batcher
	Clock    *engine.ManualClock
}

// New returns an Env over fsys with a manual clock starting at a fixed time.
func New(t testing.TB, fsys fstest.MapFS) *Env {
	t.Helper()
	env := &Env{
		FS:       fsys,
		Uploader: rendertest.NewUploader(),
		Batcher:  &rendertest.Batcher{},
		Clock:    &engine.ManualClock{T: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	ctx, err := engine.New(engine.DefaultConfig(), fsys, env.Uploader, env.Batcher, engine.WithClock(env.Clock))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	env.Ctx = ctx
	return env
}

// ImageFile returns a TGA file of a w x h opaque image.
func ImageFile(t testing.TB, w, h int) *fstest.MapFile {
	t.Helper()
	px := &texture.Pixels{W: w, H: h, Pix: make([]byte, w*h*4)}
	for i := 3; i < len(px.Pix); i += 4 {
		px.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := texture.Encode(&buf, px, true); err != nil {
		t.Fatalf("texture.Encode: %v", err)
	}
	return &fstest.MapFile{Data: buf.Bytes()}
}
