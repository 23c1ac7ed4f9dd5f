// Package engine holds the state shared by every world component: settings,
// the asset filesystem, the texture registry, the batcher, the UI palette
// and the clock. One Context is built at startup and passed to whatever
// needs it.
package engine

import (
	"fmt"
	"io/fs"
	"log"

	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/texture"
)

type Context struct {
	Config  Config
	FS      fs.FS
	Images  *texture.Registry
	Batcher render.Batcher
	Palette Palette
	Clock   Clock
}

// Option customizes New.
type Option func(*Context)

func WithClock(c Clock) Option {
	return func(ctx *Context) { ctx.Clock = c }
}

// New builds a Context over fsys. The palette named in cfg is loaded from
// fsys when set.
func New(cfg Config, fsys fs.FS, up render.Uploader, b render.Batcher, opts ...Option) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := &Context{
		Config:  cfg,
		FS:      fsys,
		Images:  texture.NewRegistry(fsys, up, b),
		Batcher: b,
		Palette: DefaultPalette(),
		Clock:   SystemClock{},
	}
	for _, opt := range opts {
		opt(ctx)
	}

	if cfg.Palette != "" {
		f, err := fsys.Open(cfg.Palette)
		if err != nil {
			return nil, fmt.Errorf("engine: open palette: %w", err)
		}
		defer f.Close()
		p, err := LoadPalette(f)
		if err != nil {
			return nil, err
		}
		ctx.Palette = p
	}
	return ctx, nil
}

// SetProjection applies p when the batcher supports projections. A nil p
// restores the default.
func (c *Context) SetProjection(p render.Projection) {
	if pr, ok := c.Batcher.(render.Projector); ok {
		pr.SetProjection(p)
	}
}

// Shutdown logs images that were never released and returns their count.
func (c *Context) Shutdown() int {
	n := c.Images.LogUnfreed()
	if n > 0 {
		log.Printf("engine: %d images still resident at shutdown", n)
	}
	return n
}
