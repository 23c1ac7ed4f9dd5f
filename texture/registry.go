// Package texture owns decoded images and their GPU copies. Images loaded
// from files are shared by canonical path and reference counted; every
// Acquire must be paired with exactly one Release.
package texture

import (
	"io/fs"
	"log"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/milk9111/tileworld/render"
)

// FromMemory is the path reported by images created from pixels in memory.
const FromMemory = "--from-memory--"

type entry struct {
	path string
	tex  render.Texture
	w, h int
	refs int
	// pix is kept for from-memory images so they can be re-uploaded.
	pix []byte
}

// Registry maps canonical paths to shared GPU textures. It is not safe for
// concurrent use; all access happens on the render thread.
type Registry struct {
	fsys     fs.FS
	uploader render.Uploader
	batcher  render.Batcher

	entries map[string]*entry
	memory  map[*entry]struct{}

	// open is the handle whose batch bracket is currently open.
	open *Image
}

// NewRegistry creates a registry reading image files from fsys.
func NewRegistry(fsys fs.FS, uploader render.Uploader, batcher render.Batcher) *Registry {
	return &Registry{
		fsys:     fsys,
		uploader: uploader,
		batcher:  batcher,
		entries:  make(map[string]*entry),
		memory:   make(map[*entry]struct{}),
	}
}

// Canonical returns the registry key for p.
func Canonical(p string) string {
	if p == "" {
		return ""
	}
	s := path.Clean(filepath.ToSlash(p))
	s = strings.TrimPrefix(s, "/")
	if s == "." {
		return ""
	}
	return s
}

// Acquire returns a handle to the image at p, decoding and uploading it on
// first use.
func (r *Registry) Acquire(p string) (*Image, error) {
	key := Canonical(p)
	if key == "" {
		return nil, &DecodeError{Path: p, Pixel: -1, Reason: "empty path"}
	}

	if e, ok := r.entries[key]; ok {
		e.refs++
		return &Image{reg: r, e: e}, nil
	}

	px, err := r.decodeFile(key)
	if err != nil {
		return nil, err
	}
	tex, err := r.uploader.Upload(px.Pix, px.W, px.H)
	if err != nil {
		return nil, &ResourceError{Path: key, Err: err}
	}

	e := &entry{path: key, tex: tex, w: px.W, h: px.H, refs: 1}
	r.entries[key] = e
	return &Image{reg: r, e: e}, nil
}

// FromPixels uploads px as an image that is never shared. The pixels are
// copied.
func (r *Registry) FromPixels(px *Pixels) (*Image, error) {
	if px == nil || px.W <= 0 || px.H <= 0 || len(px.Pix) != px.W*px.H*4 {
		return nil, &DecodeError{Path: FromMemory, Pixel: -1, Reason: "invalid pixel buffer"}
	}
	pix := append([]byte(nil), px.Pix...)
	tex, err := r.uploader.Upload(pix, px.W, px.H)
	if err != nil {
		return nil, &ResourceError{Path: FromMemory, Err: err}
	}
	e := &entry{path: FromMemory, tex: tex, w: px.W, h: px.H, refs: 1, pix: pix}
	r.memory[e] = struct{}{}
	return &Image{reg: r, e: e}, nil
}

// Release gives up img. The GPU copy is destroyed when the last handle for
// its path is released.
func (r *Registry) Release(img *Image) error {
	if img == nil || img.reg != r {
		return ErrReleased
	}
	if img.released || img.e.refs <= 0 {
		return ErrReleased
	}
	if r.open != nil && r.open.e == img.e {
		panic("texture: release of " + img.e.path + " inside its batch bracket")
	}

	img.released = true
	e := img.e
	e.refs--
	if e.refs > 0 {
		return nil
	}

	if e.tex != nil {
		r.uploader.Destroy(e.tex)
		e.tex = nil
	}
	if e.path == FromMemory {
		delete(r.memory, e)
	} else {
		delete(r.entries, e.path)
	}
	return nil
}

// Resident returns the number of images currently held, shared or not.
func (r *Registry) Resident() int {
	return len(r.entries) + len(r.memory)
}

// Refs returns the reference count of the image at p, or 0.
func (r *Registry) Refs(p string) int {
	if e, ok := r.entries[Canonical(p)]; ok {
		return e.refs
	}
	return 0
}

// Unfreed lists the paths that are still resident.
func (r *Registry) Unfreed() []string {
	out := make([]string, 0, r.Resident())
	for p := range r.entries {
		out = append(out, p)
	}
	for range r.memory {
		out = append(out, FromMemory)
	}
	sort.Strings(out)
	return out
}

// ReleaseAll destroys every GPU texture while keeping handles valid, for
// when the graphics device is lost. ReloadAll brings them back.
func (r *Registry) ReleaseAll() {
	for _, e := range r.all() {
		if e.tex != nil {
			r.uploader.Destroy(e.tex)
			e.tex = nil
		}
	}
}

// ReloadAll re-creates textures dropped by ReleaseAll. Files are decoded
// again; from-memory images are re-uploaded from their saved pixels.
func (r *Registry) ReloadAll() error {
	for _, e := range r.all() {
		if e.tex != nil {
			continue
		}
		pix, w, h := e.pix, e.w, e.h
		if e.path != FromMemory {
			px, err := r.decodeFile(e.path)
			if err != nil {
				return err
			}
			pix, w, h = px.Pix, px.W, px.H
		}
		tex, err := r.uploader.Upload(pix, w, h)
		if err != nil {
			return &ResourceError{Path: e.path, Err: err}
		}
		e.tex, e.w, e.h = tex, w, h
	}
	return nil
}

// LogUnfreed reports resident images, typically at shutdown.
func (r *Registry) LogUnfreed() int {
	unfreed := r.Unfreed()
	for _, p := range unfreed {
		log.Printf("texture: unfreed image %s", p)
	}
	return len(unfreed)
}

func (r *Registry) all() []*entry {
	out := make([]*entry, 0, r.Resident())
	for _, e := range r.entries {
		out = append(out, e)
	}
	for e := range r.memory {
		out = append(out, e)
	}
	return out
}

func (r *Registry) decodeFile(key string) (*Pixels, error) {
	f, err := r.fsys.Open(key)
	if err != nil {
		return nil, &DecodeError{Path: key, Pixel: -1, Reason: "open", Err: err}
	}
	defer f.Close()
	return decodeTGA(key, f)
}
