// Package tilemap loads and draws the layered tile grid of one map.
package tilemap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/telemetry"
	"github.com/milk9111/tileworld/texture"
)

// AllLayers selects every layer in solidity queries.
const AllLayers = -1

const maxAtlases = 256

// LoadError reports a map that could not be loaded.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("tilemap: load %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrNoAtlases is wrapped by the LoadError returned when atlas 0 is missing.
var ErrNoAtlases = errors.New("no tile sheets")

// layer stores one plane of cells as flat row-major slices.
type layer struct {
	tileX []int8
	tileY []int8
	atlas []int8
	solid []bool
	// used is the sorted set of atlases referenced by the layer.
	used []int
}

// Tilemap is an immutable, loaded map grid. It owns one handle per atlas.
type Tilemap struct {
	name     string
	w, h     int
	tileSize int
	layers   []layer
	atlases  []*texture.Image
	closed   bool
}

// AtlasPath returns the file name of atlas n.
func AtlasPath(n int) string {
	return fmt.Sprintf("sheets/tiles%d.tga", n)
}

// MapPath returns the file name of map name.
func MapPath(name string) string {
	return path.Join("maps", name)
}

// Load reads atlases 0..N from sheets/ until the first missing one, then the
// map file maps/<name>. Atlases acquired before a failure are released.
func Load(ctx context.Context, eng *engine.Context, name string) (*Tilemap, error) {
	_, span := telemetry.Tracer("tilemap").Start(ctx, "tilemap.Load")
	defer span.End()
	span.SetAttributes(attribute.String("map.name", name))

	tm, err := load(eng, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("map.width", tm.w),
		attribute.Int("map.height", tm.h),
		attribute.Int("map.layers", len(tm.layers)),
		attribute.Int("map.atlases", len(tm.atlases)),
	)
	return tm, nil
}

func load(eng *engine.Context, name string) (*Tilemap, error) {
	atlases, err := loadAtlases(eng.Images)
	if err != nil {
		return nil, &LoadError{Name: name, Err: err}
	}
	release := func() {
		for _, img := range atlases {
			img.Release()
		}
	}

	f, err := eng.FS.Open(MapPath(name))
	if err != nil {
		release()
		return nil, &LoadError{Name: name, Err: err}
	}
	defer f.Close()

	d, err := Parse(f)
	if err != nil {
		release()
		return nil, &LoadError{Name: name, Err: err}
	}

	tm, err := fromData(name, d, eng.Config.TileSize, atlases)
	if err != nil {
		release()
		return nil, &LoadError{Name: name, Err: err}
	}
	return tm, nil
}

func loadAtlases(reg *texture.Registry) ([]*texture.Image, error) {
	var atlases []*texture.Image
	for n := 0; n < maxAtlases; n++ {
		img, err := reg.Acquire(AtlasPath(n))
		if err == nil {
			atlases = append(atlases, img)
			continue
		}
		if errors.Is(err, fs.ErrNotExist) {
			if n == 0 {
				return nil, ErrNoAtlases
			}
			break
		}
		for _, a := range atlases {
			a.Release()
		}
		return nil, err
	}
	return atlases, nil
}

// New builds a Tilemap from parsed data and atlases it takes ownership of.
func New(name string, d *Data, tileSize int, atlases []*texture.Image) (*Tilemap, error) {
	if d == nil {
		return nil, fmt.Errorf("tilemap: nil data")
	}
	return fromData(name, d, tileSize, atlases)
}

func fromData(name string, d *Data, tileSize int, atlases []*texture.Image) (*Tilemap, error) {
	if tileSize <= 0 {
		tileSize = common.TileSize
	}
	tm := &Tilemap{
		name:     name,
		w:        d.W,
		h:        d.H,
		tileSize: tileSize,
		layers:   make([]layer, len(d.Layers)),
		atlases:  atlases,
	}

	n := d.W * d.H
	for i, cells := range d.Layers {
		if len(cells) != n {
			return nil, fmt.Errorf("layer %d has %d cells, want %d", i, len(cells), n)
		}
		l := layer{
			tileX: make([]int8, n),
			tileY: make([]int8, n),
			atlas: make([]int8, n),
			solid: make([]bool, n),
		}
		seen := make(map[int]bool)
		for j, c := range cells {
			if c.Atlas >= len(atlases) {
				return nil, fmt.Errorf("layer %d cell (%d,%d) uses atlas %d of %d", i, j%d.W, j/d.W, c.Atlas, len(atlases))
			}
			l.tileX[j], l.tileY[j], l.atlas[j], l.solid[j] = int8(c.X), int8(c.Y), int8(c.Atlas), c.Solid
			if c.Atlas != EmptyAtlas && !seen[c.Atlas] {
				seen[c.Atlas] = true
				l.used = append(l.used, c.Atlas)
			}
		}
		sort.Ints(l.used)
		tm.layers[i] = l
	}
	return tm, nil
}

func (tm *Tilemap) Name() string {
	return tm.name
}

// Size returns the grid size in tiles.
func (tm *Tilemap) Size() (int, int) {
	return tm.w, tm.h
}

// PixelSize returns the grid size in pixels.
func (tm *Tilemap) PixelSize() (int, int) {
	return tm.w * tm.tileSize, tm.h * tm.tileSize
}

func (tm *Tilemap) NumLayers() int {
	return len(tm.layers)
}

func (tm *Tilemap) TileSize() int {
	return tm.tileSize
}

// NumAtlases returns how many atlases were loaded.
func (tm *Tilemap) NumAtlases() int {
	return len(tm.atlases)
}

// InBounds reports whether p is a cell of the grid.
func (tm *Tilemap) InBounds(p image.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < tm.w && p.Y < tm.h
}

// AtlasesUsed returns the sorted atlases referenced by layer.
func (tm *Tilemap) AtlasesUsed(layer int) []int {
	return append([]int(nil), tm.layers[layer].used...)
}

// Cell returns the stored cell at p.
func (tm *Tilemap) Cell(layer int, p image.Point) Cell {
	i := tm.index(p)
	l := &tm.layers[layer]
	return Cell{X: int(l.tileX[i]), Y: int(l.tileY[i]), Atlas: int(l.atlas[i]), Solid: l.solid[i]}
}

// IsSolid reports whether p is solid on layer, or on any layer for
// AllLayers. p must be inside the grid.
func (tm *Tilemap) IsSolid(layer int, p image.Point) bool {
	i := tm.index(p)
	from, to := tm.layerRange(layer)
	for l := from; l <= to; l++ {
		if tm.layers[l].solid[i] {
			return true
		}
	}
	return false
}

// Collides reports whether any cell under the pixel rectangle spanned by
// topLeft and bottomRight is solid. Corners outside the grid are clamped to
// the nearest cell.
func (tm *Tilemap) Collides(layer int, topLeft, bottomRight image.Point) bool {
	c0 := common.ClampInt(topLeft.X/tm.tileSize, 0, tm.w-1)
	c1 := common.ClampInt(bottomRight.X/tm.tileSize, 0, tm.w-1)
	r0 := common.ClampInt(topLeft.Y/tm.tileSize, 0, tm.h-1)
	r1 := common.ClampInt(bottomRight.Y/tm.tileSize, 0, tm.h-1)

	from, to := tm.layerRange(layer)
	for l := from; l <= to; l++ {
		solid := tm.layers[l].solid
		for row := r0; row <= r1; row++ {
			for col := c0; col <= c1; col++ {
				if solid[row*tm.w+col] {
					return true
				}
			}
		}
	}
	return false
}

// Solidity returns a copy of the all-layer solid flags in row-major order.
func (tm *Tilemap) Solidity() []bool {
	out := make([]bool, tm.w*tm.h)
	for _, l := range tm.layers {
		for i, s := range l.solid {
			out[i] = out[i] || s
		}
	}
	return out
}

// RowDepth is the draw depth of tiles on row when depth sorting.
func (tm *Tilemap) RowDepth(row int) float32 {
	return -(1 - float32(row*tm.tileSize)/float32(tm.h*tm.tileSize))
}

// Draw draws layer at offset with one batch bracket per atlas it uses.
func (tm *Tilemap) Draw(layer int, offset common.Vec, depthSort bool) {
	l := &tm.layers[layer]
	ts := tm.tileSize
	for _, a := range l.used {
		img := tm.atlases[a]
		img.Begin(false)
		for i, atlas := range l.atlas {
			if int(atlas) != a {
				continue
			}
			col, row := i%tm.w, i/tm.w
			tx, ty := int(l.tileX[i])*ts, int(l.tileY[i])*ts
			src := image.Rect(tx, ty, tx+ts, ty+ts)
			dst := common.Vec{X: offset.X + float32(col*ts), Y: offset.Y + float32(row*ts)}
			var z float32
			if depthSort {
				z = tm.RowDepth(row)
			}
			img.DrawRegionZ(src, dst, z, 0)
		}
		img.End()
	}
}

// Close releases every atlas. Further calls do nothing.
func (tm *Tilemap) Close() {
	if tm.closed {
		return
	}
	tm.closed = true
	for _, img := range tm.atlases {
		img.Release()
	}
	tm.atlases = nil
	tm.layers = nil
}

func (tm *Tilemap) index(p image.Point) int {
	if !tm.InBounds(p) {
		panic(fmt.Sprintf("tilemap: cell %v outside %dx%d map %s", p, tm.w, tm.h, tm.name))
	}
	return p.Y*tm.w + p.X
}

func (tm *Tilemap) layerRange(layer int) (int, int) {
	if layer < 0 {
		return 0, len(tm.layers) - 1
	}
	return layer, layer
}
