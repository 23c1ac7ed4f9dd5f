package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/png"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/maplogic"
	"github.com/milk9111/tileworld/texture"
	"github.com/milk9111/tileworld/tilemap"
)

// maxTileCoord and maxAtlases are the limits of the signed byte cells in a
// map file.
const (
	maxTileCoord = 127
	maxAtlases   = 128
)

type atlas struct {
	key        string
	cols, rows int
	img        *image.NRGBA
}

// converter turns a batch of editor levels into maps that share one set of
// atlases.
type converter struct {
	tileSize int
	assetDir string

	levels  map[string]*Level
	atlases []*atlas
	byKey   map[string]int
	sprites map[string]*image.NRGBA
}

func newConverter(tileSize int, assetDir string) *converter {
	return &converter{
		tileSize: tileSize,
		assetDir: assetDir,
		levels:   make(map[string]*Level),
		byKey:    make(map[string]int),
		sprites:  make(map[string]*image.NRGBA),
	}
}

// levelName maps an editor level path or transition target to its map base
// name.
func levelName(p string) string {
	p = filepath.ToSlash(p)
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

func (c *converter) add(name string, lvl *Level) {
	c.levels[name] = lvl
}

func (c *converter) loadImage(p string) (image.Image, error) {
	b, err := os.ReadFile(filepath.Join(c.assetDir, filepath.FromSlash(p)))
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", p, err)
	}
	return img, nil
}

// atlasFor returns the atlas index for a tileset, scaling its tiles to the
// output tile size the first time it is seen.
func (c *converter) atlasFor(e *TilesetEntry) (int, *atlas, error) {
	tw, th := e.TileW, e.TileH
	if tw <= 0 {
		tw = c.tileSize
	}
	if th <= 0 {
		th = c.tileSize
	}
	key := fmt.Sprintf("%s@%dx%d", filepath.ToSlash(e.Path), tw, th)
	if n, ok := c.byKey[key]; ok {
		return n, c.atlases[n], nil
	}
	if len(c.atlases) >= maxAtlases {
		return 0, nil, fmt.Errorf("more than %d tilesets", maxAtlases)
	}

	src, err := c.loadImage(e.Path)
	if err != nil {
		return 0, nil, err
	}
	cols, rows := src.Bounds().Dx()/tw, src.Bounds().Dy()/th
	if cols == 0 || rows == 0 {
		return 0, nil, fmt.Errorf("tileset %s is smaller than one %dx%d tile", e.Path, tw, th)
	}
	cols, rows = min(cols, maxTileCoord+1), min(rows, maxTileCoord+1)

	ts := c.tileSize
	dst := image.NewNRGBA(image.Rect(0, 0, cols*ts, rows*ts))
	from := image.Rect(0, 0, cols*tw, rows*th).Add(src.Bounds().Min)
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, from, draw.Src, nil)

	a := &atlas{key: key, cols: cols, rows: rows, img: dst}
	c.byKey[key] = len(c.atlases)
	c.atlases = append(c.atlases, a)
	return len(c.atlases) - 1, a, nil
}

// spritePath converts an entity sprite once and returns its output path.
func (c *converter) spritePath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	out := path.Join("sprites", levelName(p)+".tga")
	if _, ok := c.sprites[out]; ok {
		return out, nil
	}
	src, err := c.loadImage(p)
	if err != nil {
		return "", err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, src.Bounds().Dx(), src.Bounds().Dy()))
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	c.sprites[out] = dst
	return out, nil
}

// mapData builds the tile grid of a level. Blocks and slopes on physics
// layers become solid cells.
func (c *converter) mapData(lvl *Level) (*tilemap.Data, error) {
	d := &tilemap.Data{W: lvl.Width, H: lvl.Height, Layers: make([][]tilemap.Cell, len(lvl.Layers))}
	for li, values := range lvl.Layers {
		cells := make([]tilemap.Cell, len(values))
		for i, v := range values {
			x, y := i%lvl.Width, i/lvl.Width
			cell := tilemap.Cell{Atlas: tilemap.EmptyAtlas, Solid: v != cellEmpty && lvl.physics(li)}
			if v >= tileBase {
				if e := lvl.tileset(li, x, y); e != nil {
					n, a, err := c.atlasFor(e)
					if err != nil {
						return nil, fmt.Errorf("layer %d cell (%d,%d): %w", li, x, y, err)
					}
					tx, ty := e.Index%a.cols, e.Index/a.cols
					if e.Index < 0 || ty >= a.rows {
						return nil, fmt.Errorf("layer %d cell (%d,%d): tile %d outside %s", li, x, y, e.Index, e.Path)
					}
					cell.X, cell.Y, cell.Atlas = tx, ty, n
				} else {
					log.Printf("layer %d cell (%d,%d): tile %d has no tileset, left empty", li, x, y, v-tileBase)
				}
			}
			cells[i] = cell
		}
		d.Layers[li] = cells
	}
	return d, nil
}

// logic builds the sidecar of a level: transitions become exit triggers and
// placed entities become still spawns. Entities walk on the topmost
// physics layer.
func (c *converter) logic(lvl *Level) (*maplogic.Logic, error) {
	l := &maplogic.Logic{}
	for i := len(lvl.Layers) - 1; i >= 0; i-- {
		if lvl.physics(i) {
			l.EntityLayer = &i
			break
		}
	}
	for i, tr := range lvl.Transitions {
		exit, err := c.exit(tr)
		if err != nil {
			return nil, fmt.Errorf("transition %d: %w", i, err)
		}
		id := tr.ID
		if id == "" {
			id = fmt.Sprintf("exit-%d", i)
		}
		l.Triggers = append(l.Triggers, maplogic.Trigger{
			ID:     id,
			Region: maplogic.Region{X: tr.X, Y: tr.Y, W: max(tr.W, 1), H: max(tr.H, 1)},
			Exit:   exit,
		})
	}

	for _, pe := range lvl.Entities {
		sprite, err := c.spritePath(pe.Sprite)
		if err != nil {
			return nil, fmt.Errorf("entity %s: %w", pe.Name, err)
		}
		l.Entities = append(l.Entities, maplogic.Spawn{
			Name:   pe.Name,
			Sprite: sprite,
			X:      pe.X,
			Y:      pe.Y,
			Brain:  maplogic.BrainStill,
		})
	}
	return l, l.Validate()
}

// exit places the arrival one tile past the linked transition in the
// direction of travel, or at the target's spawn point without a link.
func (c *converter) exit(tr Transition) (*maplogic.Exit, error) {
	name := levelName(tr.Target)
	target, ok := c.levels[name]
	if !ok {
		return nil, fmt.Errorf("target %q is not part of this conversion", tr.Target)
	}
	dir, err := common.ParseDirection(tr.Direction)
	if err != nil {
		log.Printf("transition to %s: %v, facing none", name, err)
		dir = common.DirectionNone
	}

	p := image.Pt(target.SpawnX, target.SpawnY)
	if link := target.transition(tr.LinkID); tr.LinkID != "" && link != nil {
		p = image.Pt(link.X+link.W/2, link.Y+link.H/2).Add(dir.Delta())
	}
	p.X = common.ClampInt(p.X, 0, target.Width-1)
	p.Y = common.ClampInt(p.Y, 0, target.Height-1)
	return &maplogic.Exit{Map: name + ".map", X: p.X, Y: p.Y, Dir: dir}, nil
}

// convertAll writes every level's map and sidecar, then the atlases and
// sprites they use, under out.
func (c *converter) convertAll(out string) error {
	for name, lvl := range c.levels {
		d, err := c.mapData(lvl)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		l, err := c.logic(lvl)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

		var buf bytes.Buffer
		if err := tilemap.Encode(&buf, d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := writeFile(out, tilemap.MapPath(name+".map"), buf.Bytes()); err != nil {
			return err
		}
		y, err := yaml.Marshal(l)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := writeFile(out, maplogic.SidecarPath(name+".map"), y); err != nil {
			return err
		}
	}

	for n, a := range c.atlases {
		if err := writeTGA(out, tilemap.AtlasPath(n), a.img); err != nil {
			return err
		}
	}
	for p, img := range c.sprites {
		if err := writeTGA(out, p, img); err != nil {
			return err
		}
	}
	return nil
}

func writeTGA(out, name string, img *image.NRGBA) error {
	var buf bytes.Buffer
	px := &texture.Pixels{W: img.Rect.Dx(), H: img.Rect.Dy(), Pix: img.Pix}
	if err := texture.Encode(&buf, px, true); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return writeFile(out, name, buf.Bytes())
}

func writeFile(out, name string, b []byte) error {
	p := filepath.Join(out, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, b, 0644)
}
