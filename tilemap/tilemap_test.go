package tilemap

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/engine/enginetest"
	"github.com/milk9111/tileworld/texture"
)

func emptyLayer(w, h int) []Cell {
	cells := make([]Cell, w*h)
	for i := range cells {
		cells[i] = Cell{Atlas: EmptyAtlas}
	}
	return cells
}

// exampleData is a 2-layer 4x4 map whose only solid cell is (2,2) on
// layer 0.
func exampleData() *Data {
	l0 := make([]Cell, 16)
	l0[2*4+2].Solid = true
	return &Data{W: 4, H: 4, Layers: [][]Cell{l0, emptyLayer(4, 4)}}
}

func mapFile(t *testing.T, d *Data) *fstest.MapFile {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return &fstest.MapFile{Data: buf.Bytes()}
}

func loadExample(t *testing.T, d *Data, atlases int) (*Tilemap, *enginetest.Env) {
	t.Helper()
	fsys := fstest.MapFS{"maps/test.map": mapFile(t, d)}
	for i := 0; i < atlases; i++ {
		fsys[AtlasPath(i)] = enginetest.ImageFile(t, 64, 64)
	}
	env := enginetest.New(t, fsys)
	tm, err := Load(context.Background(), env.Ctx, "test.map")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tm, env
}

func TestFourByFourExample(t *testing.T) {
	tm, _ := loadExample(t, exampleData(), 1)
	ts := tm.TileSize()

	if !tm.IsSolid(AllLayers, image.Pt(2, 2)) {
		t.Fatalf("IsSolid(all, 2,2) = false")
	}
	if tm.IsSolid(1, image.Pt(2, 2)) {
		t.Fatalf("IsSolid(1, 2,2) = true")
	}
	if !tm.Collides(AllLayers, image.Pt(2*ts, 2*ts), image.Pt(3*ts-1, 3*ts-1)) {
		t.Fatalf("Collides over tile (2,2) = false")
	}
	if tm.Collides(AllLayers, image.Pt(0, 0), image.Pt(ts-1, ts-1)) {
		t.Fatalf("Collides over tile (0,0) = true")
	}
	if w, h := tm.Size(); w != 4 || h != 4 || tm.NumLayers() != 2 {
		t.Fatalf("size = %dx%d, layers = %d", w, h, tm.NumLayers())
	}
}

func TestCollidesClamps(t *testing.T) {
	tm, _ := loadExample(t, exampleData(), 1)
	ts := tm.TileSize()

	cases := []struct {
		name string
		tl   image.Point
		br   image.Point
		want bool
	}{
		{"far_top_left", image.Pt(-1000, -1000), image.Pt(-500, -500), false},
		{"far_bottom_right", image.Pt(1000, 1000), image.Pt(5000, 5000), false},
		{"spans_everything", image.Pt(-1000, -1000), image.Pt(1000, 1000), true},
		{"clamps_onto_solid_column", image.Pt(2*ts, -50), image.Pt(2*ts+1, 10*ts), true},
		{"below_solid_row", image.Pt(0, 3*ts), image.Pt(100*ts, 100*ts), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := tm.Collides(AllLayers, c.tl, c.br); got != c.want {
				t.Fatalf("Collides(%v, %v) = %v, want %v", c.tl, c.br, got, c.want)
			}
		})
	}
}

func TestIsSolidOutOfRangePanics(t *testing.T) {
	tm, _ := loadExample(t, exampleData(), 1)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	tm.IsSolid(AllLayers, image.Pt(4, 0))
}

func TestDrawOneBracketPerAtlas(t *testing.T) {
	d := &Data{W: 6, H: 3, Layers: [][]Cell{emptyLayer(6, 3)}}
	// atlases 2, 0, 1 scattered in an order unlike the sorted one
	pattern := []int{2, 0, EmptyAtlas, 1, 2, 0, 1, 1, 2, EmptyAtlas, 0, 2, 0, 2, 1, 2, 0, 1}
	for i, a := range pattern {
		d.Layers[0][i] = Cell{X: i % 4, Y: 1, Atlas: a}
	}
	tm, env := loadExample(t, d, 3)

	env.Batcher.Reset()
	tm.Draw(0, common.Vec{X: 10, Y: 20}, false)

	if len(env.Batcher.Brackets) != 3 {
		t.Fatalf("brackets = %d, want 3", len(env.Batcher.Brackets))
	}
	prev := -1
	total := 0
	seen := make(map[any]bool)
	for _, b := range env.Batcher.Brackets {
		if seen[b.Texture] {
			t.Fatalf("atlas bound twice")
		}
		seen[b.Texture] = true
		total += len(b.Regions)
	}
	if total != 16 {
		t.Fatalf("quads = %d, want 16", total)
	}
	for _, a := range tm.AtlasesUsed(0) {
		if a <= prev {
			t.Fatalf("atlases not ascending: %v", tm.AtlasesUsed(0))
		}
		prev = a
	}

	r := env.Batcher.Brackets[0].Regions[0]
	ts := float32(tm.TileSize())
	// first atlas-0 cell is (1,0)
	if r.DstX != 10+ts || r.DstY != 20 || r.Z != 0 {
		t.Fatalf("first region = %+v", r)
	}
	if r.SrcX != ts || r.SrcY != ts {
		t.Fatalf("source = (%v,%v), want (%v,%v)", r.SrcX, r.SrcY, ts, ts)
	}
}

func TestDrawDepthSorted(t *testing.T) {
	tm, env := loadExample(t, exampleData(), 1)
	env.Batcher.Reset()
	tm.Draw(0, common.Vec{}, true)

	for _, r := range env.Batcher.Regions() {
		row := int(r.DstY) / tm.TileSize()
		want := -(1 - float32(row)/4)
		if r.Z != want {
			t.Fatalf("row %d depth = %v, want %v", row, r.Z, want)
		}
	}
	if tm.RowDepth(0) != -1 {
		t.Fatalf("row 0 depth = %v", tm.RowDepth(0))
	}
}

func TestLoadErrors(t *testing.T) {
	good := exampleData()
	outOfRange := exampleData()
	outOfRange.Layers[0][0].Atlas = 1

	cases := []struct {
		name    string
		files   func(t *testing.T) fstest.MapFS
		wantErr error
	}{
		{"missing_atlas_zero", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{"maps/test.map": mapFile(t, good), "sheets/tiles1.tga": enginetest.ImageFile(t, 16, 16)}
		}, ErrNoAtlases},
		{"missing_map", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16)}
		}, fs.ErrNotExist},
		{"short_header", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"maps/test.map":     &fstest.MapFile{Data: []byte{4, 0, 4}},
			}
		}, nil},
		{"zero_layers", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"maps/test.map":     &fstest.MapFile{Data: []byte{4, 0, 4, 0, 0}},
			}
		}, nil},
		{"truncated_cells", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"maps/test.map":     &fstest.MapFile{Data: []byte{1, 0, 1, 0, 1, 0, 0, 0}},
			}
		}, nil},
		{"huge_header_no_cells", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"maps/test.map":     &fstest.MapFile{Data: []byte{0xff, 0xff, 0xff, 0xff, 0xff}},
			}
		}, io.EOF},
		{"atlas_out_of_range", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"maps/test.map":     mapFile(t, outOfRange),
			}
		}, nil},
		{"undecodable_atlas", func(t *testing.T) fstest.MapFS {
			return fstest.MapFS{
				"sheets/tiles0.tga": enginetest.ImageFile(t, 16, 16),
				"sheets/tiles1.tga": &fstest.MapFile{Data: []byte("nope")},
				"maps/test.map":     mapFile(t, good),
			}
		}, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			env := enginetest.New(t, c.files(t))
			_, err := Load(context.Background(), env.Ctx, "test.map")
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("err = %v, want LoadError", err)
			}
			if le.Name != "test.map" {
				t.Fatalf("name = %q", le.Name)
			}
			if c.wantErr != nil && !errors.Is(err, c.wantErr) {
				t.Fatalf("err = %v, want %v", err, c.wantErr)
			}
			if env.Ctx.Images.Resident() != 0 || env.Uploader.Live() != 0 {
				t.Fatalf("failed load left %d images resident", env.Ctx.Images.Resident())
			}
		})
	}
}

func TestUndecodableAtlasWrapsDecodeError(t *testing.T) {
	env := enginetest.New(t, fstest.MapFS{
		"sheets/tiles0.tga": &fstest.MapFile{Data: []byte{0, 0, 2}},
		"maps/test.map":     mapFile(t, exampleData()),
	})
	_, err := Load(context.Background(), env.Ctx, "test.map")
	var de *texture.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("err = %v, want wrapped DecodeError", err)
	}
}

func TestCloseReleasesAtlasesOnce(t *testing.T) {
	tm, env := loadExample(t, exampleData(), 2)
	if env.Ctx.Images.Resident() != 2 {
		t.Fatalf("resident = %d, want 2", env.Ctx.Images.Resident())
	}

	other, err := Load(context.Background(), env.Ctx, "test.map")
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if env.Ctx.Images.Refs(AtlasPath(0)) != 2 {
		t.Fatalf("maps do not share atlases")
	}

	tm.Close()
	tm.Close()
	if env.Ctx.Images.Refs(AtlasPath(0)) != 1 || env.Uploader.Live() != 2 {
		t.Fatalf("after close refs=%d live=%d", env.Ctx.Images.Refs(AtlasPath(0)), env.Uploader.Live())
	}
	other.Close()
	if env.Uploader.Live() != 0 {
		t.Fatalf("live = %d after closing both maps", env.Uploader.Live())
	}
}

func TestParseNormalizesNegativeCells(t *testing.T) {
	raw := []byte{1, 0, 1, 0, 1, 0xff, 3, 0, 1}
	d, err := Parse(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	c := d.Layers[0][0]
	if !c.Empty() || !c.Solid {
		t.Fatalf("cell = %+v, want empty and solid", c)
	}
}

func TestParseHugeHeaderFailsOnMissingCells(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
	}{
		{"header_only", []byte{0xff, 0xff, 0xff, 0xff, 0xff}},
		{"one_cell", []byte{0xff, 0xff, 0xff, 0xff, 0x01, 1, 1, 0, 0}},
		{"partial_cell", []byte{0xff, 0xff, 0xff, 0xff, 0x01, 1, 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			d, err := Parse(bytes.NewReader(c.raw))
			if err == nil || d != nil {
				t.Fatalf("Parse = %v, %v; want error", d, err)
			}
		})
	}
}
