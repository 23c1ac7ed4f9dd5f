package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/maplogic"
	"github.com/milk9111/tileworld/texture"
	"github.com/milk9111/tileworld/tilemap"
)

func writePNG(t *testing.T, p string, w, h int, fill func(x, y int) color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func writeLevel(t *testing.T, p string, lvl *Level) {
	t.Helper()
	b, err := json.Marshal(lvl)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	if err := os.WriteFile(p, b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConvertLevels(t *testing.T) {
	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	out := filepath.Join(dir, "out")

	// 64x32 tileset of 32px tiles: red then blue
	writePNG(t, filepath.Join(assets, "tiles.png"), 64, 32, func(x, y int) color.NRGBA {
		if x < 32 {
			return color.NRGBA{R: 255, A: 255}
		}
		return color.NRGBA{B: 255, A: 255}
	})
	writePNG(t, filepath.Join(assets, "npc.png"), 16, 16, func(x, y int) color.NRGBA {
		return color.NRGBA{G: 255, A: 255}
	})

	blue := &TilesetEntry{Path: "tiles.png", Index: 1, TileW: 32, TileH: 32}
	a := &Level{
		Width: 3, Height: 2,
		Layers:    [][]int{{0, 1, 4, 0, 0, 0}},
		LayerMeta: []LayerMeta{{HasPhysics: true}},
		TilesetUsage: [][][]*TilesetEntry{{
			{nil, nil, blue},
			{nil, nil, nil},
		}},
		Transitions: []Transition{{X: 0, Y: 1, W: 1, H: 1, ID: "a-east", Target: "b.json", LinkID: "b-west", Direction: "right"}},
		Entities:    []PlacedEntity{{Name: "npc", Sprite: "npc.png", X: 2, Y: 1}},
	}
	b := &Level{
		Width: 4, Height: 4, SpawnX: 2, SpawnY: 2,
		Layers:      [][]int{make([]int, 16)},
		Transitions: []Transition{{X: 0, Y: 2, W: 1, H: 1, ID: "b-west", Target: "a", LinkID: "missing", Direction: "left"}},
	}
	writeLevel(t, filepath.Join(dir, "a.json"), a)
	writeLevel(t, filepath.Join(dir, "b.json"), b)

	c := newConverter(16, assets)
	for _, name := range []string{"a", "b"} {
		lvl, err := LoadLevel(filepath.Join(dir, name+".json"))
		if err != nil {
			t.Fatalf("LoadLevel: %v", err)
		}
		c.add(name, lvl)
	}
	if err := c.convertAll(out); err != nil {
		t.Fatalf("convertAll: %v", err)
	}

	f, err := os.Open(filepath.Join(out, "maps", "a.map"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := tilemap.Parse(f)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cells := d.Layers[0]
	if !cells[0].Empty() || cells[0].Solid {
		t.Fatalf("cell 0 = %+v, want empty", cells[0])
	}
	if !cells[1].Empty() || !cells[1].Solid {
		t.Fatalf("block cell = %+v, want solid and undrawn", cells[1])
	}
	if cells[2] != (tilemap.Cell{X: 1, Y: 0, Atlas: 0, Solid: true}) {
		t.Fatalf("tile cell = %+v", cells[2])
	}

	af, err := os.Open(filepath.Join(out, "sheets", "tiles0.tga"))
	if err != nil {
		t.Fatal(err)
	}
	defer af.Close()
	px, err := texture.Decode(af)
	if err != nil {
		t.Fatalf("Decode atlas: %v", err)
	}
	if px.W != 32 || px.H != 16 {
		t.Fatalf("atlas is %dx%d, want tiles scaled to 32x16", px.W, px.H)
	}
	if got := px.Pix[(0*px.W+20)*4 : (0*px.W+20)*4+4]; !bytes.Equal(got, []byte{0, 0, 255, 255}) {
		t.Fatalf("second tile pixel = %v, want blue", got)
	}

	if _, err := os.Stat(filepath.Join(out, "sprites", "npc.tga")); err != nil {
		t.Fatalf("sprite not written: %v", err)
	}

	la, err := maplogic.Load(os.DirFS(out), "a.map")
	if err != nil {
		t.Fatalf("maplogic.Load: %v", err)
	}
	if la.EntityLayer == nil || *la.EntityLayer != 0 {
		t.Fatalf("entity layer = %v", la.EntityLayer)
	}
	want := maplogic.Exit{Map: "b.map", X: 1, Y: 2, Dir: common.DirectionRight}
	if len(la.Triggers) != 1 || *la.Triggers[0].Exit != want {
		t.Fatalf("triggers = %+v", la.Triggers)
	}
	if len(la.Entities) != 1 || la.Entities[0].Sprite != "sprites/npc.tga" || la.Entities[0].Brain != maplogic.BrainStill {
		t.Fatalf("entities = %+v", la.Entities)
	}

	// unresolved link falls back to the target spawn
	lb, err := maplogic.Load(os.DirFS(out), "b.map")
	if err != nil {
		t.Fatalf("maplogic.Load: %v", err)
	}
	if got := *lb.Triggers[0].Exit; got != (maplogic.Exit{Map: "a.map", X: 0, Y: 0, Dir: common.DirectionLeft}) {
		t.Fatalf("b exit = %+v", got)
	}
}

func TestConvertRejectsUnknownTarget(t *testing.T) {
	c := newConverter(16, t.TempDir())
	c.add("a", &Level{
		Width: 1, Height: 1,
		Layers:      [][]int{{0}},
		Transitions: []Transition{{W: 1, H: 1, Target: "elsewhere"}},
	})
	if err := c.convertAll(t.TempDir()); err == nil {
		t.Fatalf("convertAll succeeded with an unknown target")
	}
}

func TestLoadLevelRejectsShortLayer(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.json")
	writeLevel(t, p, &Level{Width: 2, Height: 2, Layers: [][]int{{0, 0}}})
	if _, err := LoadLevel(p); err == nil {
		t.Fatalf("LoadLevel accepted a short layer")
	}
}
