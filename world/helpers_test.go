package world

import (
	"bytes"
	"context"
	"image"
	"testing"
	"testing/fstest"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/engine/enginetest"
	"github.com/milk9111/tileworld/tilemap"
)

const townLogic = `
speech: ["Hello."]
triggers:
  - id: door
    region: {x: 5, y: 2, w: 1, h: 1}
    exit: {map: house.map, x: 1, y: 2, dir: up}
  - id: sign
    region: {x: 2, y: 3, w: 1, h: 1}
    speech: ["A sign."]
  - id: lever
    region: {x: 0, y: 4, w: 2, h: 1}
    script: |
      fmt := import("fmt")
      add_speech(fmt.sprintf("lever %s %d", map_name, entity_x))
entities:
  - name: npc
    sprite: sprites/npc.tga
    x: 4
    y: 1
`

// townData is 6x5 with three layers. Column 3 is solid on rows 0-2, layer 1
// holds a tree at (4,3) and layer 2 a roof at (0,0).
func townData() *tilemap.Data {
	const w, h = 6, 5
	ground := make([]tilemap.Cell, w*h)
	for _, p := range []image.Point{{3, 0}, {3, 1}, {3, 2}} {
		ground[p.Y*w+p.X].Solid = true
	}
	middle := emptyCells(w * h)
	middle[3*w+4] = tilemap.Cell{X: 1, Atlas: 0}
	top := emptyCells(w * h)
	top[0] = tilemap.Cell{X: 1, Atlas: 0}
	return &tilemap.Data{W: w, H: h, Layers: [][]tilemap.Cell{ground, middle, top}}
}

func houseData() *tilemap.Data {
	return &tilemap.Data{W: 4, H: 4, Layers: [][]tilemap.Cell{make([]tilemap.Cell, 16)}}
}

func emptyCells(n int) []tilemap.Cell {
	cells := make([]tilemap.Cell, n)
	for i := range cells {
		cells[i] = tilemap.Cell{Atlas: tilemap.EmptyAtlas}
	}
	return cells
}

func encodeMap(t *testing.T, d *tilemap.Data) *fstest.MapFile {
	t.Helper()
	var buf bytes.Buffer
	if err := tilemap.Encode(&buf, d); err != nil {
		t.Fatalf("tilemap.Encode: %v", err)
	}
	return &fstest.MapFile{Data: buf.Bytes()}
}

func newEnv(t *testing.T) *enginetest.Env {
	t.Helper()
	return enginetest.New(t, fstest.MapFS{
		tilemap.AtlasPath(0): enginetest.ImageFile(t, 32, 16),
		"maps/town.map":      encodeMap(t, townData()),
		"maps/town.yaml":     &fstest.MapFile{Data: []byte(townLogic)},
		"maps/house.map":     encodeMap(t, houseData()),
		"sprites/npc.tga":    enginetest.ImageFile(t, 16, 16),
		"sprites/player.tga": enginetest.ImageFile(t, 64, 16),
	})
}

func loadTown(t *testing.T, env *enginetest.Env, opts ...Option) *Map {
	t.Helper()
	m, err := Load(context.Background(), env.Ctx, "town.map", opts...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

// stepBrain moves one queued step per tick.
type stepBrain struct {
	dirs []common.Direction
}

func (b *stepBrain) Update(m *Map, e *Entity) {
	if len(b.dirs) == 0 {
		return
	}
	e.Move(m, b.dirs[0])
	b.dirs = b.dirs[1:]
}

func (b *stepBrain) queue(dirs ...common.Direction) {
	b.dirs = append(b.dirs, dirs...)
}

// addPlayer adds a focused player with a four-facing sprite at p.
func addPlayer(t *testing.T, env *enginetest.Env, m *Map, p image.Point) (*Entity, *stepBrain) {
	t.Helper()
	brain := &stepBrain{}
	player := NewEntity("player", brain)
	if err := player.LoadSprite(env.Ctx.Images, "sprites/player.tga"); err != nil {
		t.Fatalf("LoadSprite: %v", err)
	}
	player.SetPosition(p)
	m.AddEntity(player)
	m.SetFocus(player)
	return player, brain
}

type recordingSpeech struct {
	lines []string
}

func (r *recordingSpeech) DrawSpeech(line string) {
	r.lines = append(r.lines, line)
}
