package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// Cell values in the editor's layer arrays. Values from tileBase up index
// into the layer's tileset.
const (
	cellEmpty    = 0
	cellBlock    = 1
	cellTriangle = 2
	tileBase     = 3
)

// Level is the JSON level written by the sidescroller editor.
type Level struct {
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	Layers       [][]int             `json:"layers,omitempty"`
	LayerMeta    []LayerMeta         `json:"layer_meta,omitempty"`
	SpawnX       int                 `json:"spawn_x,omitempty"`
	SpawnY       int                 `json:"spawn_y,omitempty"`
	TilesetUsage [][][]*TilesetEntry `json:"tileset_usage,omitempty"`
	Transitions  []Transition        `json:"transitions,omitempty"`
	Entities     []PlacedEntity      `json:"entities,omitempty"`
}

type Transition struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	W         int    `json:"w"`
	H         int    `json:"h"`
	ID        string `json:"id,omitempty"`
	Target    string `json:"target"`
	LinkID    string `json:"link_id,omitempty"`
	Direction string `json:"direction,omitempty"`
}

// TilesetEntry names the tileset image and tile index drawn in one cell.
type TilesetEntry struct {
	Path  string `json:"path"`
	Index int    `json:"index"`
	TileW int    `json:"tile_w"`
	TileH int    `json:"tile_h"`
}

type LayerMeta struct {
	HasPhysics bool   `json:"has_physics"`
	Name       string `json:"name,omitempty"`
}

type PlacedEntity struct {
	Name   string `json:"name"`
	Sprite string `json:"sprite"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// LoadLevel reads and checks a level file.
func LoadLevel(path string) (*Level, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lvl Level
	if err := json.Unmarshal(b, &lvl); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if lvl.Width <= 0 || lvl.Height <= 0 {
		return nil, fmt.Errorf("%s: invalid level dimensions: %dx%d", path, lvl.Width, lvl.Height)
	}
	if len(lvl.Layers) == 0 {
		return nil, fmt.Errorf("%s: level has no layers", path)
	}
	for i, l := range lvl.Layers {
		if len(l) != lvl.Width*lvl.Height {
			return nil, fmt.Errorf("%s: layer %d has %d cells, want %d", path, i, len(l), lvl.Width*lvl.Height)
		}
	}
	return &lvl, nil
}

// physics reports whether cells on layer i collide.
func (l *Level) physics(i int) bool {
	if i < len(l.LayerMeta) {
		return l.LayerMeta[i].HasPhysics
	}
	return false
}

// tileset returns the tileset entry for a cell, or nil.
func (l *Level) tileset(layer, x, y int) *TilesetEntry {
	if layer >= len(l.TilesetUsage) || y >= len(l.TilesetUsage[layer]) || x >= len(l.TilesetUsage[layer][y]) {
		return nil
	}
	return l.TilesetUsage[layer][y][x]
}

func (l *Level) transition(id string) *Transition {
	for i := range l.Transitions {
		if l.Transitions[i].ID == id {
			return &l.Transitions[i]
		}
	}
	return nil
}
