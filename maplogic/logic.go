// Package maplogic reads the YAML sidecar that gives a map its behaviour:
// triggers, spawned entities, intro speech and the entity layer.
package maplogic

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/tileworld/common"
)

// Brain names accepted in entity spawns.
const (
	BrainStill  = "still"
	BrainWander = "wander"
	BrainPatrol = "patrol"
)

type Point struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

func (p Point) Image() image.Point {
	return image.Pt(p.X, p.Y)
}

// Region is a rectangle of tiles.
type Region struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Rect returns the region in tile coordinates.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

type Exit struct {
	Map string           `yaml:"map"`
	X   int              `yaml:"x"`
	Y   int              `yaml:"y"`
	Dir common.Direction `yaml:"dir,omitempty"`
}

type Trigger struct {
	ID     string   `yaml:"id"`
	Region Region   `yaml:"region"`
	Exit   *Exit    `yaml:"exit,omitempty"`
	Speech []string `yaml:"speech,omitempty"`
	Script string   `yaml:"script,omitempty"`
	// ScriptFile names a .tengo file under maps/ used when Script is empty.
	ScriptFile string `yaml:"script_file,omitempty"`
}

type Spawn struct {
	Name      string           `yaml:"name,omitempty"`
	Sprite    string           `yaml:"sprite,omitempty"`
	X         int              `yaml:"x"`
	Y         int              `yaml:"y"`
	Dir       common.Direction `yaml:"dir,omitempty"`
	Brain     string           `yaml:"brain,omitempty"`
	Waypoints []Point          `yaml:"waypoints,omitempty"`
}

type Logic struct {
	// EntityLayer is the layer entities are drawn interleaved with. Nil
	// means the default.
	EntityLayer *int      `yaml:"entity_layer,omitempty"`
	Speech      []string  `yaml:"speech,omitempty"`
	Triggers    []Trigger `yaml:"triggers,omitempty"`
	Entities    []Spawn   `yaml:"entities,omitempty"`
}

// SidecarPath returns the sidecar file for a map name: maps/<base>.yaml.
func SidecarPath(mapName string) string {
	base := strings.TrimSuffix(mapName, path.Ext(mapName))
	return path.Join("maps", base+".yaml")
}

// Load reads the sidecar for mapName from fsys. A map without a sidecar has
// empty logic. Trigger script files are resolved relative to maps/.
func Load(fsys fs.FS, mapName string) (*Logic, error) {
	p := SidecarPath(mapName)
	b, err := fs.ReadFile(fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return &Logic{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("maplogic: load %s: %w", p, err)
	}

	l, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("maplogic: %s: %w", p, err)
	}

	for i := range l.Triggers {
		tr := &l.Triggers[i]
		if tr.Script != "" || tr.ScriptFile == "" {
			continue
		}
		src, err := fs.ReadFile(fsys, path.Join("maps", tr.ScriptFile))
		if err != nil {
			return nil, fmt.Errorf("maplogic: %s: trigger %s: %w", p, tr.ID, err)
		}
		tr.Script = string(src)
	}
	return l, nil
}

// Parse decodes and validates sidecar YAML.
func Parse(b []byte) (*Logic, error) {
	var l Logic
	if err := yaml.Unmarshal(b, &l); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (l *Logic) Validate() error {
	if l.EntityLayer != nil && *l.EntityLayer < 0 {
		return fmt.Errorf("entity_layer %d is negative", *l.EntityLayer)
	}

	ids := make(map[string]bool, len(l.Triggers))
	for i, tr := range l.Triggers {
		if tr.ID == "" {
			return fmt.Errorf("trigger %d has no id", i)
		}
		if ids[tr.ID] {
			return fmt.Errorf("duplicate trigger id %q", tr.ID)
		}
		ids[tr.ID] = true

		if tr.Region.W <= 0 || tr.Region.H <= 0 {
			return fmt.Errorf("trigger %s: empty region", tr.ID)
		}
		if tr.Exit == nil && len(tr.Speech) == 0 && tr.Script == "" && tr.ScriptFile == "" {
			return fmt.Errorf("trigger %s: no action", tr.ID)
		}
		if tr.Exit != nil && tr.Exit.Map == "" {
			return fmt.Errorf("trigger %s: exit without map", tr.ID)
		}
	}

	for i, s := range l.Entities {
		switch s.Brain {
		case "", BrainStill, BrainWander:
		case BrainPatrol:
			if len(s.Waypoints) == 0 {
				return fmt.Errorf("entity %d (%s): patrol without waypoints", i, s.Name)
			}
		default:
			return fmt.Errorf("entity %d (%s): unknown brain %q", i, s.Name, s.Brain)
		}
	}
	return nil
}
