package maplogic

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/milk9111/tileworld/common"
)

const sample = `
entity_layer: 2
speech: ["Welcome."]
triggers:
  - id: door
    region: {x: 4, y: 0, w: 1, h: 1}
    exit: {map: house.map, x: 2, y: 6, dir: up}
  - id: sign
    region: {x: 1, y: 1, w: 2, h: 1}
    speech: ["A sign."]
  - id: lever
    region: {x: 2, y: 3, w: 1, h: 1}
    script_file: scripts/lever.tengo
entities:
  - name: villager
    sprite: sprites/villager.tga
    x: 3
    y: 2
    dir: south
    brain: wander
  - name: guard
    x: 1
    y: 1
    brain: patrol
    waypoints: [{x: 1, y: 1}, {x: 5, y: 1}]
`

func TestLoadSidecar(t *testing.T) {
	fsys := fstest.MapFS{
		"maps/town.yaml":              &fstest.MapFile{Data: []byte(sample)},
		"maps/scripts/lever.tengo":    &fstest.MapFile{Data: []byte(`add_speech("click")`)},
		"maps/unrelated/ignored.yaml": &fstest.MapFile{Data: []byte("x: [")},
	}

	l, err := Load(fsys, "town.map")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if l.EntityLayer == nil || *l.EntityLayer != 2 {
		t.Fatalf("entity layer = %v", l.EntityLayer)
	}
	if len(l.Triggers) != 3 {
		t.Fatalf("triggers = %d, want 3", len(l.Triggers))
	}
	door := l.Triggers[0]
	if door.Exit == nil || door.Exit.Map != "house.map" || door.Exit.Dir != common.DirectionUp {
		t.Fatalf("door exit = %+v", door.Exit)
	}
	if got := l.Triggers[1].Region.Rect(); got != image.Rect(1, 1, 3, 2) {
		t.Fatalf("sign region = %v", got)
	}
	if !strings.Contains(l.Triggers[2].Script, "click") {
		t.Fatalf("script file not loaded: %q", l.Triggers[2].Script)
	}
	if l.Entities[0].Dir != common.DirectionDown || l.Entities[0].Brain != BrainWander {
		t.Fatalf("villager = %+v", l.Entities[0])
	}
	if len(l.Entities[1].Waypoints) != 2 {
		t.Fatalf("guard waypoints = %v", l.Entities[1].Waypoints)
	}
}

func TestLoadWithoutSidecar(t *testing.T) {
	l, err := Load(fstest.MapFS{}, "empty.map")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(l.Triggers) != 0 || l.EntityLayer != nil {
		t.Fatalf("expected empty logic, got %+v", l)
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"bad_direction", "entities: [{name: a, dir: sideways}]"},
		{"unknown_brain", "entities: [{name: a, brain: dance}]"},
		{"patrol_without_waypoints", "entities: [{name: a, brain: patrol}]"},
		{"trigger_without_id", "triggers: [{region: {w: 1, h: 1}, speech: [hi]}]"},
		{"duplicate_ids", "triggers: [{id: a, region: {w: 1, h: 1}, speech: [x]}, {id: a, region: {w: 1, h: 1}, speech: [y]}]"},
		{"empty_region", "triggers: [{id: a, region: {w: 0, h: 1}, speech: [hi]}]"},
		{"no_action", "triggers: [{id: a, region: {w: 1, h: 1}}]"},
		{"exit_without_map", "triggers: [{id: a, region: {w: 1, h: 1}, exit: {x: 1}}]"},
		{"negative_layer", "entity_layer: -1"},
		{"malformed", "triggers: ["},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := Parse([]byte(c.yaml)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestSidecarPath(t *testing.T) {
	cases := map[string]string{
		"town.map":       "maps/town.yaml",
		"town":           "maps/town.yaml",
		"inside/hut.map": "maps/inside/hut.yaml",
	}
	for in, want := range cases {
		if got := SidecarPath(in); got != want {
			t.Errorf("SidecarPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWatcherReportsLogicFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "town.yaml")
	if err := os.WriteFile(target, []byte("speech: [hi]"), 0o644); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case p := <-w.Events:
			if !IsLogicFile(p) {
				t.Fatalf("non-logic file reported: %s", p)
			}
			if p == target {
				return
			}
		case err := <-w.Errors:
			t.Fatalf("watch error: %v", err)
		case <-timeout:
			t.Fatalf("no event for %s", target)
		}
	}
}
