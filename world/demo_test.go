package world

import (
	"context"
	"image"
	"os"
	"testing"
	"time"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/render/rendertest"
)

// TestDemoData walks through the house door of the bundled demo world and
// back out, checking nothing leaks.
func TestDemoData(t *testing.T) {
	fsys := os.DirFS("../data")
	b, err := os.ReadFile("../data/config.yaml")
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	cfg, err := engine.ParseConfig(b)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	clock := &engine.ManualClock{T: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	up := rendertest.NewUploader()
	eng, err := engine.New(cfg, fsys, up, &rendertest.Batcher{}, engine.WithClock(clock))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	m, err := Load(context.Background(), eng, cfg.StartMap)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(m.Entities()); got != 2 {
		t.Fatalf("start map spawned %d entities, want 2", got)
	}

	brain := &stepBrain{}
	player := NewEntity("player", brain)
	if err := player.LoadSprite(eng.Images, cfg.PlayerSprite); err != nil {
		t.Fatalf("LoadSprite: %v", err)
	}
	player.SetPosition(image.Pt(13, 5))
	m.AddEntity(player)
	m.SetFocus(player)

	brain.queue(common.DirectionUp)
	if m.Update() {
		t.Fatalf("door did not request a change")
	}

	walk := func(m *Map, want string, at image.Point) *Map {
		t.Helper()
		tr, err := StartTransition(context.Background(), eng, m)
		if err != nil {
			t.Fatalf("StartTransition: %v", err)
		}
		clock.Advance(TransitionDuration)
		if tr.Step(clock.Now()) {
			t.Fatalf("transition still running after %v", TransitionDuration)
		}
		next := tr.Map()
		if next.Name() != want || player.Position() != at {
			t.Fatalf("arrived at %s %v, want %s %v", next.Name(), player.Position(), want, at)
		}
		return next
	}

	m = walk(m, "house.map", image.Pt(3, 4))
	if m.CurrentSpeech() != "" {
		m.DismissSpeech()
	}
	for m.CurrentSpeech() != "" || len(m.speech) > 0 {
		m.Update()
		m.DismissSpeech()
	}

	brain.queue(common.DirectionDown)
	if m.Update() {
		t.Fatalf("front door did not request a change")
	}
	m = walk(m, "start.map", image.Pt(13, 5))

	m.Close()
	player.Destroy()
	if n := eng.Shutdown(); n != 0 {
		t.Fatalf("%d images leaked", n)
	}
	if up.Live() != 0 {
		t.Fatalf("%d textures still uploaded", up.Live())
	}
}
