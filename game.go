package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"path/filepath"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"golang.org/x/image/colornames"

	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/maplogic"
	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/speech"
	"github.com/milk9111/tileworld/world"
)

type Game struct {
	frames int
	debug  bool
	paused bool
	quit   bool

	eng   *engine.Context
	cache *render.VertexCache
	box   *speech.Box
	pause *ebitenui.UI

	input  *Input
	player *world.Entity
	world  *world.Map

	// transition is non-nil while a map change is animating; input and map
	// updates are suspended until it finishes.
	transition *world.Transition

	watcher *maplogic.Watcher
}

// NewGame loads the start map and places the player on it. dataDir, when
// set, is watched for sidecar edits in debug mode.
func NewGame(eng *engine.Context, cache *render.VertexCache, startMap, dataDir string, debug bool) (*Game, error) {
	cfg := eng.Config
	g := &Game{
		debug: debug,
		eng:   eng,
		cache: cache,
		box:   speech.NewBox(cfg.ScreenWidth, cfg.ScreenHeight, eng.Palette),
		input: NewInput(),
	}

	g.pause = NewPauseUI(g)

	m, err := world.Load(context.Background(), eng, startMap, world.WithSpeechRenderer(g.box))
	if err != nil {
		return nil, err
	}

	g.player = world.NewEntity("player", newPlayerBrain(g.input))
	if cfg.PlayerSprite != "" {
		if err := g.player.LoadSprite(eng.Images, cfg.PlayerSprite); err != nil {
			m.Close()
			return nil, fmt.Errorf("load player sprite: %w", err)
		}
	}
	g.player.SetPosition(image.Pt(cfg.StartX, cfg.StartY))
	m.AddEntity(g.player)
	m.SetFocus(g.player)
	m.Start()
	g.world = m

	if debug && dataDir != "" {
		w, err := maplogic.NewWatcher(filepath.Join(dataDir, "maps"))
		if err != nil {
			log.Printf("map logic hot reload disabled: %v", err)
		} else {
			g.watcher = w
		}
	}
	return g, nil
}

func (g *Game) Update() error {
	g.frames++

	if g.transition != nil {
		if !g.transition.Step(g.eng.Clock.Now()) {
			g.world = g.transition.Map()
			g.transition = nil
		}
		return nil
	}

	g.reloadLogic()
	g.input.Update()
	if g.input.Quit {
		return ebiten.Termination
	}
	if g.input.Pause {
		g.paused = !g.paused
	}
	if g.paused {
		g.pause.Update()
		if g.quit {
			return ebiten.Termination
		}
		return nil
	}
	g.box.Update()
	if g.input.Confirm && g.world.CurrentSpeech() != "" {
		g.world.DismissSpeech()
	}

	if g.world.Update() {
		return nil
	}

	tr, err := world.StartTransition(context.Background(), g.eng, g.world)
	if errors.Is(err, world.ErrStop) {
		return ebiten.Termination
	}
	if err != nil {
		return err
	}
	g.transition = tr
	return nil
}

func (g *Game) reloadLogic() {
	if g.watcher == nil {
		return
	}
	select {
	case err := <-g.watcher.Errors:
		log.Printf("map logic watcher: %v", err)
	default:
	}
	if len(g.watcher.Drain()) == 0 {
		return
	}
	if err := g.world.ReloadLogic(); err != nil {
		log.Printf("reload %s: %v", g.world.Name(), err)
		return
	}
	log.Printf("reloaded %s", g.world.Name())
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Black)
	g.cache.SetTarget(screen)
	g.box.SetTarget(screen)
	g.cache.ResetStats()

	if g.transition != nil {
		g.transition.Draw()
	} else {
		g.world.Draw()
	}

	if g.paused {
		g.pause.Draw(screen)
	}

	if g.debug {
		p := g.player.Position()
		ebitenutil.DebugPrint(screen, fmt.Sprintf("%s (%d,%d)  FPS: %.1f  draws: %d  images: %d",
			g.world.Name(), p.X, p.Y, ebiten.ActualFPS(), g.cache.Submissions, g.eng.Images.Resident()))
	}
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return float64(g.eng.Config.ScreenWidth), float64(g.eng.Config.ScreenHeight)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}

// Close releases the active map and the player.
func (g *Game) Close() {
	if g.watcher != nil {
		g.watcher.Close()
	}
	if g.transition != nil {
		g.transition.Map().Close()
	}
	g.world.Close()
	g.player.Destroy()
}
