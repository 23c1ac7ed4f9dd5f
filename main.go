package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/joho/godotenv"

	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/telemetry"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug overlay and map logic hot reload")
	baseMonitor := flag.Bool("m", false, "use base monitor instead of primary (for multi-monitor setups)")
	dataDir := flag.String("data", "", "game data directory (defaults to the embedded demo data)")
	configPath := flag.String("config", "", "config file (defaults to config.yaml in the data)")
	mapName := flag.String("map", "", "start map in maps/, overrides the config")
	scale := flag.Int("scale", 3, "window scale")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx)
	if err != nil {
		log.Printf("telemetry disabled: %v", err)
	} else {
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Printf("telemetry shutdown: %v", err)
			}
		}()
	}

	var fsys fs.FS
	if *dataDir != "" {
		fsys = os.DirFS(*dataDir)
	} else {
		fsys = demoData()
	}

	cfg, err := loadConfig(fsys, *configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *mapName != "" {
		cfg.StartMap = *mapName
	}
	cfg.Debug = cfg.Debug || *debug

	cache := render.NewVertexCache()
	eng, err := engine.New(cfg, fsys, render.EbitenUploader{}, cache)
	if err != nil {
		log.Fatal(err)
	}

	if *baseMonitor {
		ebiten.SetMonitor(ebiten.AppendMonitors(nil)[0])
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(cfg.ScreenWidth**scale, cfg.ScreenHeight**scale)
	ebiten.SetWindowTitle("tileworld")

	game, err := NewGame(eng, cache, cfg.StartMap, *dataDir, cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}

	runErr := ebiten.RunGame(game)
	game.Close()
	eng.Shutdown()
	if runErr != nil {
		log.Fatal(runErr)
	}
}

// loadConfig reads an explicit config path from disk, or config.yaml from
// the data filesystem when present.
func loadConfig(fsys fs.FS, path string) (engine.Config, error) {
	if path != "" {
		return engine.LoadConfig(path)
	}
	b, err := fs.ReadFile(fsys, "config.yaml")
	if err != nil {
		return engine.DefaultConfig(), nil
	}
	return engine.ParseConfig(b)
}
