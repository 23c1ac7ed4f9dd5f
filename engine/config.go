package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/tileworld/common"
)

// Config holds the engine settings read from config.yaml.
type Config struct {
	ScreenWidth  int    `yaml:"screen_width"`
	ScreenHeight int    `yaml:"screen_height"`
	TileSize     int    `yaml:"tile_size"`
	Palette      string `yaml:"palette"`
	StartMap     string `yaml:"start_map"`
	StartX       int    `yaml:"start_x"`
	StartY       int    `yaml:"start_y"`
	PlayerSprite string `yaml:"player_sprite"`
	Debug        bool   `yaml:"debug"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() Config {
	return Config{
		ScreenWidth:  320,
		ScreenHeight: 240,
		TileSize:     common.TileSize,
		StartMap:     "start.map",
		StartX:       1,
		StartY:       1,
		PlayerSprite: "sprites/player.tga",
	}
}

// LoadConfig reads a YAML config from path over the defaults. A missing file
// yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("engine: read config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig decodes YAML config bytes over the defaults.
func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("engine: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ScreenWidth <= 0 || c.ScreenHeight <= 0 {
		return fmt.Errorf("engine: invalid screen size %dx%d", c.ScreenWidth, c.ScreenHeight)
	}
	if c.TileSize <= 0 {
		return fmt.Errorf("engine: invalid tile size %d", c.TileSize)
	}
	return nil
}
