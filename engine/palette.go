package engine

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// Palette is the fixed colour table used for UI chrome.
type Palette [256]color.RGBA

// DefaultPalette fills the first entries with a few named colours and leaves
// the rest black.
func DefaultPalette() Palette {
	var p Palette
	named := []color.RGBA{
		colornames.Black,
		colornames.White,
		colornames.Red,
		colornames.Lime,
		colornames.Blue,
		colornames.Yellow,
		colornames.Cyan,
		colornames.Magenta,
		colornames.Gray,
		colornames.Darkslategray,
	}
	for i := range p {
		p[i] = color.RGBA{A: 0xff}
	}
	copy(p[:], named)
	return p
}

// LoadPalette parses a GIMP palette (.gpl). Lines are "R G B [name]"; the
// header, Name:, Columns: and # comment lines are skipped. Entries past 256
// are an error.
func LoadPalette(r io.Reader) (Palette, error) {
	p := DefaultPalette()
	sc := bufio.NewScanner(r)
	line, n := 0, 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if line == 1 {
			if s != "GIMP Palette" {
				return p, fmt.Errorf("engine: palette: missing GIMP Palette header")
			}
			continue
		}
		if s == "" || strings.HasPrefix(s, "#") || strings.HasPrefix(s, "Name:") || strings.HasPrefix(s, "Columns:") {
			continue
		}

		fields := strings.Fields(s)
		if len(fields) < 3 {
			return p, fmt.Errorf("engine: palette line %d: want R G B", line)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			v, err := strconv.ParseUint(fields[i], 10, 8)
			if err != nil {
				return p, fmt.Errorf("engine: palette line %d: %w", line, err)
			}
			rgb[i] = uint8(v)
		}
		if n >= len(p) {
			return p, fmt.Errorf("engine: palette line %d: more than %d entries", line, len(p))
		}
		p[n] = color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff}
		n++
	}
	if err := sc.Err(); err != nil {
		return p, fmt.Errorf("engine: palette: %w", err)
	}
	if line == 0 {
		return p, fmt.Errorf("engine: palette: empty file")
	}
	return p, nil
}
