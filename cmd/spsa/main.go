// Command spsa previews a TGA sprite sheet: each facing frame in turn, or a
// single facing chosen with the arrow keys.
package main

import (
	"flag"
	"image"
	"image/color"
	"log"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/texture"
)

const screenSize = 256

type demoGame struct {
	frames      []*ebiten.Image
	current     int
	tick        int
	ticksPerFrm int
	// held pins the preview to one facing; none cycles through all of them.
	held common.Direction
}

func (g *demoGame) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	for key, dir := range map[ebiten.Key]common.Direction{
		ebiten.KeyArrowUp:    common.DirectionUp,
		ebiten.KeyArrowRight: common.DirectionRight,
		ebiten.KeyArrowDown:  common.DirectionDown,
		ebiten.KeyArrowLeft:  common.DirectionLeft,
		ebiten.KeySpace:      common.DirectionNone,
	} {
		if inpututil.IsKeyJustPressed(key) {
			g.held = dir
		}
	}

	if g.held != common.DirectionNone && int(g.held) <= len(g.frames) {
		g.current = int(g.held) - 1
		return nil
	}
	if len(g.frames) <= 1 {
		return nil
	}
	g.tick++
	if g.tick >= g.ticksPerFrm {
		g.tick = 0
		g.current = (g.current + 1) % len(g.frames)
	}
	return nil
}

func (g *demoGame) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x20, 0x20, 0x30, 0xff})
	if len(g.frames) == 0 {
		return
	}
	f := g.frames[g.current]
	fw, fh := f.Bounds().Dx(), f.Bounds().Dy()
	scale := max(1, min(screenSize/2/fw, screenSize/2/fh))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(scale), float64(scale))
	op.GeoM.Translate(float64(screenSize-fw*scale)/2, float64(screenSize-fh*scale)/2)
	op.Filter = ebiten.FilterNearest
	screen.DrawImage(f, op)
	ebitenutil.DebugPrint(screen, common.Direction(g.current+1).String())
}

func (g *demoGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenSize, screenSize
}

// loadFrames splits a sheet into frames of frameW pixels; a zero width
// treats the sheet as square frames of its own height.
func loadFrames(path string, frameW, fps int) ([]*ebiten.Image, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	px, err := texture.Decode(f)
	if err != nil {
		return nil, 0, err
	}

	sheet := ebiten.NewImageFromImage(px.NRGBA())
	if frameW <= 0 {
		frameW = px.H
	}
	cols := max(1, px.W/frameW)
	frames := make([]*ebiten.Image, cols)
	for i := range frames {
		r := image.Rect(i*frameW, 0, i*frameW+frameW, px.H)
		frames[i] = sheet.SubImage(r).(*ebiten.Image)
	}

	ticks := 1
	if fps > 0 {
		ticks = max(1, 60/fps)
	}
	return frames, ticks, nil
}

func main() {
	frameW := flag.Int("w", 0, "frame width in pixels (defaults to the sheet height)")
	fps := flag.Int("fps", 2, "frames per second when cycling")
	flag.Parse()
	path := "data/sprites/player.tga"
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}

	frames, ticks, err := loadFrames(path, *frameW, *fps)
	if err != nil {
		log.Fatal(err)
	}
	g := &demoGame{frames: frames, ticksPerFrm: ticks}
	ebiten.SetWindowSize(screenSize*2, screenSize*2)
	ebiten.SetWindowTitle("Sprite Sheet Preview")
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
