// Package speech draws the one-line speech panel shown at the bottom of the
// screen.
package speech

import (
	"image/color"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	"github.com/hajimehoshi/ebiten/v2"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"github.com/milk9111/tileworld/engine"
)

// Palette entries used by the panel.
const (
	paletteText  = 1
	paletteFrame = 9
)

// Box renders speech lines with ebitenui. Set the frame target before the
// world draws.
type Box struct {
	ui     *ebitenui.UI
	text   *widget.Text
	target *ebiten.Image
	line   string
}

func NewBox(screenW, screenH int, pal engine.Palette) *Box {
	goFace := ebtext.NewGoXFace(basicfont.Face7x13)
	var face ebtext.Face = goFace

	fg := pal[paletteText]
	bg := pal[paletteFrame]
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: bg.R, G: bg.G, B: bg.B, A: 220})

	text := widget.NewText(
		widget.TextOpts.Text("", &face, color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: 0xff}),
	)
	hint := widget.NewText(
		widget.TextOpts.Text("[space]", &face, color.NRGBA{R: fg.R, G: fg.G, B: fg.B, A: 0x90}),
		widget.TextOpts.WidgetOpts(widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionEnd})),
	)

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(4),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 6, Bottom: 6, Left: 8, Right: 8}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(screenW-8, screenH/4),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionCenter,
				VerticalPosition:   widget.AnchorLayoutPositionEnd,
			}),
		),
	)
	panel.AddChild(text)
	panel.AddChild(hint)

	root := widget.NewContainer(widget.ContainerOpts.Layout(widget.NewAnchorLayout()))
	root.AddChild(panel)

	return &Box{ui: &ebitenui.UI{Container: root}, text: text}
}

// SetTarget sets the image the next DrawSpeech renders into.
func (b *Box) SetTarget(img *ebiten.Image) {
	b.target = img
}

// Update runs the ebitenui layout pass.
func (b *Box) Update() {
	b.ui.Update()
}

// DrawSpeech draws line in the panel.
func (b *Box) DrawSpeech(line string) {
	if b.target == nil {
		return
	}
	if line != b.line {
		b.line = line
		b.text.Label = line
	}
	b.ui.Draw(b.target)
}
