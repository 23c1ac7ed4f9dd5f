package main

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/tileworld/common"
)

// Input holds the keyboard and gamepad state for one frame.
type Input struct {
	// Dir is the held direction, none when nothing is held.
	Dir common.Direction
	// Confirm is true on the frame the confirm key is pressed.
	Confirm bool
	// Pause is true on the frame the pause key is pressed.
	Pause bool
	// Quit is true on the frame the quit key is pressed.
	Quit bool
}

func NewInput() *Input {
	return &Input{}
}

var dirKeys = []struct {
	dir  common.Direction
	keys []ebiten.Key
	pad  ebiten.StandardGamepadButton
}{
	{common.DirectionUp, []ebiten.Key{ebiten.KeyW, ebiten.KeyArrowUp}, ebiten.StandardGamepadButtonLeftTop},
	{common.DirectionRight, []ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight}, ebiten.StandardGamepadButtonLeftRight},
	{common.DirectionDown, []ebiten.Key{ebiten.KeyS, ebiten.KeyArrowDown}, ebiten.StandardGamepadButtonLeftBottom},
	{common.DirectionLeft, []ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft}, ebiten.StandardGamepadButtonLeftLeft},
}

// Update polls the keyboard and the first gamepad.
func (i *Input) Update() {
	ids := ebiten.GamepadIDs()

	i.Dir = common.DirectionNone
	for _, dk := range dirKeys {
		held := false
		for _, k := range dk.keys {
			if ebiten.IsKeyPressed(k) {
				held = true
			}
		}
		if len(ids) > 0 && ebiten.IsStandardGamepadButtonPressed(ids[0], dk.pad) {
			held = true
		}
		if held {
			i.Dir = dk.dir
			break
		}
	}

	// left stick
	if i.Dir == common.DirectionNone && len(ids) > 0 {
		x := ebiten.StandardGamepadAxisValue(ids[0], ebiten.StandardGamepadAxisLeftStickHorizontal)
		y := ebiten.StandardGamepadAxisValue(ids[0], ebiten.StandardGamepadAxisLeftStickVertical)
		switch {
		case x < -0.5:
			i.Dir = common.DirectionLeft
		case x > 0.5:
			i.Dir = common.DirectionRight
		case y < -0.5:
			i.Dir = common.DirectionUp
		case y > 0.5:
			i.Dir = common.DirectionDown
		}
	}

	i.Confirm = inpututil.IsKeyJustPressed(ebiten.KeySpace) || inpututil.IsKeyJustPressed(ebiten.KeyEnter)
	i.Pause = inpututil.IsKeyJustPressed(ebiten.KeyEscape)
	if len(ids) > 0 {
		i.Confirm = i.Confirm || inpututil.IsStandardGamepadButtonJustPressed(ids[0], ebiten.StandardGamepadButtonRightBottom)
		i.Pause = i.Pause || inpututil.IsStandardGamepadButtonJustPressed(ids[0], ebiten.StandardGamepadButtonCenterRight)
	}
	i.Quit = inpututil.IsKeyJustPressed(ebiten.KeyF12)
}
