package main

import (
	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/world"
)

// playerStepDelay is the number of frames between steps while a direction
// is held.
const playerStepDelay = 8

// playerBrain moves the player from input. The first press steps at once;
// holding repeats every playerStepDelay frames.
type playerBrain struct {
	input *Input
	delay int
	wait  int
}

func newPlayerBrain(input *Input) *playerBrain {
	return &playerBrain{input: input, delay: playerStepDelay}
}

func (b *playerBrain) Update(m *world.Map, e *world.Entity) {
	if b.input.Dir == common.DirectionNone {
		b.wait = 0
		return
	}
	if b.wait > 0 {
		b.wait--
		return
	}
	e.Move(m, b.input.Dir)
	b.wait = b.delay
}
