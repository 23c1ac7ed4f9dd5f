package world

import (
	"image"
	"math/rand/v2"

	"github.com/milk9111/tileworld/common"
)

// DefaultStepDelay is the number of ticks NPC brains wait between steps.
const DefaultStepDelay = 30

// StillBrain never moves.
type StillBrain struct{}

func (StillBrain) Update(*Map, *Entity) {}

// WanderBrain takes a random step every Delay ticks.
type WanderBrain struct {
	Delay int
	rng   *rand.Rand
	wait  int
}

func NewWanderBrain(delay int, seed uint64) *WanderBrain {
	if delay <= 0 {
		delay = DefaultStepDelay
	}
	return &WanderBrain{Delay: delay, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), wait: delay}
}

func (b *WanderBrain) Update(m *Map, e *Entity) {
	if b.wait--; b.wait > 0 {
		return
	}
	b.wait = b.Delay
	dir := common.Direction(1 + b.rng.IntN(4))
	e.Move(m, dir)
}

// PathBrain walks between waypoints in a loop, finding each leg with the
// map's pathfinder.
type PathBrain struct {
	Delay     int
	Waypoints []image.Point

	next  int
	route []image.Point
	wait  int
}

func NewPathBrain(delay int, waypoints []image.Point) *PathBrain {
	if delay <= 0 {
		delay = DefaultStepDelay
	}
	return &PathBrain{Delay: delay, Waypoints: waypoints, wait: delay}
}

func (b *PathBrain) Update(m *Map, e *Entity) {
	if len(b.Waypoints) == 0 {
		return
	}
	if b.wait--; b.wait > 0 {
		return
	}
	b.wait = b.Delay

	if len(b.route) == 0 {
		for tries := 0; tries < len(b.Waypoints) && len(b.route) == 0; tries++ {
			goal := b.Waypoints[b.next]
			b.next = (b.next + 1) % len(b.Waypoints)
			if goal != e.Position() {
				b.route = m.FindPath(e.Position(), goal)
			}
		}
		if len(b.route) == 0 {
			return
		}
	}

	step := b.route[0]
	dir := directionTo(e.Position(), step)
	if dir == common.DirectionNone {
		// knocked off the route, plan again next time
		b.route = nil
		return
	}
	if e.Move(m, dir) {
		b.route = b.route[1:]
	}
}

// Route returns the steps left on the current leg.
func (b *PathBrain) Route() []image.Point {
	return b.route
}

func directionTo(from, to image.Point) common.Direction {
	for _, d := range []common.Direction{common.DirectionUp, common.DirectionRight, common.DirectionDown, common.DirectionLeft} {
		if from.Add(d.Delta()) == to {
			return d
		}
	}
	return common.DirectionNone
}
