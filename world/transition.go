package world

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/telemetry"
	"github.com/milk9111/tileworld/tilemap"
)

// TransitionDuration is how long a map change animates.
const TransitionDuration = 500 * time.Millisecond

// ErrStop is returned by StartTransition when the pending change names no
// map, which asks the game to stop.
var ErrStop = errors.New("world: stop requested")

// ErrNoChange is returned by StartTransition when no change is pending.
var ErrNoChange = errors.New("world: no map change pending")

// Presenter shows each transition frame.
type Presenter interface {
	Clear()
	Present()
}

// Transition animates from the map that requested a change to the map it
// named. The focus entity moves to its new position at the halfway point,
// the same frame the new map starts being drawn.
type Transition struct {
	eng  *engine.Context
	old  *Map
	next *Map
	req  ChangeRequest

	start    time.Time
	duration time.Duration

	angle      float64
	movedFocus bool
	done       bool

	span trace.Span
}

// StartTransition consumes old's pending change and loads the new map. The
// request is cleared even when loading fails, in which case old stays the
// active map and the error is returned. An arrival cell outside the new map
// fails the same way.
func StartTransition(ctx context.Context, eng *engine.Context, old *Map, opts ...Option) (*Transition, error) {
	req, ok := old.PendingChange()
	if !ok {
		return nil, ErrNoChange
	}
	old.ClearChange()
	if req.Map == "" {
		return nil, ErrStop
	}

	ctx, span := telemetry.Tracer("world").Start(ctx, "world.Transition")
	span.SetAttributes(
		attribute.String("map.from", old.Name()),
		attribute.String("map.to", req.Map),
	)

	opts = append([]Option{WithPathfinder(old.pathfinder), WithSpeechRenderer(old.speechOut)}, opts...)
	next, err := Load(ctx, eng, req.Map, opts...)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, fmt.Errorf("world: change from %s: %w", old.Name(), err)
	}
	if !next.Tilemap().InBounds(req.Position) {
		next.Close()
		err := &tilemap.LoadError{Name: req.Map, Err: fmt.Errorf("arrival %v outside the map", req.Position)}
		span.RecordError(err)
		span.End()
		return nil, fmt.Errorf("world: change from %s: %w", old.Name(), err)
	}

	if focus := old.Focus(); focus != nil {
		next.AddEntity(focus)
		next.SetFocus(focus)
	}
	next.Start()

	return &Transition{
		eng:      eng,
		old:      old,
		next:     next,
		req:      req,
		start:    eng.Clock.Now(),
		duration: TransitionDuration,
		span:     span,
	}, nil
}

// Step advances the transition to now and reports whether it is still
// running. The first step at or past the duration finishes it.
func (t *Transition) Step(now time.Time) bool {
	if t.done {
		return false
	}
	elapsed := max(now.Sub(t.start), 0)

	// a late frame can skip the halfway point; the move still happens once
	if !t.movedFocus && elapsed >= t.duration/2 {
		t.movedFocus = true
		if focus := t.next.Focus(); focus != nil {
			focus.SetPosition(t.req.Position)
			focus.SetDirection(t.req.Direction)
		}
	}
	if elapsed >= t.duration {
		t.finish()
		return false
	}

	t.angle = float64(elapsed) / float64(t.duration) * math.Pi
	return true
}

// Draw draws the current frame through the transition projection.
func (t *Transition) Draw() {
	if t.done {
		return
	}
	cfg := t.eng.Config
	t.eng.SetProjection(render.TransitionProjection(t.angle, cfg.ScreenWidth, cfg.ScreenHeight))
	m := t.Displayed()
	m.UpdateCamera()
	m.Draw()
}

// Run steps and draws until the transition ends, without returning to the
// caller in between, and returns the new map.
func (t *Transition) Run(p Presenter) *Map {
	for t.Step(t.eng.Clock.Now()) {
		p.Clear()
		t.Draw()
		p.Present()
	}
	return t.next
}

func (t *Transition) finish() {
	t.done = true
	t.eng.SetProjection(nil)
	t.old.Close()
	t.span.SetAttributes(attribute.Bool("transition.moved_focus", t.movedFocus))
	t.span.End()
}

// Displayed returns the map drawn at the current step.
func (t *Transition) Displayed() *Map {
	if t.movedFocus {
		return t.next
	}
	return t.old
}

// Map returns the map being changed to.
func (t *Transition) Map() *Map {
	return t.next
}

func (t *Transition) Request() ChangeRequest {
	return t.req
}

func (t *Transition) Angle() float64 {
	return t.angle
}

func (t *Transition) MovedFocus() bool {
	return t.movedFocus
}

func (t *Transition) Done() bool {
	return t.done
}
