// Package world runs a loaded map: its entities, triggers, speech queue and
// camera, and the transition from one map to the next.
package world

import (
	"context"
	"fmt"
	"image"
	"log"
	"sort"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/engine"
	"github.com/milk9111/tileworld/maplogic"
	"github.com/milk9111/tileworld/pathfind"
	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/tilemap"
)

// DefaultEntityLayer is the layer entities are interleaved with when the map
// does not say otherwise.
const DefaultEntityLayer = 1

// Pathfinder finds routes across a grid of blocked cells.
type Pathfinder interface {
	FindPath(blocked pathfind.Blocked, w, h int, start, goal image.Point) []image.Point
}

// SpeechRenderer draws the speech line currently showing.
type SpeechRenderer interface {
	DrawSpeech(line string)
}

// ChangeRequest is a pending move to another map.
type ChangeRequest struct {
	Map       string
	Position  image.Point
	Direction common.Direction
}

type Map struct {
	eng     *engine.Context
	name    string
	tilemap *tilemap.Tilemap

	entityLayer int
	entities    []*Entity
	focus       *Entity
	nextID      int

	triggers []*trigger
	intro    []string

	camera *Camera

	speech  []string
	current string

	pending *ChangeRequest

	pathfinder Pathfinder
	speechOut  SpeechRenderer

	closed bool
}

type Option func(*Map)

func WithPathfinder(p Pathfinder) Option {
	return func(m *Map) { m.pathfinder = p }
}

func WithSpeechRenderer(r SpeechRenderer) Option {
	return func(m *Map) { m.speechOut = r }
}

// Load loads the tile grid for name and its logic sidecar, spawning the
// entities it lists. Every failure is a *tilemap.LoadError and leaves nothing
// acquired.
func Load(ctx context.Context, eng *engine.Context, name string, opts ...Option) (*Map, error) {
	tm, err := tilemap.Load(ctx, eng, name)
	if err != nil {
		return nil, err
	}

	m := &Map{
		eng:         eng,
		name:        name,
		tilemap:     tm,
		entityLayer: DefaultEntityLayer,
		camera:      NewCamera(eng.Config.ScreenWidth, eng.Config.ScreenHeight),
		pathfinder:  pathfind.AStar{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.camera.SetWorldBounds(tm.PixelSize())

	logic, err := maplogic.Load(eng.FS, name)
	if err == nil {
		err = m.applyLogic(logic)
	}
	if err != nil {
		m.Close()
		return nil, &tilemap.LoadError{Name: name, Err: err}
	}
	return m, nil
}

func (m *Map) applyLogic(l *maplogic.Logic) error {
	triggers := make([]*trigger, 0, len(l.Triggers))
	for _, def := range l.Triggers {
		t, err := newTrigger(def)
		if err != nil {
			return err
		}
		triggers = append(triggers, t)
	}

	layer := DefaultEntityLayer
	if l.EntityLayer != nil {
		layer = *l.EntityLayer
	}

	spawned := make([]*Entity, 0, len(l.Entities))
	for i, s := range l.Entities {
		e, err := m.spawn(s, uint64(i))
		if err != nil {
			for _, prev := range spawned {
				prev.Destroy()
			}
			return err
		}
		spawned = append(spawned, e)
	}

	// a reload replaces everything the previous logic spawned
	for _, e := range m.entities {
		if e != m.focus {
			e.Destroy()
		}
	}
	kept := m.entities[:0]
	for _, e := range m.entities {
		if e == m.focus {
			kept = append(kept, e)
		}
	}
	m.entities = kept

	m.triggers = triggers
	m.intro = l.Speech
	m.entityLayer = common.ClampInt(layer, 0, m.tilemap.NumLayers()-1)
	for _, e := range spawned {
		m.AddEntity(e)
	}
	return nil
}

func (m *Map) spawn(s maplogic.Spawn, seed uint64) (*Entity, error) {
	var brain Brain = StillBrain{}
	switch s.Brain {
	case maplogic.BrainWander:
		brain = NewWanderBrain(DefaultStepDelay, seed+1)
	case maplogic.BrainPatrol:
		waypoints := make([]image.Point, len(s.Waypoints))
		for i, p := range s.Waypoints {
			waypoints[i] = p.Image()
		}
		brain = NewPathBrain(DefaultStepDelay, waypoints)
	}

	pos := image.Pt(s.X, s.Y)
	if !m.tilemap.InBounds(pos) {
		return nil, fmt.Errorf("entity %s at %v is outside the map", s.Name, pos)
	}

	e := NewEntity(s.Name, brain)
	e.SetPosition(pos)
	if s.Dir != common.DirectionNone {
		e.SetDirection(s.Dir)
	}
	if s.Sprite != "" {
		if err := e.LoadSprite(m.eng.Images, s.Sprite); err != nil {
			return nil, fmt.Errorf("entity %s: %w", s.Name, err)
		}
	}
	return e, nil
}

// ReloadLogic re-reads the sidecar. On failure the current logic stays.
func (m *Map) ReloadLogic() error {
	l, err := maplogic.Load(m.eng.FS, m.name)
	if err != nil {
		return err
	}
	return m.applyLogic(l)
}

// Start queues the map's intro speech. Call once when the map becomes
// active.
func (m *Map) Start() {
	for _, line := range m.intro {
		m.AddSpeech(line)
	}
}

func (m *Map) Name() string {
	return m.name
}

func (m *Map) Tilemap() *tilemap.Tilemap {
	return m.tilemap
}

func (m *Map) EntityLayer() int {
	return m.entityLayer
}

// AddEntity adds e to the map. The map destroys it on Close unless it is the
// focus entity.
func (m *Map) AddEntity(e *Entity) {
	m.nextID++
	e.id = m.nextID
	e.moved = false
	if e.size == (image.Point{}) {
		ts := m.tilemap.TileSize()
		e.size = image.Pt(ts, ts)
	}
	m.entities = append(m.entities, e)
}

// RemoveEntity takes e off the map without destroying it.
func (m *Map) RemoveEntity(e *Entity) bool {
	for i, x := range m.entities {
		if x == e {
			m.entities = append(m.entities[:i], m.entities[i+1:]...)
			for _, t := range m.triggers {
				delete(t.inside, e.id)
			}
			return true
		}
	}
	return false
}

// SetFocus sets the entity the camera follows. The map references it but
// never destroys it.
func (m *Map) SetFocus(e *Entity) {
	m.focus = e
}

func (m *Map) Focus() *Entity {
	return m.focus
}

// Entity returns the entity with id, or nil.
func (m *Map) Entity(id int) *Entity {
	for _, e := range m.entities {
		if e.id == id {
			return e
		}
	}
	return nil
}

func (m *Map) Entities() []*Entity {
	return append([]*Entity(nil), m.entities...)
}

// Update advances the map one tick. It returns false exactly when a map
// change is pending.
func (m *Map) Update() bool {
	if m.pending != nil {
		return false
	}

	if m.current == "" && len(m.speech) > 0 {
		m.current, m.speech = m.speech[0], m.speech[1:]
	}

	// entities hold still while someone is talking
	if m.current == "" {
		for _, e := range m.entities {
			e.moved = false
		}
		for _, e := range m.entities {
			if e.brain != nil {
				e.brain.Update(m, e)
			}
		}
		for _, e := range m.entities {
			if e.moved {
				m.checkTriggers(e)
			}
		}
	}

	m.UpdateCamera()
	return m.pending == nil
}

// UpdateCamera centres the view on the focus entity.
func (m *Map) UpdateCamera() {
	if m.focus == nil {
		return
	}
	ts := m.tilemap.TileSize()
	p := m.focus.pos
	m.camera.Update(float64(p.X*ts+ts/2), float64(p.Y*ts+ts/2))
}

// Offset returns the world to screen translation.
func (m *Map) Offset() common.Vec {
	return m.camera.Offset()
}

// AddSpeech queues a line of speech.
func (m *Map) AddSpeech(text string) {
	m.speech = append(m.speech, text)
}

// CurrentSpeech returns the line showing, or "".
func (m *Map) CurrentSpeech() string {
	return m.current
}

// DismissSpeech hides the current line; the next one shows on the following
// Update.
func (m *Map) DismissSpeech() {
	m.current = ""
}

// ChangeMap records a request to move the focus entity to another map. Only
// one request can be pending; later ones are dropped.
func (m *Map) ChangeMap(name string, position image.Point, dir common.Direction) {
	if m.pending != nil {
		log.Printf("world: map %s: change to %s ignored, %s already pending", m.name, name, m.pending.Map)
		return
	}
	m.pending = &ChangeRequest{Map: name, Position: position, Direction: dir}
}

func (m *Map) PendingChange() (ChangeRequest, bool) {
	if m.pending == nil {
		return ChangeRequest{}, false
	}
	return *m.pending, true
}

func (m *Map) ClearChange() {
	m.pending = nil
}

// FindPath returns the steps from start to goal around solid tiles,
// excluding start. It is empty when there is no route.
func (m *Map) FindPath(start, goal image.Point) []image.Point {
	w, h := m.tilemap.Size()
	blocked := func(p image.Point) bool {
		return m.tilemap.IsSolid(tilemap.AllLayers, p)
	}
	return m.pathfinder.FindPath(blocked, w, h, start, goal)
}

// IsSolid reports whether a pixel rectangle at pos of size hits a solid tile
// on layer or any entity.
func (m *Map) IsSolid(layer int, pos, size image.Point) bool {
	return m.solidFor(nil, layer, pos, size)
}

func (m *Map) solidFor(self *Entity, layer int, pos, size image.Point) bool {
	if m.tilemap.Collides(layer, pos, pos.Add(size).Sub(image.Pt(1, 1))) {
		return true
	}
	ts := m.tilemap.TileSize()
	bb := pixelBB(pos, size)
	for _, e := range m.entities {
		if e != self && e.bounds(ts).Intersects(bb) {
			return true
		}
	}
	return false
}

// Draw draws the layers under the entity layer, then the entity layer
// depth sorted with the entities, then the layers above and the speech
// line.
func (m *Map) Draw() {
	offset := m.Offset()
	ts := m.tilemap.TileSize()
	_, mapH := m.tilemap.PixelSize()

	for l := 0; l < m.entityLayer; l++ {
		m.tilemap.Draw(l, offset, false)
	}

	ds, sorted := m.eng.Batcher.(render.DepthSorter)
	if sorted {
		ds.BeginDepth()
	}
	m.tilemap.Draw(m.entityLayer, offset, true)

	order := m.Entities()
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].pos.Y < order[j].pos.Y
	})
	for _, e := range order {
		e.draw(ts, mapH, offset)
	}
	if sorted {
		ds.EndDepth()
	}

	for l := m.entityLayer + 1; l < m.tilemap.NumLayers(); l++ {
		m.tilemap.Draw(l, offset, false)
	}

	if m.current != "" && m.speechOut != nil {
		m.speechOut.DrawSpeech(m.current)
	}
}

// Close destroys the entities the map owns and releases the tile grid. The
// focus entity is left alone.
func (m *Map) Close() {
	if m.closed {
		return
	}
	m.closed = true
	for _, e := range m.entities {
		if e != m.focus {
			e.Destroy()
		}
	}
	m.entities = nil
	m.triggers = nil
	m.tilemap.Close()
}
