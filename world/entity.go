package world

import (
	"image"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/render"
	"github.com/milk9111/tileworld/texture"
	"github.com/milk9111/tileworld/tilemap"
)

// Brain decides what an entity does each tick.
type Brain interface {
	Update(m *Map, e *Entity)
}

// Entity is something standing on a map tile.
type Entity struct {
	Name string

	id     int
	pos    image.Point
	size   image.Point
	dir    common.Direction
	sprite *texture.Image
	brain  Brain
	moved  bool
}

// NewEntity creates an entity one tile in size, facing down.
func NewEntity(name string, brain Brain) *Entity {
	return &Entity{Name: name, brain: brain, dir: common.DirectionDown}
}

// ID is assigned when the entity is added to a map.
func (e *Entity) ID() int {
	return e.id
}

func (e *Entity) Position() image.Point {
	return e.pos
}

func (e *Entity) SetPosition(p image.Point) {
	e.pos = p
}

func (e *Entity) Direction() common.Direction {
	return e.dir
}

func (e *Entity) SetDirection(d common.Direction) {
	e.dir = d
}

func (e *Entity) Brain() Brain {
	return e.brain
}

func (e *Entity) SetBrain(b Brain) {
	e.brain = b
}

// Size is the pixel size, zero until the entity joins a map, which sets it
// to one tile.
func (e *Entity) Size() image.Point {
	return e.size
}

func (e *Entity) SetSize(s image.Point) {
	e.size = s
}

// Moved reports whether the entity changed tile during the current tick.
func (e *Entity) Moved() bool {
	return e.moved
}

// SetSprite hands img to the entity, releasing any previous sprite.
func (e *Entity) SetSprite(img *texture.Image) {
	if e.sprite != nil && e.sprite != img {
		e.sprite.Release()
	}
	e.sprite = img
}

// LoadSprite acquires path from reg as the entity's sprite.
func (e *Entity) LoadSprite(reg *texture.Registry, path string) error {
	img, err := reg.Acquire(path)
	if err != nil {
		return err
	}
	e.SetSprite(img)
	return nil
}

func (e *Entity) Sprite() *texture.Image {
	return e.sprite
}

// Destroy releases the sprite.
func (e *Entity) Destroy() {
	if e.sprite != nil {
		e.sprite.Release()
		e.sprite = nil
	}
}

// Move steps one tile in dir when the destination is free. The entity faces
// dir either way.
func (e *Entity) Move(m *Map, dir common.Direction) bool {
	if dir == common.DirectionNone {
		return false
	}
	e.dir = dir
	dest := e.pos.Add(dir.Delta())
	if !m.tilemap.InBounds(dest) {
		return false
	}
	ts := m.tilemap.TileSize()
	if m.solidFor(e, tilemap.AllLayers, dest.Mul(ts), e.size) {
		return false
	}
	e.pos = dest
	e.moved = true
	return true
}

// bounds returns the inclusive pixel box covered at tile p.
func (e *Entity) bounds(ts int) cp.BB {
	return pixelBB(e.pos.Mul(ts), e.size)
}

func pixelBB(topLeft, size image.Point) cp.BB {
	return cp.BB{
		L: float64(topLeft.X),
		B: float64(topLeft.Y),
		R: float64(topLeft.X + size.X - 1),
		T: float64(topLeft.Y + size.Y - 1),
	}
}

// depth places the entity between its own row and the row below.
func (e *Entity) depth(ts, mapPixelH int) float32 {
	bottom := (e.pos.Y+1)*ts - 1
	return -(1 - float32(bottom)/float32(mapPixelH))
}

func (e *Entity) draw(ts, mapPixelH int, offset common.Vec) {
	if e.sprite == nil {
		return
	}
	sw, sh := e.sprite.Size()
	w, h := min(e.size.X, sw), min(e.size.Y, sh)

	// sheets at least four frames wide hold one column per facing
	src := image.Rect(0, 0, w, h)
	if sw >= 4*w && e.dir != common.DirectionNone {
		col := int(e.dir) - 1
		src = src.Add(image.Pt(col*w, 0))
	}

	dst := common.Vec{
		X: offset.X + float32(e.pos.X*ts+(ts-w)/2),
		Y: offset.Y + float32((e.pos.Y+1)*ts-h),
	}
	e.sprite.Begin(false)
	e.sprite.DrawRegionZ(src, dst, e.depth(ts, mapPixelH), render.Flags(0))
	e.sprite.End()
}
