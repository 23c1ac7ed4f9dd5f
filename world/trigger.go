package world

import (
	"fmt"
	"image"
	"log"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/tileworld/common"
	"github.com/milk9111/tileworld/maplogic"
)

// scriptVars are the globals every trigger script can use.
var scriptVars = []string{"add_speech", "change_map", "entity_id", "entity_name", "entity_x", "entity_y", "map_name"}

type trigger struct {
	id     string
	region image.Rectangle
	exit   *maplogic.Exit
	speech []string
	script *tengo.Compiled

	// inside holds the entities currently overlapping the region.
	inside map[int]bool
}

func newTrigger(def maplogic.Trigger) (*trigger, error) {
	t := &trigger{
		id:     def.ID,
		region: def.Region.Rect(),
		exit:   def.Exit,
		speech: def.Speech,
		inside: make(map[int]bool),
	}
	if def.Script == "" {
		return t, nil
	}

	script := tengo.NewScript([]byte(def.Script))
	noop := &tengo.UserFunction{Name: "noop", Value: func(...tengo.Object) (tengo.Object, error) {
		return tengo.UndefinedValue, nil
	}}
	for _, name := range scriptVars {
		var v any = 0
		switch name {
		case "add_speech", "change_map":
			v = noop
		case "map_name", "entity_name":
			v = ""
		}
		if err := script.Add(name, v); err != nil {
			return nil, err
		}
	}
	script.SetImports(stdlib.GetModuleMap("fmt", "text", "math", "rand"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("trigger %s: %w", def.ID, err)
	}
	t.script = compiled
	return t, nil
}

func (t *trigger) overlaps(e *Entity, ts int) bool {
	return pixelBB(t.region.Min.Mul(ts), t.region.Size().Mul(ts)).Intersects(e.bounds(ts))
}

// checkTriggers fires each trigger e has just entered and re-arms the ones
// it has left.
func (m *Map) checkTriggers(e *Entity) {
	ts := m.tilemap.TileSize()
	for _, t := range m.triggers {
		if !t.overlaps(e, ts) {
			delete(t.inside, e.id)
			continue
		}
		if t.inside[e.id] {
			continue
		}
		t.inside[e.id] = true
		m.fire(t, e)
	}
}

func (m *Map) fire(t *trigger, e *Entity) {
	for _, line := range t.speech {
		m.AddSpeech(line)
	}
	if t.exit != nil && e == m.focus {
		m.ChangeMap(t.exit.Map, image.Pt(t.exit.X, t.exit.Y), t.exit.Dir)
	}
	if t.script != nil {
		if err := t.run(m, e); err != nil {
			log.Printf("world: map %s trigger %s script error: %v", m.name, t.id, err)
		}
	}
}

func (t *trigger) run(m *Map, e *Entity) error {
	addSpeech := &tengo.UserFunction{Name: "add_speech", Value: func(args ...tengo.Object) (tengo.Object, error) {
		for _, a := range args {
			s, ok := tengo.ToString(a)
			if !ok {
				return nil, tengo.ErrInvalidArgumentType{Name: "text", Expected: "string", Found: a.TypeName()}
			}
			m.AddSpeech(s)
		}
		return tengo.UndefinedValue, nil
	}}

	changeMap := &tengo.UserFunction{Name: "change_map", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return nil, tengo.ErrWrongNumArguments
		}
		name, ok := tengo.ToString(args[0])
		if !ok {
			return nil, tengo.ErrInvalidArgumentType{Name: "name", Expected: "string", Found: args[0].TypeName()}
		}
		x, okX := tengo.ToInt(args[1])
		y, okY := tengo.ToInt(args[2])
		if !okX || !okY {
			return nil, tengo.ErrInvalidArgumentType{Name: "position", Expected: "int", Found: args[1].TypeName()}
		}
		dir := e.Direction()
		if len(args) > 3 {
			s, _ := tengo.ToString(args[3])
			d, err := common.ParseDirection(s)
			if err != nil {
				return nil, err
			}
			dir = d
		}
		m.ChangeMap(name, image.Pt(x, y), dir)
		return tengo.TrueValue, nil
	}}

	values := map[string]any{
		"add_speech":  addSpeech,
		"change_map":  changeMap,
		"entity_id":   e.id,
		"entity_name": e.Name,
		"entity_x":    e.pos.X,
		"entity_y":    e.pos.Y,
		"map_name":    m.name,
	}
	for name, v := range values {
		if err := t.script.Set(name, v); err != nil {
			return err
		}
	}
	return t.script.Run()
}
