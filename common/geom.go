package common

import (
	"fmt"
	"image"
	"strings"
)

// Vec is a position in screen or world pixels.
type Vec struct {
	X, Y float32
}

func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// VecFromPoint converts an integer point into a Vec.
func VecFromPoint(p image.Point) Vec {
	return Vec{X: float32(p.X), Y: float32(p.Y)}
}

// Direction is the facing of a map entity.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionUp
	DirectionRight
	DirectionDown
	DirectionLeft
)

func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionRight:
		return "right"
	case DirectionDown:
		return "down"
	case DirectionLeft:
		return "left"
	}
	return "none"
}

// Delta returns the one-tile step for d.
func (d Direction) Delta() image.Point {
	switch d {
	case DirectionUp:
		return image.Pt(0, -1)
	case DirectionRight:
		return image.Pt(1, 0)
	case DirectionDown:
		return image.Pt(0, 1)
	case DirectionLeft:
		return image.Pt(-1, 0)
	}
	return image.Point{}
}

// ParseDirection accepts the names produced by String, case-insensitively.
// An empty string parses as DirectionNone.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DirectionNone, nil
	case "up", "north":
		return DirectionUp, nil
	case "right", "east":
		return DirectionRight, nil
	case "down", "south":
		return DirectionDown, nil
	case "left", "west":
		return DirectionLeft, nil
	}
	return DirectionNone, fmt.Errorf("unknown direction %q", s)
}

// UnmarshalText lets directions be written by name in YAML and JSON files.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
