// Package mouse models the cursor state produced by the tracker and the
// drivers that apply it to the operating system.
package mouse

import (
	"fmt"
	"image"
	"strings"
)

// Button is a bitmask of pressed buttons.
type Button uint16

// Button flags. They can be OR'd together.
const (
	None       Button = 0
	LeftDown   Button = 1 << 0
	RightDown  Button = 1 << 1
	MiddleDown Button = 1 << 2
)

// Has reports whether every flag in b is set.
func (m Button) Has(b Button) bool {
	return m&b == b
}

func (m Button) String() string {
	if m == None {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		b    Button
		name string
	}{
		{LeftDown, "left"},
		{RightDown, "right"},
		{MiddleDown, "middle"},
	} {
		if m.Has(f.b) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "+")
}

// State is a button mask and a cursor position in screen coordinates.
type State struct {
	Buttons Button
	Pos     image.Point
}

// NewState returns a state with no buttons pressed and an unset position (-1, -1).
func NewState() State {
	return State{Pos: image.Pt(-1, -1)}
}

func (s State) String() string {
	return fmt.Sprintf("%s@%d,%d", s.Buttons, s.Pos.X, s.Pos.Y)
}

// Driver applies cursor states to a pointer device.
type Driver interface {
	// Apply moves the pointer to s.Pos and presses or releases buttons so the
	// device matches s.Buttons.
	Apply(s State) error

	// Close releases any resources held by the driver.
	Close() error
}

// Transition describes which buttons changed between two states.
type Transition struct {
	Pressed  Button
	Released Button
}

// Diff returns the buttons pressed and released going from prev to next.
func Diff(prev, next Button) Transition {
	return Transition{
		Pressed:  next &^ prev,
		Released: prev &^ next,
	}
}
