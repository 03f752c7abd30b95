package mouse

import (
	"image"
	"sync"

	"github.com/go-vgo/robotgo"
)

var robotgoButtons = []struct {
	b    Button
	name string
}{
	{LeftDown, "left"},
	{RightDown, "right"},
	{MiddleDown, "center"},
}

// Robotgo drives the local pointer through robotgo.
type Robotgo struct {
	mu      sync.Mutex
	buttons Button
}

// NewRobotgo returns a driver for the local display.
func NewRobotgo() *Robotgo {
	return &Robotgo{}
}

// Apply moves the pointer and toggles only the buttons that changed.
func (d *Robotgo) Apply(s State) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Pos.X >= 0 && s.Pos.Y >= 0 {
		robotgo.Move(s.Pos.X, s.Pos.Y)
	}

	t := Diff(d.buttons, s.Buttons)
	for _, rb := range robotgoButtons {
		switch {
		case t.Pressed.Has(rb.b):
			robotgo.Toggle(rb.name)
		case t.Released.Has(rb.b):
			robotgo.Toggle(rb.name, "up")
		}
	}
	d.buttons = s.Buttons
	return nil
}

// Close releases any buttons still held.
func (d *Robotgo) Close() error {
	d.mu.Lock()
	held := d.buttons
	d.mu.Unlock()

	if held == None {
		return nil
	}
	return d.Apply(State{Buttons: None, Pos: image.Pt(-1, -1)})
}

// ScreenSize returns the size of the main display.
func ScreenSize() image.Point {
	w, h := robotgo.GetScreenSize()
	return image.Pt(w, h)
}
