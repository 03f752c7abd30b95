// Package driver discovers external cursor drivers and runs them as long-lived
// processes that implement mouse.Driver.
package driver

import "github.com/ayusman/mudra/internal/mouse"

// Manifest describes a driver's metadata and how to start it.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Args        []string `json:"args,omitempty"`
}

// Request is one cursor state sent to a driver as a single JSON line.
type Request struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Buttons uint16   `json:"buttons"`
	Press   []string `json:"press,omitempty"`
	Release []string `json:"release,omitempty"`
}

// Response is the driver's single-line reply to a Request.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Driver is a discovered driver with its manifest and location.
type Driver struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// NewRequest builds the request that moves a driver from prev to next.
func NewRequest(prev, next mouse.State) Request {
	tr := mouse.Diff(prev.Buttons, next.Buttons)
	return Request{
		X:       next.Pos.X,
		Y:       next.Pos.Y,
		Buttons: uint16(next.Buttons),
		Press:   buttonNames(tr.Pressed),
		Release: buttonNames(tr.Released),
	}
}

func buttonNames(b mouse.Button) []string {
	var names []string
	if b.Has(mouse.LeftDown) {
		names = append(names, "left")
	}
	if b.Has(mouse.RightDown) {
		names = append(names, "right")
	}
	if b.Has(mouse.MiddleDown) {
		names = append(names, "middle")
	}
	return names
}
