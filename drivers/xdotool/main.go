// Package main provides an X11 cursor driver built on xdotool.
// It reads one JSON state per line on stdin and replies with one JSON line.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// Request is one cursor state from the tracker.
type Request struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Buttons uint16   `json:"buttons"`
	Press   []string `json:"press,omitempty"`
	Release []string `json:"release,omitempty"`
}

// Response is the reply written for each request.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// xButtons maps button names to X11 button numbers.
var xButtons = map[string]string{
	"left":   "1",
	"middle": "2",
	"right":  "3",
}

func main() {
	in := bufio.NewScanner(os.Stdin)
	out := json.NewEncoder(os.Stdout)

	for in.Scan() {
		var req Request
		if err := json.Unmarshal(in.Bytes(), &req); err != nil {
			out.Encode(Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
			continue
		}

		if err := apply(req); err != nil {
			out.Encode(Response{Error: err.Error()})
			continue
		}
		out.Encode(Response{Success: true})
	}
}

// apply moves the pointer when the position is set, then releases and
// presses the changed buttons.
func apply(req Request) error {
	var args []string
	if req.X >= 0 && req.Y >= 0 {
		args = append(args, "mousemove", strconv.Itoa(req.X), strconv.Itoa(req.Y))
	}
	for _, name := range req.Release {
		b, ok := xButtons[name]
		if !ok {
			return fmt.Errorf("unknown button: %s", name)
		}
		args = append(args, "mouseup", b)
	}
	for _, name := range req.Press {
		b, ok := xButtons[name]
		if !ok {
			return fmt.Errorf("unknown button: %s", name)
		}
		args = append(args, "mousedown", b)
	}
	if len(args) == 0 {
		return nil
	}
	return runXdotool(args...)
}

// runXdotool executes xdotool and returns any error with its output.
func runXdotool(args ...string) error {
	cmd := exec.Command("xdotool", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("xdotool %v: %w: %s", args, err, string(output))
	}
	return nil
}
