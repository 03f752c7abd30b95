package driver

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ayusman/mudra/internal/mouse"
)

var (
	// ErrClosed is returned by Apply after Close.
	ErrClosed = errors.New("driver closed")
	// ErrTimeout is returned when a driver does not reply in time.
	ErrTimeout = errors.New("driver timeout")
	// ErrExited is returned when a driver process exits while in use.
	ErrExited = errors.New("driver exited")
	// ErrRejected is returned when a driver replies with success=false.
	ErrRejected = errors.New("driver rejected state")
)

// DefaultTimeout bounds how long Apply waits for a reply.
const DefaultTimeout = 2 * time.Second

// Process is a mouse.Driver backed by a long-lived driver process. The
// process is started on the first Apply and restarted after it dies.
type Process struct {
	drv     *Driver
	timeout time.Duration

	mu     sync.Mutex
	run    *run
	prev   mouse.State
	closed bool
}

// run is one started driver process.
type run struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan []byte
	done  chan struct{}
}

// NewProcess returns a Process for d. A non-positive timeout uses
// DefaultTimeout.
func NewProcess(d *Driver, timeout time.Duration) *Process {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Process{
		drv:     d,
		timeout: timeout,
		prev:    mouse.NewState(),
	}
}

// Name returns the driver name.
func (p *Process) Name() string {
	return p.drv.Manifest.Name
}

// Apply sends s to the driver and waits for its reply. Button presses and
// releases are computed against the last state the driver accepted.
func (p *Process) Apply(s mouse.State) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if err := p.send(s); err != nil {
		return err
	}
	p.prev = s
	return nil
}

// Close releases any held buttons and stops the process.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.run == nil {
		return nil
	}
	if p.prev.Buttons != mouse.None {
		if err := p.send(mouse.State{Pos: p.prev.Pos}); err != nil {
			log.Printf("Failed to release buttons on driver %s: %v", p.Name(), err)
		}
	}
	if p.run == nil {
		return nil
	}
	return p.stop(false)
}

func (p *Process) send(s mouse.State) error {
	if err := p.start(); err != nil {
		return err
	}

	data, err := json.Marshal(NewRequest(p.prev, s))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	data = append(data, '\n')

	if _, err := p.run.stdin.Write(data); err != nil {
		p.stop(true)
		return fmt.Errorf("%w: %s: write failed: %v", ErrExited, p.Name(), err)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case line, ok := <-p.run.lines:
		if !ok {
			p.stop(false)
			return fmt.Errorf("%w: %s", ErrExited, p.Name())
		}
		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			return fmt.Errorf("failed to parse driver response: %w, stdout: %s", err, line)
		}
		if !resp.Success {
			return fmt.Errorf("%w: %s", ErrRejected, resp.Error)
		}
		return nil
	case <-timer.C:
		p.stop(true)
		return fmt.Errorf("%w: %s after %v", ErrTimeout, p.Name(), p.timeout)
	}
}

func (p *Process) start() error {
	if p.run != nil {
		return nil
	}

	cmd := exec.Command(p.drv.Executable, p.drv.Manifest.Args...)
	cmd.Dir = p.drv.Path
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("driver %s stdin: %w", p.Name(), err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("driver %s stdout: %w", p.Name(), err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start driver %s: %w", p.Name(), err)
	}

	r := &run{
		cmd:   cmd,
		stdin: stdin,
		lines: make(chan []byte),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(r.lines)
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case r.lines <- line:
			case <-r.done:
				return
			}
		}
	}()

	p.run = r
	log.Printf("Started driver %s (pid %d)", p.Name(), cmd.Process.Pid)
	return nil
}

// stop closes stdin and waits for the process to exit, killing it when kill
// is set or when it outlives the timeout.
func (p *Process) stop(kill bool) error {
	r := p.run
	p.run = nil

	r.stdin.Close()
	close(r.done)
	if kill {
		r.cmd.Process.Kill()
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- r.cmd.Wait() }()

	var err error
	select {
	case err = <-waitErr:
	case <-time.After(p.timeout):
		r.cmd.Process.Kill()
		err = <-waitErr
	}

	if kill || err == nil {
		return nil
	}
	return fmt.Errorf("driver %s: %w", p.Name(), err)
}

var _ mouse.Driver = (*Process)(nil)
