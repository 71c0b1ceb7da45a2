// Package emulator wraps a CHIP-8 CPU into a session that can be started,
// stopped and driven at a fixed frame rate by a host frontend.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retroenv/retrochip8/internal/cpu"
	"github.com/retroenv/retrogolib/log"
)

// ErrHalted is returned by Run when the program halted the machine.
var ErrHalted = errors.New("program halted")

// Config contains the emulator options.
type Config struct {
	CyclesPerFrame int // instructions executed per frame
	FrameRate      int // frames per second, also the timer rate
	CPU            cpu.Config
}

// DefaultConfig returns the default configuration, 600 instructions per
// second at 60 frames per second.
func DefaultConfig() Config {
	return Config{
		CyclesPerFrame: 10,
		FrameRate:      60,
	}
}

// KeyEvent is a key press or release of the 16 key pad.
type KeyEvent struct {
	Key  byte
	Down bool
}

// Frontend is the host side of a session: it delivers key events, displays
// frames and plays the tone.
type Frontend interface {
	// Events returns the key event channel. Closing it ends the session.
	Events() <-chan KeyEvent
	// Render displays a framebuffer of one byte per pixel, 0 or 255.
	Render(buffer []byte) error
	// SetTone starts or stops the tone.
	SetTone(on bool)
}

// Emulator is a CHIP-8 session. It is not safe for concurrent use, all
// methods are expected to be called from the goroutine that calls Run.
type Emulator struct {
	logger  *log.Logger
	config  Config
	cpu     *cpu.CPU
	running bool
}

// New returns a new stopped emulator.
func New(logger *log.Logger, config Config) *Emulator {
	defaults := DefaultConfig()
	if config.CyclesPerFrame <= 0 {
		config.CyclesPerFrame = defaults.CyclesPerFrame
	}
	if config.FrameRate <= 0 {
		config.FrameRate = defaults.FrameRate
	}

	return &Emulator{
		logger: logger,
		config: config,
		cpu:    cpu.New(logger, config.CPU),
	}
}

// LoadROM loads a program into the machine.
func (e *Emulator) LoadROM(data []byte) error {
	if err := e.cpu.LoadROM(data); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	return nil
}

// Start enables instruction execution.
func (e *Emulator) Start() {
	e.running = true
}

// Stop disables instruction execution.
func (e *Emulator) Stop() {
	e.running = false
}

// Reset stops the session and resets the machine.
func (e *Emulator) Reset() {
	e.cpu.Reset()
	e.running = false
}

// Running returns whether the session is started and the machine is healthy.
func (e *Emulator) Running() bool {
	return e.running && e.cpu.Running()
}

// Step executes a single cycle if the session is started.
func (e *Emulator) Step() {
	if e.running {
		e.cpu.Cycle()
	}
}

// KeyDown presses a key.
func (e *Emulator) KeyDown(key byte) {
	e.cpu.KeyDown(key)
}

// KeyUp releases a key.
func (e *Emulator) KeyUp(key byte) {
	e.cpu.KeyUp(key)
}

// DisplayBuffer returns the current framebuffer.
func (e *Emulator) DisplayBuffer() []byte {
	return e.cpu.DisplayBuffer()
}

// State returns a snapshot of the machine registers.
func (e *Emulator) State() cpu.State {
	return e.cpu.State()
}

// Stats returns a one line summary of the execution state.
func (e *Emulator) Stats() string {
	return e.cpu.Stats()
}

// DebugInfo returns a one line register dump.
func (e *Emulator) DebugInfo() string {
	return e.cpu.DebugInfo()
}

// MemoryDump returns a hex dump of the given memory range.
func (e *Emulator) MemoryDump(start, length uint16) string {
	return e.cpu.MemoryDump(start, length)
}

// Screen returns a text rendering of the display.
func (e *Emulator) Screen() string {
	return e.cpu.Screen()
}

// Run starts the session and drives it until the context is canceled, the
// program halts or the frontend closes its event channel.
func (e *Emulator) Run(ctx context.Context, frontend Frontend) error {
	e.Start()
	defer e.Stop()

	ticker := time.NewTicker(time.Second / time.Duration(e.config.FrameRate))
	defer ticker.Stop()

	events := frontend.Events()
	f := frame{healthy: true}

	e.logger.Debug("Session started",
		log.Int("cycles_per_frame", e.config.CyclesPerFrame),
		log.Int("frame_rate", e.config.FrameRate))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				e.logger.Debug("Frontend closed the session")
				return nil
			}
			e.applyKey(event)

		case <-ticker.C:
			if err := e.runFrame(frontend, &f); err != nil {
				return err
			}
			if e.cpu.Halted() {
				return ErrHalted
			}
		}
	}
}

// frame holds the state carried between frames.
type frame struct {
	tone    bool
	healthy bool
}

// runFrame executes the cycles of one frame. The tone is on for the frame if
// it was requested in any of its cycles.
func (e *Emulator) runFrame(frontend Frontend, f *frame) error {
	tone := false
	for range e.config.CyclesPerFrame {
		e.Step()
		tone = tone || e.cpu.ToneActive()
	}

	if e.cpu.ConsumeRedraw() {
		if err := frontend.Render(e.cpu.DisplayBuffer()); err != nil {
			return fmt.Errorf("rendering frame: %w", err)
		}
	}

	if tone != f.tone {
		f.tone = tone
		frontend.SetTone(tone)
	}

	if healthy := e.cpu.Healthy(); healthy != f.healthy {
		f.healthy = healthy
		if !healthy {
			e.logger.Warn("Machine is unhealthy", log.String("stats", e.cpu.Stats()))
		}
	}
	return nil
}

func (e *Emulator) applyKey(event KeyEvent) {
	if event.Down {
		e.cpu.KeyDown(event.Key)
	} else {
		e.cpu.KeyUp(event.Key)
	}
}
