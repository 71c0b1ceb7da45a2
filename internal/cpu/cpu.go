// Package cpu implements the CHIP-8 interpreter: registers, stack, timers and
// the fetch, decode and execute cycle.
//
// # Error Handling
//
// A malformed or adversarial program must not be able to crash the host. No
// instruction panics or returns an error; invalid conditions either correct
// the state or reject the instruction and increment a soft error counter.
// Once the counter reaches MaxErrors the machine halts. A halted machine
// ignores further cycles until it is reset or a new program is loaded.
package cpu

import (
	"math/rand/v2"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/input"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/log"
)

const (
	// RegisterCount is the number of general purpose registers V0-VF.
	RegisterCount = 16

	// StackSize is the maximum depth of the call stack.
	StackSize = 16

	// MaxErrors is the number of soft errors after which the machine halts.
	MaxErrors = 10

	// healthyErrorLimit is the number of soft errors from which on the
	// machine is no longer reported as healthy.
	healthyErrorLimit = 5

	flagRegister = 0xF

	// haltOpcode is synthesized when the program counter can not be fetched from.
	haltOpcode = 0x1000 | memory.ProgramStart
)

// Config contains the CPU options.
type Config struct {
	Seed  uint64 // seed of the pseudo random generator used by RND
	Trace bool   // log every executed instruction at debug level
}

// CPU is a CHIP-8 interpreter instance. It exclusively owns its memory,
// display and input.
type CPU struct {
	logger *log.Logger
	config Config

	memory  *memory.Memory
	display *display.Display
	input   *input.Input
	rng     *rand.Rand

	v  [RegisterCount]byte
	i  uint16
	pc uint16
	sp uint8

	stack [StackSize]uint16

	delayTimer byte
	soundTimer byte

	redraw  bool
	tone    bool
	halted  bool
	waiting bool

	errors int
	cycles uint64
}

// New returns a new CPU in its reset state.
func New(logger *log.Logger, config Config) *CPU {
	c := &CPU{
		logger:  logger,
		config:  config,
		memory:  memory.New(logger),
		display: display.New(),
		input:   input.New(),
	}
	c.Reset()
	return c
}

// Reset restores the initial machine state. The memory is cleared and the
// glyph table rewritten, the pseudo random generator is reseeded.
func (c *CPU) Reset() {
	c.v = [RegisterCount]byte{}
	c.i = 0
	c.pc = memory.ProgramStart
	c.sp = 0
	c.stack = [StackSize]uint16{}

	c.delayTimer = 0
	c.soundTimer = 0

	c.memory.Clear()
	c.memory.LoadFontset()
	c.display.Clear()
	c.input.Clear()
	c.rng = rand.New(rand.NewPCG(c.config.Seed, c.config.Seed>>32|c.config.Seed<<32))

	c.redraw = false
	c.tone = false
	c.halted = false
	c.waiting = false
	c.errors = 0
	c.cycles = 0
}

// LoadROM resets the machine and loads the program into the program region.
// An empty or oversized program is rejected and leaves the machine untouched.
func (c *CPU) LoadROM(data []byte) error {
	if err := memory.ValidateROM(data); err != nil {
		return err
	}

	c.Reset()
	if err := c.memory.LoadROM(data); err != nil {
		return err
	}

	c.redraw = true
	c.logger.Debug("Program loaded", log.Int("size", len(data)))
	return nil
}

// KeyDown marks a key of the 16 key pad as pressed.
func (c *CPU) KeyDown(key byte) {
	c.input.KeyDown(key)
}

// KeyUp marks a key of the 16 key pad as released.
func (c *CPU) KeyUp(key byte) {
	c.input.KeyUp(key)
}

// Halted returns whether the machine stopped executing instructions.
func (c *CPU) Halted() bool {
	return c.halted
}

// Healthy returns false if the machine halted, accumulated several soft errors
// or has a full call stack.
func (c *CPU) Healthy() bool {
	return !c.halted && c.errors < healthyErrorLimit && c.sp < StackSize
}

// Running returns whether the machine is executing instructions and healthy.
func (c *CPU) Running() bool {
	return !c.halted && c.Healthy()
}

// Waiting returns whether the last cycle was blocked waiting for a key press.
func (c *CPU) Waiting() bool {
	return c.waiting
}

// CycleCount returns the number of executed cycles since the last reset.
func (c *CPU) CycleCount() uint64 {
	return c.cycles
}

// ErrorCount returns the number of soft errors since the last reset.
func (c *CPU) ErrorCount() int {
	return c.errors
}

// ToneActive returns whether a tone was requested in the last cycle.
func (c *CPU) ToneActive() bool {
	return c.tone
}

// NeedsRedraw returns whether the display changed since the redraw flag was
// last consumed.
func (c *CPU) NeedsRedraw() bool {
	return c.redraw
}

// ConsumeRedraw returns the redraw flag and clears it.
func (c *CPU) ConsumeRedraw() bool {
	redraw := c.redraw
	c.redraw = false
	return redraw
}

// DisplayBuffer returns the framebuffer, one byte per pixel with values 0 or 255.
func (c *CPU) DisplayBuffer() []byte {
	return c.display.Buffer()
}

// ActivePixels returns the number of pixels that are on.
func (c *CPU) ActivePixels() int {
	return c.display.ActivePixels()
}

func (c *CPU) halt(reason string) {
	if c.halted {
		return
	}
	c.halted = true
	c.logger.Info("CPU halted",
		log.String("reason", reason),
		log.Hex("pc", c.pc),
		log.Int("errors", c.errors))
}
