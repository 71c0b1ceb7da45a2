package cpu

import (
	"fmt"

	"github.com/retroenv/retrochip8/internal/disasm"
)

// State is a snapshot of the machine registers for diagnostics.
type State struct {
	V          [RegisterCount]byte
	I          uint16
	PC         uint16
	SP         uint8
	Stack      [StackSize]uint16
	DelayTimer byte
	SoundTimer byte
	Cycles     uint64
	Errors     int
	Halted     bool
	Waiting    bool
}

// State returns a snapshot of the current machine state.
func (c *CPU) State() State {
	return State{
		V:          c.v,
		I:          c.i,
		PC:         c.pc,
		SP:         c.sp,
		Stack:      c.stack,
		DelayTimer: c.delayTimer,
		SoundTimer: c.soundTimer,
		Cycles:     c.cycles,
		Errors:     c.errors,
		Halted:     c.halted,
		Waiting:    c.waiting,
	}
}

// DebugInfo returns a one line dump of the registers, timers and the
// instruction at the program counter. Conditional skips are marked.
func (c *CPU) DebugInfo() string {
	next := uint16(c.memory.Inspect(c.pc))<<8 | uint16(c.memory.Inspect(c.pc+1))
	instruction := disasm.Format(next)
	if disasm.IsSkip(next) {
		instruction += " (conditional skip)"
	}
	return fmt.Sprintf("PC: $%04X | I: $%04X | SP: %d | DT: %d | ST: %d | V: % X | Cycles: %d | Errors: %d | Next: %s",
		c.pc, c.i, c.sp, c.delayTimer, c.soundTimer, c.v[:], c.cycles, c.errors, instruction)
}

// Stats returns a one line summary of the execution state.
func (c *CPU) Stats() string {
	return fmt.Sprintf("Cycles: %d | Errors: %d | Halted: %t | Stack: %d/%d | %s",
		c.cycles, c.errors, c.halted, c.sp, StackSize, c.memory.Stats())
}

// MemoryDump returns a hex dump of length bytes of memory starting at start.
func (c *CPU) MemoryDump(start, length uint16) string {
	return c.memory.HexDump(start, length)
}

// Screen returns a text rendering of the display.
func (c *CPU) Screen() string {
	return c.display.String()
}
