package cpu

import (
	"github.com/retroenv/retrochip8/internal/disasm"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/log"
)

// status is the outcome of executing a single instruction.
type status uint8

const (
	applied   status = iota // executed normally
	corrected               // executed after correcting invalid state, counts as soft error
	rejected                // not executed, counts as soft error
	ignored                 // not executed, not an error
	waiting                 // no forward progress, the instruction repeats next cycle
	stopped                 // the instruction halted the machine
)

type handler func(c *CPU, opcode uint16) status

// handlers maps the top nibble of an instruction to its opcode family.
var handlers = [16]handler{
	0x0: (*CPU).execute0,
	0x1: (*CPU).jump,
	0x2: (*CPU).call,
	0x3: (*CPU).skipEqualByte,
	0x4: (*CPU).skipNotEqualByte,
	0x5: (*CPU).skipEqualRegister,
	0x6: (*CPU).loadByte,
	0x7: (*CPU).addByte,
	0x8: (*CPU).execute8,
	0x9: (*CPU).skipNotEqualRegister,
	0xA: (*CPU).loadIndex,
	0xB: (*CPU).jumpOffset,
	0xC: (*CPU).random,
	0xD: (*CPU).draw,
	0xE: (*CPU).executeE,
	0xF: (*CPU).executeF,
}

// Cycle executes a single instruction and updates the timers.
// It does nothing if the machine is halted.
func (c *CPU) Cycle() {
	if c.halted {
		return
	}
	if c.errors >= MaxErrors {
		c.halt("too many errors")
		return
	}

	c.cycles++

	if !c.validatePC() {
		return
	}

	pc := c.pc
	opcode := c.fetch()
	if c.config.Trace {
		c.logger.Debug("Execute",
			log.Hex("pc", pc),
			log.Hex("opcode", opcode),
			log.String("instruction", disasm.Format(opcode)))
	}

	c.record(c.execute(opcode))
	c.updateTimers()
}

// validatePC corrects a program counter that is outside of the program region
// or not word aligned. A correction counts as soft error and aborts the cycle.
func (c *CPU) validatePC() bool {
	switch {
	case c.pc < memory.ProgramStart || int(c.pc) >= memory.Size:
		c.logger.Warn("Program counter out of program region, resetting",
			log.Hex("pc", c.pc))
		c.pc = memory.ProgramStart

	case c.pc%2 != 0:
		c.logger.Warn("Program counter not word aligned, aligning",
			log.Hex("pc", c.pc))
		c.pc &^= 1

	default:
		return true
	}

	c.errors++
	return false
}

// fetch reads the big-endian instruction word at the program counter and
// advances the program counter. If the word would extend past the address
// space the machine halts and a jump to the program start is returned.
func (c *CPU) fetch() uint16 {
	if int(c.pc)+1 >= memory.Size {
		c.errors++
		c.halt("fetch beyond end of memory")
		return haltOpcode
	}

	high := uint16(c.memory.Read(c.pc))
	low := uint16(c.memory.Read(c.pc + 1))
	c.pc += 2
	return high<<8 | low
}

func (c *CPU) execute(opcode uint16) status {
	h := handlers[opcode>>12]
	if h == nil {
		c.logger.Warn("Unknown instruction", log.Hex("opcode", opcode))
		return rejected
	}
	return h(c, opcode)
}

// record aggregates the instruction status into the soft error counter.
func (c *CPU) record(s status) {
	c.waiting = s == waiting
	if s == corrected || s == rejected {
		c.errors++
	}
}

// updateTimers decrements both timers towards zero. A tone is requested for
// every cycle in which the sound timer is not zero.
func (c *CPU) updateTimers() {
	if c.delayTimer > 0 {
		c.delayTimer--
	}

	c.tone = c.soundTimer > 0
	if c.soundTimer > 0 {
		c.soundTimer--
	}
}

// isValidProgramAddress returns whether the address is a word aligned address
// inside of the program region.
func isValidProgramAddress(address uint16) bool {
	return address >= memory.ProgramStart && int(address) < memory.Size && address%2 == 0
}

// registerX extracts the X register nibble from a CHIP-8 opcode.
func registerX(opcode uint16) int {
	return int(opcode&0x0F00) >> 8
}

// registerY extracts the Y register nibble from a CHIP-8 opcode.
func registerY(opcode uint16) int {
	return int(opcode&0x00F0) >> 4
}

func validRegister(index int) bool {
	return index >= 0 && index < RegisterCount
}
