package cpu

import (
	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/log"
)

// execute0 handles CLS, RET, the halt instruction and ignores SYS calls.
func (c *CPU) execute0(opcode uint16) status {
	switch opcode {
	case 0x00E0:
		c.display.Clear()
		c.redraw = true
		return applied

	case 0x00EE:
		return c.ret()

	case 0x0000:
		c.halt("halt instruction")
		return stopped

	default:
		// SYS calls to native machine code are not supported
		return ignored
	}
}

func (c *CPU) ret() status {
	if c.sp == 0 {
		c.halt("stack underflow")
		return stopped
	}

	c.sp--
	c.pc = c.stack[c.sp]
	if !isValidProgramAddress(c.pc) {
		c.halt("invalid return address")
		return stopped
	}
	return applied
}

func (c *CPU) jump(opcode uint16) status {
	address := opcode & 0x0FFF
	if !isValidProgramAddress(address) {
		c.logger.Warn("Invalid jump target", log.Hex("target", address))
		return rejected
	}

	c.pc = address
	return applied
}

func (c *CPU) call(opcode uint16) status {
	address := opcode & 0x0FFF
	if !isValidProgramAddress(address) {
		c.logger.Warn("Invalid call target", log.Hex("target", address))
		return rejected
	}
	if c.sp >= StackSize {
		c.logger.Warn("Stack overflow", log.Hex("target", address))
		return rejected
	}

	c.stack[c.sp] = c.pc
	c.sp++
	c.pc = address
	return applied
}

func (c *CPU) skipEqualByte(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}
	c.skipIf(c.v[x] == byte(opcode))
	return applied
}

func (c *CPU) skipNotEqualByte(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}
	c.skipIf(c.v[x] != byte(opcode))
	return applied
}

func (c *CPU) skipEqualRegister(opcode uint16) status {
	x, y := registerX(opcode), registerY(opcode)
	if !validRegister(x) || !validRegister(y) {
		return rejected
	}
	c.skipIf(c.v[x] == c.v[y])
	return applied
}

func (c *CPU) skipNotEqualRegister(opcode uint16) status {
	x, y := registerX(opcode), registerY(opcode)
	if !validRegister(x) || !validRegister(y) {
		return rejected
	}
	c.skipIf(c.v[x] != c.v[y])
	return applied
}

func (c *CPU) skipIf(condition bool) {
	if condition {
		c.pc += 2
	}
}

func (c *CPU) loadByte(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}
	c.v[x] = byte(opcode)
	return applied
}

func (c *CPU) addByte(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}
	c.v[x] += byte(opcode)
	return applied
}

// loadIndex sets I, the whole address space including the glyph table is a
// valid target.
func (c *CPU) loadIndex(opcode uint16) status {
	c.i = opcode & 0x0FFF
	return applied
}

func (c *CPU) jumpOffset(opcode uint16) status {
	target := uint16(c.v[0]) + opcode&0x0FFF
	if !isValidProgramAddress(target) {
		c.logger.Warn("Invalid jump target",
			log.Hex("v0", c.v[0]),
			log.Hex("target", target))
		return rejected
	}

	c.pc = target
	return applied
}

func (c *CPU) random(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}
	c.v[x] = byte(c.rng.Uint32()) & byte(opcode)
	return applied
}

// draw composites n sprite rows read from I at the position (Vx, Vy) and sets
// VF to the collision flag.
func (c *CPU) draw(opcode uint16) status {
	x, y := registerX(opcode), registerY(opcode)
	if !validRegister(x) || !validRegister(y) {
		return rejected
	}

	n := int(opcode & 0x000F)
	if n == 0 {
		c.logger.Debug("Draw with zero rows ignored", log.Hex("pc", c.pc-2))
		return ignored
	}
	if int(c.i)+n > memory.Size {
		c.logger.Warn("Sprite data exceeds memory",
			log.Hex("i", c.i),
			log.Int("rows", n))
		return rejected
	}

	rows := c.memory.ReadBytes(c.i, uint8(n))
	collision := c.display.DrawSprite(int(c.v[x])%display.Width, int(c.v[y])%display.Height, rows)
	c.v[flagRegister] = boolToByte(collision)
	c.redraw = true
	return applied
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
