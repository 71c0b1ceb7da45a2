package cpu

import (
	"github.com/retroenv/retrochip8/internal/input"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/log"
)

// executeE handles the key state skip instructions.
func (c *CPU) executeE(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}

	key := c.v[x]
	if key >= input.KeyCount {
		c.logger.Warn("Invalid key", log.Hex("key", key))
		return ignored
	}

	switch opcode & 0x00FF {
	case 0x9E: // SKP Vx
		c.skipIf(c.input.IsKeyPressed(key))
	case 0xA1: // SKNP Vx
		c.skipIf(!c.input.IsKeyPressed(key))
	default:
		c.logger.Warn("Unknown key instruction", log.Hex("opcode", opcode))
		return rejected
	}
	return applied
}

// executeF handles the timer, key wait, index register and memory transfer instructions.
func (c *CPU) executeF(opcode uint16) status {
	x := registerX(opcode)
	if !validRegister(x) {
		return rejected
	}

	switch opcode & 0x00FF {
	case 0x07: // LD Vx, DT
		c.v[x] = c.delayTimer
	case 0x0A: // LD Vx, K
		return c.waitKey(x)
	case 0x15: // LD DT, Vx
		c.delayTimer = c.v[x]
	case 0x18: // LD ST, Vx
		c.soundTimer = c.v[x]
	case 0x1E: // ADD I, Vx
		c.addIndex(x)
	case 0x29: // LD F, Vx
		c.i = c.memory.FontAddress(c.v[x] & 0x0F)
	case 0x33: // LD B, Vx
		return c.storeBCD(x)
	case 0x55: // LD [I], Vx
		return c.storeRegisters(x)
	case 0x65: // LD Vx, [I]
		return c.loadRegisters(x)
	default:
		c.logger.Warn("Unknown misc instruction", log.Hex("opcode", opcode))
		return rejected
	}
	return applied
}

// waitKey consumes the latched key press. Without a latched key the program
// counter is rewound so that the instruction repeats in the next cycle.
func (c *CPU) waitKey(x int) status {
	key, ok := c.input.KeyPressed()
	if !ok {
		c.pc -= 2
		return waiting
	}

	c.v[x] = key
	return applied
}

func (c *CPU) addIndex(x int) {
	sum := c.i + uint16(c.v[x])
	if int(sum) >= memory.Size {
		c.logger.Debug("Index register overflow wrapped",
			log.Hex("i", c.i),
			log.Hex("vx", c.v[x]))
	}
	c.i = sum & 0x0FFF
}

func (c *CPU) storeBCD(x int) status {
	if int(c.i)+2 >= memory.Size {
		c.logger.Warn("BCD store exceeds memory", log.Hex("i", c.i))
		return rejected
	}

	value := c.v[x]
	c.memory.Write(c.i, value/100)
	c.memory.Write(c.i+1, value/10%10)
	c.memory.Write(c.i+2, value%10)
	return applied
}

func (c *CPU) storeRegisters(x int) status {
	if int(c.i)+x >= memory.Size {
		c.logger.Warn("Register store exceeds memory",
			log.Hex("i", c.i),
			log.Int("registers", x+1))
		return rejected
	}

	for reg := 0; reg <= x; reg++ {
		c.memory.Write(c.i+uint16(reg), c.v[reg])
	}
	return applied
}

func (c *CPU) loadRegisters(x int) status {
	if int(c.i)+x >= memory.Size {
		c.logger.Warn("Register load exceeds memory",
			log.Hex("i", c.i),
			log.Int("registers", x+1))
		return rejected
	}

	for reg := 0; reg <= x; reg++ {
		c.v[reg] = c.memory.Read(c.i + uint16(reg))
	}
	return applied
}
