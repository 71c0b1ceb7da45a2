package cpu

import "github.com/retroenv/retrogolib/log"

// execute8 handles the register to register arithmetic and logic instructions.
// Instructions that produce a flag write VF after the result, so VF holds the
// flag even if it is also the target register.
func (c *CPU) execute8(opcode uint16) status {
	x, y := registerX(opcode), registerY(opcode)
	if !validRegister(x) || !validRegister(y) {
		return rejected
	}

	vx, vy := c.v[x], c.v[y]

	switch opcode & 0x000F {
	case 0x0: // LD Vx, Vy
		c.v[x] = vy
	case 0x1: // OR Vx, Vy
		c.v[x] = vx | vy
	case 0x2: // AND Vx, Vy
		c.v[x] = vx & vy
	case 0x3: // XOR Vx, Vy
		c.v[x] = vx ^ vy

	case 0x4: // ADD Vx, Vy
		sum := uint16(vx) + uint16(vy)
		c.v[x] = byte(sum)
		c.v[flagRegister] = boolToByte(sum > 0xFF)

	case 0x5: // SUB Vx, Vy
		c.v[x] = vx - vy
		c.v[flagRegister] = boolToByte(vx >= vy)

	case 0x6: // SHR Vx
		c.v[x] = vx >> 1
		c.v[flagRegister] = vx & 0x01

	case 0x7: // SUBN Vx, Vy
		c.v[x] = vy - vx
		c.v[flagRegister] = boolToByte(vy >= vx)

	case 0xE: // SHL Vx
		c.v[x] = vx << 1
		c.v[flagRegister] = vx >> 7

	default:
		c.logger.Warn("Unknown arithmetic instruction", log.Hex("opcode", opcode))
		return rejected
	}

	return applied
}
