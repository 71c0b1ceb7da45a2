package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// newTestCPU returns a CPU with the given instruction words loaded as program.
func newTestCPU(t *testing.T, program ...uint16) *CPU {
	t.Helper()

	c := New(log.NewTestLogger(t), Config{Seed: 1})
	if len(program) == 0 {
		return c
	}

	data := make([]byte, 0, len(program)*2)
	for _, word := range program {
		data = append(data, byte(word>>8), byte(word))
	}
	assert.NoError(t, c.LoadROM(data))
	return c
}

func runCycles(c *CPU, n int) {
	for range n {
		c.Cycle()
	}
}

func TestNew(t *testing.T) {
	c := newTestCPU(t)

	assert.Equal(t, uint16(memory.ProgramStart), c.pc)
	assert.False(t, c.Halted())
	assert.True(t, c.Healthy())
	assert.True(t, c.Running())
	assert.Equal(t, uint64(0), c.CycleCount())
	assert.True(t, c.memory.ValidateIntegrity())
}

func TestCPU_LoadROM(t *testing.T) {
	c := newTestCPU(t, 0x6005)

	assert.Equal(t, byte(0x60), c.memory.Read(memory.ProgramStart))
	assert.True(t, c.NeedsRedraw())
	assert.Equal(t, uint16(memory.ProgramStart), c.pc)
}

func TestCPU_LoadROMRejected(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		error error
	}{
		{"empty program", nil, memory.ErrEmptyROM},
		{"oversized program", make([]byte, memory.MaxROMSize+1), memory.ErrROMTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, 0x6005, 0x1202)
			c.Cycle()
			assert.Equal(t, uint16(0x202), c.pc)

			err := c.LoadROM(tt.data)
			assert.True(t, errors.Is(err, tt.error))
			assert.Equal(t, uint16(0x202), c.pc)
			assert.Equal(t, byte(0x60), c.memory.Read(memory.ProgramStart))
			assert.Equal(t, byte(0x05), c.memory.Read(memory.ProgramStart+1))
			assert.Equal(t, byte(5), c.v[0])
		})
	}
}

func TestCPU_Reset(t *testing.T) {
	c := newTestCPU(t, 0x6A42, 0xF015, 0x2300)
	runCycles(c, 3)
	c.KeyDown(3)

	c.Reset()
	assert.Equal(t, byte(0), c.v[0xA])
	assert.Equal(t, byte(0), c.delayTimer)
	assert.Equal(t, uint8(0), c.sp)
	assert.Equal(t, uint16(memory.ProgramStart), c.pc)
	assert.Equal(t, uint64(0), c.CycleCount())
	assert.Equal(t, byte(0), c.memory.Read(memory.ProgramStart))
	assert.True(t, c.memory.ValidateIntegrity())
	assert.False(t, c.input.IsKeyPressed(3))
}

func TestCPU_AddImmediateWraps(t *testing.T) {
	tests := []struct {
		kk1, kk2 byte
	}{
		{0x05, 0x03},
		{0xFF, 0x01},
		{0x80, 0x80},
		{0xFE, 0xFF},
		{0x00, 0x00},
	}

	for _, tt := range tests {
		c := newTestCPU(t, 0x6F07, 0x6300|uint16(tt.kk1), 0x7300|uint16(tt.kk2))
		runCycles(c, 3)

		assert.Equal(t, tt.kk1+tt.kk2, c.v[3])
		assert.Equal(t, byte(0x07), c.v[0xF])
		assert.Equal(t, 0, c.ErrorCount())
	}
}

func TestCPU_AddRegistersCarry(t *testing.T) {
	tests := []struct {
		name          string
		vx, vy        byte
		expected, flg byte
	}{
		{"no carry", 5, 3, 8, 0},
		{"exactly 255", 200, 55, 255, 0},
		{"carry", 200, 56, 0, 1},
		{"carry maximum", 255, 255, 254, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, 0x6000|uint16(tt.vx), 0x6100|uint16(tt.vy), 0x8014)
			runCycles(c, 3)

			assert.Equal(t, tt.expected, c.v[0])
			assert.Equal(t, tt.flg, c.v[0xF])
		})
	}
}

func TestCPU_Arithmetic(t *testing.T) {
	tests := []struct {
		name     string
		vx, vy   byte
		opcode   uint16
		expected byte
		flag     byte
	}{
		{"load", 0x12, 0x34, 0x8010, 0x34, 0xAA},
		{"or", 0xF0, 0x0F, 0x8011, 0xFF, 0xAA},
		{"and", 0xF0, 0x3C, 0x8012, 0x30, 0xAA},
		{"xor", 0xFF, 0x0F, 0x8013, 0xF0, 0xAA},
		{"sub no borrow", 10, 3, 0x8015, 7, 1},
		{"sub equal", 7, 7, 0x8015, 0, 1},
		{"sub borrow", 3, 10, 0x8015, 249, 0},
		{"shr odd", 0x05, 0, 0x8016, 0x02, 1},
		{"shr even", 0x04, 0, 0x8016, 0x02, 0},
		{"shr to zero", 0x01, 0, 0x8016, 0x00, 1},
		{"subn no borrow", 3, 10, 0x8017, 7, 1},
		{"subn borrow", 10, 3, 0x8017, 249, 0},
		{"shl msb set", 0x81, 0, 0x801E, 0x02, 1},
		{"shl msb clear", 0x41, 0, 0x801E, 0x82, 0},
		{"shl to zero", 0x80, 0, 0x801E, 0x00, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, 0x6000|uint16(tt.vx), 0x6100|uint16(tt.vy), 0x6FAA, tt.opcode)
			runCycles(c, 4)

			assert.Equal(t, tt.expected, c.v[0])
			assert.Equal(t, tt.flag, c.v[0xF])
			assert.Equal(t, 0, c.ErrorCount())
		})
	}
}

func TestCPU_ArithmeticFlagTarget(t *testing.T) {
	// ADD VF, V1 with carry: the flag wins over the result
	c := newTestCPU(t, 0x6FFF, 0x6102, 0x8F14)
	runCycles(c, 3)
	assert.Equal(t, byte(1), c.v[0xF])
}

func TestCPU_UnknownArithmetic(t *testing.T) {
	c := newTestCPU(t, 0x6005, 0x8018)
	runCycles(c, 2)

	assert.Equal(t, byte(5), c.v[0])
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_Skips(t *testing.T) {
	tests := []struct {
		name    string
		opcode  uint16
		skipped bool
	}{
		{"SE byte equal", 0x3005, true},
		{"SE byte not equal", 0x3006, false},
		{"SNE byte equal", 0x4005, false},
		{"SNE byte not equal", 0x4006, true},
		{"SE registers equal", 0x5020, true},
		{"SE registers not equal", 0x5010, false},
		{"SNE registers equal", 0x9020, false},
		{"SNE registers not equal", 0x9010, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// V0 = 5, V1 = 6, V2 = 5
			c := newTestCPU(t, 0x6005, 0x6106, 0x6205, tt.opcode)
			runCycles(c, 4)

			expected := uint16(0x208)
			if tt.skipped {
				expected = 0x20A
			}
			assert.Equal(t, expected, c.pc)
		})
	}
}

func TestCPU_Jump(t *testing.T) {
	tests := []struct {
		name   string
		opcode uint16
		pc     uint16
		errors int
	}{
		{"valid target", 0x1300, 0x300, 0},
		{"last aligned address", 0x1FFE, 0xFFE, 0},
		{"odd target", 0x1301, 0x202, 1},
		{"reserved area target", 0x1100, 0x202, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, tt.opcode)
			c.Cycle()

			assert.Equal(t, tt.pc, c.pc)
			assert.Equal(t, tt.errors, c.ErrorCount())
		})
	}
}

func TestCPU_JumpOffset(t *testing.T) {
	c := newTestCPU(t, 0x6010, 0xB300)
	runCycles(c, 2)
	assert.Equal(t, uint16(0x310), c.pc)

	c = newTestCPU(t, 0x6001, 0xB300)
	runCycles(c, 2)
	assert.Equal(t, uint16(0x204), c.pc)
	assert.Equal(t, 1, c.ErrorCount())

	c = newTestCPU(t, 0x60FF, 0xBFFF)
	runCycles(c, 2)
	assert.Equal(t, uint16(0x204), c.pc)
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_CallReturn(t *testing.T) {
	c := newTestCPU(t, 0x2206, 0x6101, 0x0000, 0x6202, 0x00EE)

	c.Cycle() // call $206
	assert.Equal(t, uint16(0x206), c.pc)
	assert.Equal(t, uint8(1), c.sp)
	assert.Equal(t, uint16(0x202), c.stack[0])

	runCycles(c, 2) // ld V2, ret
	assert.Equal(t, uint16(0x202), c.pc)
	assert.Equal(t, uint8(0), c.sp)

	runCycles(c, 2) // ld V1, halt
	assert.Equal(t, byte(1), c.v[1])
	assert.Equal(t, byte(2), c.v[2])
	assert.True(t, c.Halted())
}

func TestCPU_CallStackOverflow(t *testing.T) {
	// recursive call to itself
	c := newTestCPU(t, 0x2200)
	runCycles(c, StackSize)
	assert.Equal(t, uint8(StackSize), c.sp)
	assert.Equal(t, 0, c.ErrorCount())
	assert.False(t, c.Healthy())

	c.Cycle()
	assert.Equal(t, uint8(StackSize), c.sp)
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_CallInvalidTarget(t *testing.T) {
	c := newTestCPU(t, 0x2101)
	c.Cycle()

	assert.Equal(t, uint8(0), c.sp)
	assert.Equal(t, uint16(0x202), c.pc)
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_ReturnEmptyStackHalts(t *testing.T) {
	c := newTestCPU(t, 0x00EE, 0x6005)

	c.Cycle()
	assert.True(t, c.Halted())
	assert.False(t, c.Healthy())
	assert.False(t, c.Running())

	cycles := c.CycleCount()
	runCycles(c, 5)
	assert.Equal(t, cycles, c.CycleCount())
	assert.Equal(t, byte(0), c.v[0])

	c.Reset()
	assert.False(t, c.Halted())
}

func TestCPU_ReturnInvalidAddressHalts(t *testing.T) {
	c := newTestCPU(t, 0x00EE)
	c.sp = 1
	c.stack[0] = 0x0101

	c.Cycle()
	assert.True(t, c.Halted())
}

func TestCPU_HaltInstruction(t *testing.T) {
	c := newTestCPU(t, 0x6001, 0x0000, 0x6002)
	runCycles(c, 5)

	assert.True(t, c.Halted())
	assert.Equal(t, byte(1), c.v[0])
	assert.Equal(t, 0, c.ErrorCount())
}

func TestCPU_SysIgnored(t *testing.T) {
	c := newTestCPU(t, 0x0123)
	c.Cycle()

	assert.False(t, c.Halted())
	assert.Equal(t, 0, c.ErrorCount())
	assert.Equal(t, uint16(0x202), c.pc)
}

func TestCPU_LoadAndClearScenario(t *testing.T) {
	c := newTestCPU(t, 0x6005, 0x6103, 0x8014, 0x00E0)
	c.display.SetPixel(3, 3, true)
	c.ConsumeRedraw()

	runCycles(c, 3)
	assert.Equal(t, byte(8), c.v[0])
	assert.Equal(t, byte(0), c.v[0xF])
	assert.False(t, c.NeedsRedraw())

	c.Cycle()
	assert.True(t, c.NeedsRedraw())
	assert.Equal(t, 0, c.ActivePixels())
	assert.True(t, c.ConsumeRedraw())
	assert.False(t, c.NeedsRedraw())
}

func TestCPU_FontGlyphScenario(t *testing.T) {
	// ld I, $050; ld V0, 0; ld F, V0; drw V0, V0, 5
	c := newTestCPU(t, 0xA050, 0x6000, 0xF029, 0xD005)

	runCycles(c, 3)
	assert.Equal(t, uint16(0x50), c.i)

	c.Cycle()
	assert.Equal(t, byte(0), c.v[0xF])
	assert.True(t, c.NeedsRedraw())

	glyph := []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}
	for y, row := range glyph {
		for x := range 8 {
			expected := row&(0x80>>x) != 0
			assert.Equal(t, expected, c.display.Pixel(x, y))
		}
	}
	assert.Equal(t, 14, c.ActivePixels())
}

func TestCPU_DrawTwiceCollides(t *testing.T) {
	// ld I, $055 (glyph 1); drw V0, V0, 5 twice
	c := newTestCPU(t, 0xA055, 0xD005, 0xD005)

	runCycles(c, 2)
	assert.Equal(t, byte(0), c.v[0xF])
	assert.True(t, c.ActivePixels() > 0)

	c.Cycle()
	assert.Equal(t, byte(1), c.v[0xF])
	assert.Equal(t, 0, c.ActivePixels())
}

func TestCPU_DrawWraps(t *testing.T) {
	// V0 = 63, V1 = 31, I = glyph 0, draw one row
	c := newTestCPU(t, 0x603F, 0x611F, 0xA050, 0xD011)
	runCycles(c, 4)

	assert.True(t, c.display.Pixel(display.Width-1, display.Height-1))
	assert.True(t, c.display.Pixel(0, display.Height-1))
	assert.True(t, c.display.Pixel(2, display.Height-1))
	assert.False(t, c.display.Pixel(3, display.Height-1))
}

func TestCPU_DrawEdgeCases(t *testing.T) {
	t.Run("zero rows", func(t *testing.T) {
		c := newTestCPU(t, 0xA050, 0xD000)
		c.ConsumeRedraw()
		runCycles(c, 2)

		assert.Equal(t, 0, c.ActivePixels())
		assert.False(t, c.NeedsRedraw())
		assert.Equal(t, 0, c.ErrorCount())
	})

	t.Run("sprite exceeds memory", func(t *testing.T) {
		c := newTestCPU(t, 0xAFFC, 0xD005)
		runCycles(c, 2)

		assert.Equal(t, 0, c.ActivePixels())
		assert.Equal(t, 1, c.ErrorCount())
	})

	t.Run("sprite ends at memory end", func(t *testing.T) {
		c := newTestCPU(t, 0xAFFB, 0xD005)
		runCycles(c, 2)
		assert.Equal(t, 0, c.ErrorCount())
	})
}

func TestCPU_Random(t *testing.T) {
	program := []uint16{0xC0FF, 0xC1FF, 0xC20F, 0xC300}
	c1 := newTestCPU(t, program...)
	c2 := newTestCPU(t, program...)
	runCycles(c1, 4)
	runCycles(c2, 4)

	assert.Equal(t, c1.v, c2.v)
	assert.Equal(t, byte(0), c1.v[2]&0xF0)
	assert.Equal(t, byte(0), c1.v[3])

	c1.Reset()
	assert.NoError(t, c1.LoadROM([]byte{0xC0, 0xFF}))
	c1.Cycle()
	assert.Equal(t, c2.v[0], c1.v[0])
}

func TestCPU_Timers(t *testing.T) {
	// ld V0, 3; ld DT, V0; ld ST, V0; ld V1, DT
	c := newTestCPU(t, 0x6003, 0xF015, 0xF018, 0xF107, 0x1208)

	runCycles(c, 2)
	assert.Equal(t, byte(2), c.delayTimer)
	assert.False(t, c.ToneActive())

	c.Cycle()
	assert.True(t, c.ToneActive())
	assert.Equal(t, byte(2), c.soundTimer)

	c.Cycle()
	assert.Equal(t, byte(1), c.v[1])
	assert.Equal(t, byte(0), c.delayTimer)

	c.Cycle()
	assert.True(t, c.ToneActive())
	assert.Equal(t, byte(0), c.soundTimer)

	c.Cycle()
	assert.False(t, c.ToneActive())
	assert.Equal(t, byte(0), c.delayTimer)
}

func TestCPU_KeySkips(t *testing.T) {
	c := newTestCPU(t, 0x6007, 0xE09E, 0x0000, 0xE0A1, 0x0000)
	c.KeyDown(7)

	runCycles(c, 2) // ld, skp taken
	assert.Equal(t, uint16(0x206), c.pc)

	c.Cycle() // sknp not taken
	assert.Equal(t, uint16(0x208), c.pc)

	c.Cycle()
	assert.True(t, c.Halted())
}

func TestCPU_KeyInvalid(t *testing.T) {
	c := newTestCPU(t, 0x6020, 0xE09E, 0xE0FF)
	runCycles(c, 2)
	assert.Equal(t, uint16(0x204), c.pc)
	assert.Equal(t, 0, c.ErrorCount())

	c = newTestCPU(t, 0xE0FF)
	c.Cycle()
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_WaitKey(t *testing.T) {
	c := newTestCPU(t, 0xF30A, 0x6101)

	runCycles(c, 3)
	assert.True(t, c.Waiting())
	assert.Equal(t, uint16(memory.ProgramStart), c.pc)
	assert.Equal(t, byte(0), c.v[1])
	assert.Equal(t, 0, c.ErrorCount())

	c.KeyDown(0xB)
	c.Cycle()
	assert.False(t, c.Waiting())
	assert.Equal(t, byte(0xB), c.v[3])
	assert.Equal(t, uint16(0x202), c.pc)

	c.Cycle()
	assert.Equal(t, byte(1), c.v[1])
}

func TestCPU_AddIndex(t *testing.T) {
	c := newTestCPU(t, 0xA300, 0x6010, 0xF01E)
	runCycles(c, 3)
	assert.Equal(t, uint16(0x310), c.i)

	c = newTestCPU(t, 0xAFFF, 0x6002, 0xF01E)
	runCycles(c, 3)
	assert.Equal(t, uint16(0x001), c.i)
	assert.Equal(t, 0, c.ErrorCount())
}

func TestCPU_FontAddress(t *testing.T) {
	c := newTestCPU(t, 0x601A, 0xF029)
	runCycles(c, 2)

	// only the low nibble selects the glyph
	assert.Equal(t, uint16(memory.FontStart+0xA*memory.GlyphSize), c.i)
}

func TestCPU_StoreBCD(t *testing.T) {
	c := newTestCPU(t, 0x60FE, 0xA300, 0xF033)
	runCycles(c, 3)
	assert.Equal(t, []byte{2, 5, 4}, c.memory.ReadBytes(0x300, 3))

	c = newTestCPU(t, 0x60FE, 0xAFFE, 0xF033)
	runCycles(c, 3)
	assert.Equal(t, 1, c.ErrorCount())
	assert.Equal(t, byte(0), c.memory.Read(0xFFE))

	// writes into the glyph table are dropped by the memory protection
	c = newTestCPU(t, 0x60FE, 0xA050, 0xF033)
	runCycles(c, 3)
	assert.True(t, c.memory.ValidateIntegrity())
}

func TestCPU_StoreLoadRegisters(t *testing.T) {
	c := newTestCPU(t, 0x6011, 0x6122, 0x6233, 0xA400, 0xF255, 0x6000, 0x6100, 0x6200, 0xF165)
	runCycles(c, 5)
	assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x00}, c.memory.ReadBytes(0x400, 4))

	runCycles(c, 4)
	assert.Equal(t, byte(0x11), c.v[0])
	assert.Equal(t, byte(0x22), c.v[1])
	assert.Equal(t, byte(0), c.v[2])
	assert.Equal(t, 0, c.ErrorCount())
}

func TestCPU_StoreLoadRegistersBounds(t *testing.T) {
	c := newTestCPU(t, 0xAFFE, 0xF255)
	runCycles(c, 2)
	assert.Equal(t, 1, c.ErrorCount())

	c = newTestCPU(t, 0xAFFE, 0xF165)
	runCycles(c, 2)
	assert.Equal(t, 0, c.ErrorCount())

	c = newTestCPU(t, 0xAFFE, 0xF265)
	runCycles(c, 2)
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_UnknownMisc(t *testing.T) {
	c := newTestCPU(t, 0xF0FF)
	c.Cycle()
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_ErrorThresholdHalts(t *testing.T) {
	program := make([]uint16, MaxErrors+2)
	for i := range program {
		program[i] = 0xFFFF
	}
	c := newTestCPU(t, program...)

	runCycles(c, MaxErrors)
	assert.Equal(t, MaxErrors, c.ErrorCount())
	assert.False(t, c.Halted())
	assert.False(t, c.Healthy())
	pc := c.pc

	c.Cycle()
	assert.True(t, c.Halted())
	assert.Equal(t, pc, c.pc)
	assert.Equal(t, uint64(MaxErrors), c.CycleCount())

	c.Cycle()
	assert.Equal(t, uint64(MaxErrors), c.CycleCount())
}

func TestCPU_ValidatePC(t *testing.T) {
	tests := []struct {
		name     string
		pc       uint16
		expected uint16
	}{
		{"below program region", 0x100, memory.ProgramStart},
		{"above memory", 0x1000, memory.ProgramStart},
		{"odd address", 0x301, 0x300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCPU(t, 0x6001)
			c.pc = tt.pc

			c.Cycle()
			assert.Equal(t, tt.expected, c.pc)
			assert.Equal(t, 1, c.ErrorCount())
			assert.Equal(t, byte(0), c.v[0])
			assert.Equal(t, uint64(1), c.CycleCount())
		})
	}
}

func TestCPU_SkipPastMemoryEnd(t *testing.T) {
	// a skip on the last instruction moves the program counter out of memory
	c := newTestCPU(t)
	assert.NoError(t, c.LoadROM(make([]byte, memory.MaxROMSize)))
	c.memory.Write(0xFFE, 0x30)
	c.pc = 0xFFE

	c.Cycle()
	assert.Equal(t, uint16(0x1002), c.pc)

	c.Cycle()
	assert.Equal(t, uint16(memory.ProgramStart), c.pc)
	assert.Equal(t, 1, c.ErrorCount())
}

func TestCPU_Trace(t *testing.T) {
	c := New(log.NewTestLogger(t), Config{Trace: true})
	assert.NoError(t, c.LoadROM([]byte{0x60, 0x05}))

	c.Cycle()
	assert.Equal(t, byte(5), c.v[0])
}

func TestCPU_DebugInfo(t *testing.T) {
	// se V0, $05; ld V1, $02
	c := newTestCPU(t, 0x3005, 0x6102)

	info := c.DebugInfo()
	assert.Contains(t, info, "PC: $0200")
	assert.Contains(t, info, "Next: se V0, $05 (conditional skip)")

	c.Cycle()
	info = c.DebugInfo()
	assert.Contains(t, info, "Next: ld V1, $02")
	assert.False(t, strings.Contains(info, "conditional skip"))
}
