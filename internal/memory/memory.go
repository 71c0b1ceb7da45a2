// Package memory implements the 4KB CHIP-8 address space with a write protected
// glyph table and bounds checked accessors.
package memory

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

// CHIP-8 memory layout constants.
//
// CHIP-8 memory map (4KB total):
//
//	0x000-0x04F: System area
//	0x050-0x09F: Hex digit glyph table (write protected)
//	0x0A0-0x1FF: Free reserved area
//	0x200-0xFFF: User program space (3584 bytes)
const (
	// Size is the total size of the address space in bytes.
	Size = 0x1000

	// ProgramStart is the memory address where CHIP-8 programs are loaded and begin execution.
	ProgramStart = 0x200

	// FontStart is the address of the first glyph of the built-in font.
	FontStart = 0x50

	// FontSize is the total size of the glyph table, 16 glyphs of 5 bytes each.
	FontSize = 16 * GlyphSize

	// GlyphSize is the number of bytes per glyph.
	GlyphSize = 5

	// MaxROMSize is the largest program that fits into the program region.
	MaxROMSize = Size - ProgramStart
)

var (
	// ErrEmptyROM is returned when loading a program without any bytes.
	ErrEmptyROM = errors.New("program is empty")

	// ErrROMTooLarge is returned when a program does not fit into the program region.
	ErrROMTooLarge = errors.New("program exceeds program region")
)

var fontset = [FontSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// zone is a half open address range [start, end).
type zone struct {
	start uint16
	end   uint16
}

func (z zone) contains(address uint16) bool {
	return address >= z.start && address < z.end
}

// Memory is the flat CHIP-8 address space.
type Memory struct {
	logger *log.Logger

	ram       [Size]byte
	protected []zone

	accessCount uint64
}

// New returns a new memory instance with the glyph table loaded and write protected.
func New(logger *log.Logger) *Memory {
	m := &Memory{
		logger: logger,
	}
	m.Protect(FontStart, FontStart+FontSize)
	m.LoadFontset()
	return m
}

// Protect registers the address range [start, end) as read only.
func (m *Memory) Protect(start, end uint16) {
	m.protected = append(m.protected, zone{start: start, end: end})
}

// Clear zeroes the whole address space, including the glyph table, and resets
// the access counter. LoadFontset has to be called afterwards to restore the glyphs.
func (m *Memory) Clear() {
	m.ram = [Size]byte{}
	m.accessCount = 0
}

// LoadFontset writes the glyph table into memory, bypassing the write protection.
func (m *Memory) LoadFontset() {
	copy(m.ram[FontStart:], fontset[:])
}

// LoadROM zeroes the program region and copies the program into it.
// Empty or oversized programs are rejected and leave the memory untouched.
func (m *Memory) LoadROM(data []byte) error {
	if err := ValidateROM(data); err != nil {
		return err
	}

	clear(m.ram[ProgramStart:])
	copy(m.ram[ProgramStart:], data)
	return nil
}

// ValidateROM checks that the program is not empty and fits into the program region.
func ValidateROM(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyROM
	}
	if len(data) > MaxROMSize {
		return fmt.Errorf("%w: %d bytes, maximum is %d", ErrROMTooLarge, len(data), MaxROMSize)
	}
	return nil
}

// Read returns the byte at the given address. Reads outside of the address
// space return 0.
func (m *Memory) Read(address uint16) byte {
	if int(address) >= Size {
		m.logger.Warn("Memory read out of bounds", log.Hex("address", address))
		return 0
	}
	if address >= ProgramStart {
		m.accessCount++
	}
	return m.ram[address]
}

// Write writes a byte to the given address. Writes outside of the address
// space or into a protected zone are ignored.
func (m *Memory) Write(address uint16, value byte) {
	if int(address) >= Size {
		m.logger.Warn("Memory write out of bounds", log.Hex("address", address))
		return
	}

	for _, z := range m.protected {
		if z.contains(address) {
			m.logger.Warn("Memory write to protected zone ignored",
				log.Hex("address", address),
				log.Hex("zone_start", z.start),
				log.Hex("zone_end", z.end))
			return
		}
	}

	if address < ProgramStart && address >= FontStart+FontSize {
		m.logger.Debug("Memory write to system area", log.Hex("address", address))
	}

	m.ram[address] = value
	m.accessCount++
}

// ReadBytes reads count consecutive bytes starting at address. If the range
// does not fit into the address space, count zero bytes are returned.
func (m *Memory) ReadBytes(address uint16, count uint8) []byte {
	result := make([]byte, count)
	if int(address)+int(count) > Size {
		m.logger.Warn("Memory range read out of bounds",
			log.Hex("address", address),
			log.Int("count", int(count)))
		return result
	}

	for i := range result {
		result[i] = m.Read(address + uint16(i))
	}
	return result
}

// WriteBytes writes data starting at address. The write is refused as a whole
// if the range does not fit into the address space.
func (m *Memory) WriteBytes(address uint16, data []byte) bool {
	if int(address)+len(data) > Size {
		m.logger.Warn("Memory range write out of bounds",
			log.Hex("address", address),
			log.Int("count", len(data)))
		return false
	}

	for i, b := range data {
		m.Write(address+uint16(i), b)
	}
	return true
}

// FontAddress returns the address of the glyph for a hex digit.
// Digits above 0xF are clamped to the glyph of 0.
func (m *Memory) FontAddress(digit byte) uint16 {
	if digit > 0xF {
		m.logger.Warn("Invalid font digit, using glyph 0", log.Hex("digit", digit))
		return FontStart
	}
	return FontStart + uint16(digit)*GlyphSize
}

// AccessCount returns the number of counted memory accesses since the last clear.
func (m *Memory) AccessCount() uint64 {
	return m.accessCount
}
