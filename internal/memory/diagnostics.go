package memory

import (
	"fmt"
	"strings"

	"github.com/retroenv/retrogolib/log"
)

// Region identifies a logical area of the address space.
type Region string

// Memory regions.
const (
	RegionSystem     Region = "system"
	RegionFont       Region = "font"
	RegionReserved   Region = "reserved"
	RegionProgram    Region = "program"
	RegionOutOfRange Region = "out of range"
)

const hexDumpLineSize = 16

// Region returns the logical region that contains the address.
func (m *Memory) Region(address uint16) Region {
	switch {
	case int(address) >= Size:
		return RegionOutOfRange
	case address < FontStart:
		return RegionSystem
	case address < FontStart+FontSize:
		return RegionFont
	case address < ProgramStart:
		return RegionReserved
	default:
		return RegionProgram
	}
}

// Inspect returns the byte at the address without access accounting or logging.
// Addresses outside of the address space return 0.
func (m *Memory) Inspect(address uint16) byte {
	if int(address) >= Size {
		return 0
	}
	return m.ram[address]
}

// AddressInfo returns a description of the address, its region and current value.
func (m *Memory) AddressInfo(address uint16) string {
	region := m.Region(address)
	if region == RegionOutOfRange {
		return fmt.Sprintf("$%04X: %s", address, region)
	}
	return fmt.Sprintf("$%04X: %s = $%02X", address, region, m.ram[address])
}

// Stats returns a one line summary of the memory usage.
func (m *Memory) Stats() string {
	programBytes := 0
	for _, b := range m.ram[ProgramStart:] {
		if b != 0 {
			programBytes++
		}
	}
	return fmt.Sprintf("Memory: %dB program, %dB font, %d accesses",
		programBytes, FontSize, m.accessCount)
}

// ValidateIntegrity returns whether the glyph table still matches the built-in font.
func (m *Memory) ValidateIntegrity() bool {
	valid := true
	for i, expected := range fontset {
		address := FontStart + i
		if m.ram[address] != expected {
			m.logger.Warn("Font data corrupted",
				log.Hex("address", address),
				log.Hex("expected", expected),
				log.Hex("got", m.ram[address]))
			valid = false
		}
	}
	return valid
}

// HexDump returns a hex and ASCII dump of length bytes starting at start.
// The range is cut off at the end of the address space.
func (m *Memory) HexDump(start, length uint16) string {
	end := min(int(start)+int(length), Size)
	if int(start) >= end {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Memory $%04X-$%04X:\n", start, end-1)

	for address := int(start); address < end; address += hexDumpLineSize {
		fmt.Fprintf(&sb, "%04X: ", address)

		for i := range hexDumpLineSize {
			if address+i < end {
				fmt.Fprintf(&sb, "%02X ", m.ram[address+i])
			} else {
				sb.WriteString("   ")
			}
		}

		sb.WriteString(" |")
		for i := range hexDumpLineSize {
			switch {
			case address+i >= end:
				sb.WriteByte(' ')
			case m.ram[address+i] >= 32 && m.ram[address+i] <= 126:
				sb.WriteByte(m.ram[address+i])
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteString("|\n")
	}

	return sb.String()
}
