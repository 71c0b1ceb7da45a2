// Package input implements the 16 key hexadecimal CHIP-8 keypad.
package input

import (
	"fmt"
	"strings"
)

// KeyCount is the number of keys of the keypad.
const KeyCount = 16

// Input holds the key states and the latch of the most recently pressed key.
type Input struct {
	keys    [KeyCount]bool
	last    byte
	latched bool
}

// New returns a keypad with all keys released.
func New() *Input {
	return &Input{}
}

// Clear releases all keys and empties the latch.
func (in *Input) Clear() {
	*in = Input{}
}

// KeyDown marks the key as pressed and latches it. Keys outside of the keypad are ignored.
func (in *Input) KeyDown(key byte) {
	if key >= KeyCount {
		return
	}
	in.keys[key] = true
	in.last = key
	in.latched = true
}

// KeyUp marks the key as released. Keys outside of the keypad are ignored.
func (in *Input) KeyUp(key byte) {
	if key >= KeyCount {
		return
	}
	in.keys[key] = false
}

// IsKeyPressed returns whether the key is currently held down.
func (in *Input) IsKeyPressed(key byte) bool {
	if key >= KeyCount {
		return false
	}
	return in.keys[key]
}

// KeyPressed returns the latched key and clears the latch.
func (in *Input) KeyPressed() (byte, bool) {
	key, ok := in.last, in.latched
	in.last = 0
	in.latched = false
	return key, ok
}

// String returns the pressed keys and the latched key.
func (in *Input) String() string {
	var sb strings.Builder
	sb.WriteString("Keys:")
	for key, pressed := range in.keys {
		if pressed {
			fmt.Fprintf(&sb, " %X", key)
		}
	}
	if in.latched {
		fmt.Fprintf(&sb, " | Last: %X", in.last)
	}
	return sb.String()
}
