package terminal

import (
	"errors"
	"io"
	"time"

	"github.com/retroenv/retrochip8/internal/emulator"
	"github.com/retroenv/retrogolib/log"
)

const keyEscape = 0x1b

// keymap maps the left hand block of a QWERTY keyboard onto the keypad:
//
//	1 2 3 4      1 2 3 C
//	q w e r  ->  4 5 6 D
//	a s d f      7 8 9 E
//	z x c v      A 0 B F
var keymap = map[byte]byte{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// mapKey returns the keypad key for a terminal input byte. Upper case letters
// map to the same key as lower case ones.
func mapKey(b byte) (byte, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	key, ok := keymap[b]
	return key, ok
}

// readInput forwards bytes read from the input stream until it fails.
func (t *Terminal) readInput(input chan<- byte) {
	defer close(input)

	buf := make([]byte, 16)
	for {
		n, err := t.in.Read(buf)
		for _, b := range buf[:n] {
			select {
			case input <- b:
			case <-t.done:
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				t.logger.Error("Reading terminal input failed", log.Err(err))
			}
			return
		}
	}
}

// dispatch converts input bytes into key events. Every press is followed by a
// release once the key hold time passed without a repeated press.
func (t *Terminal) dispatch(input <-chan byte) {
	defer close(t.events)

	held := make(map[byte]time.Time)
	ticker := time.NewTicker(max(t.config.KeyHold/4, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return

		case b, ok := <-input:
			if !ok || b == keyEscape {
				return
			}
			key, ok := mapKey(b)
			if !ok {
				continue
			}
			if _, pressed := held[key]; !pressed && !t.send(emulator.KeyEvent{Key: key, Down: true}) {
				return
			}
			held[key] = time.Now().Add(t.config.KeyHold)

		case now := <-ticker.C:
			for key, release := range held {
				if now.Before(release) {
					continue
				}
				delete(held, key)
				if !t.send(emulator.KeyEvent{Key: key, Down: false}) {
					return
				}
			}
		}
	}
}

func (t *Terminal) send(event emulator.KeyEvent) bool {
	select {
	case t.events <- event:
		return true
	case <-t.done:
		return false
	}
}
