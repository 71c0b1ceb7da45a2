package terminal

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrochip8/internal/display"
)

// ErrInvalidFrame is returned for a framebuffer that does not match the display size.
var ErrInvalidFrame = errors.New("invalid framebuffer size")

const (
	columns = display.Width
	rows    = display.Height / 2 // two pixel rows per character cell
)

const (
	cellEmpty  = " "
	cellTop    = "▀"
	cellBottom = "▄"
	cellFull   = "█"
)

// Render draws the framebuffer using half block characters, each character
// cell shows two vertically adjacent pixels.
func (t *Terminal) Render(buffer []byte) error {
	if len(buffer) != display.Pixels {
		return fmt.Errorf("%w: %d bytes", ErrInvalidFrame, len(buffer))
	}

	t.frame = append(t.frame[:0], cursorHome...)
	for y := 0; y < display.Height; y += 2 {
		upper := buffer[y*display.Width : (y+1)*display.Width]
		lower := buffer[(y+1)*display.Width : (y+2)*display.Width]

		for x := range display.Width {
			t.frame = append(t.frame, cell(upper[x] != 0, lower[x] != 0)...)
		}
		t.frame = append(t.frame, '\n')
	}

	if _, err := t.out.Write(t.frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

func cell(top, bottom bool) string {
	switch {
	case top && bottom:
		return cellFull
	case top:
		return cellTop
	case bottom:
		return cellBottom
	default:
		return cellEmpty
	}
}
