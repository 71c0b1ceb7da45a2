// Package display implements the 64x32 monochrome CHIP-8 framebuffer.
package display

import "strings"

// Display dimensions.
const (
	Width  = 64
	Height = 32
	Pixels = Width * Height

	// MaxSpriteRows is the maximum number of rows a single sprite can have.
	MaxSpriteRows = 15
)

// Pixel values of the exported buffer.
const (
	PixelOff = 0
	PixelOn  = 255
)

// Display is the pixel grid. All coordinates wrap around the grid edges.
type Display struct {
	pixels [Pixels]bool
}

// New returns a new cleared display.
func New() *Display {
	return &Display{}
}

// Clear turns all pixels off.
func (d *Display) Clear() {
	d.pixels = [Pixels]bool{}
}

// Pixel returns the state of the pixel, coordinates outside of the grid
// return false.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return d.pixels[y*Width+x]
}

// SetPixel sets the state of the pixel, coordinates wrap around the grid edges.
func (d *Display) SetPixel(x, y int, on bool) {
	d.pixels[wrap(y, Height)*Width+wrap(x, Width)] = on
}

// DrawSprite composites the sprite rows at the given origin by XOR. Every pixel
// wraps independently, so a sprite crossing an edge continues on the opposite
// side. Rows beyond MaxSpriteRows are ignored. It returns whether any pixel that
// was set got cleared.
func (d *Display) DrawSprite(x, y int, rows []byte) bool {
	if len(rows) > MaxSpriteRows {
		rows = rows[:MaxSpriteRows]
	}

	collision := false
	for row, data := range rows {
		for col := range 8 {
			if data&(0x80>>col) == 0 {
				continue
			}

			index := wrap(y+row, Height)*Width + wrap(x+col, Width)
			if d.pixels[index] {
				collision = true
			}
			d.pixels[index] = !d.pixels[index]
		}
	}
	return collision
}

// Buffer returns the framebuffer as one byte per pixel in row-major order,
// PixelOff for off and PixelOn for on pixels.
func (d *Display) Buffer() []byte {
	buf := make([]byte, Pixels)
	for i, on := range d.pixels {
		if on {
			buf[i] = PixelOn
		}
	}
	return buf
}

// ActivePixels returns the number of pixels that are on.
func (d *Display) ActivePixels() int {
	count := 0
	for _, on := range d.pixels {
		if on {
			count++
		}
	}
	return count
}

// String renders the display as text, one line per pixel row.
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow(Pixels + Height)
	for y := range Height {
		for x := range Width {
			if d.pixels[y*Width+x] {
				sb.WriteRune('█')
			} else {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func wrap(value, size int) int {
	value %= size
	if value < 0 {
		value += size
	}
	return value
}
