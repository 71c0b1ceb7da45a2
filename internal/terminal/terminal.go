// Package terminal implements a text console frontend for the emulator. The
// terminal is switched into non-canonical mode without echo so that single
// key presses are delivered immediately.
package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/term/termios"
	"github.com/retroenv/retrochip8/internal/emulator"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// ErrNotTerminal is returned when the standard input is not a terminal.
var ErrNotTerminal = errors.New("standard input is not a terminal")

const (
	escape        = "\x1b"
	hideCursor    = escape + "[?25l"
	showCursor    = escape + "[?25h"
	clearScreen   = escape + "[2J"
	cursorHome    = escape + "[H"
	resetGraphics = escape + "[0m"
	bell          = "\a"
)

// Config contains the terminal options.
type Config struct {
	// KeyHold is the time after which a key press is released, terminals do
	// not report key releases.
	KeyHold time.Duration
}

// Terminal is an emulator frontend that renders to and reads keys from a
// terminal.
type Terminal struct {
	logger *log.Logger
	config Config

	in  io.Reader
	out io.Writer

	fd       uintptr
	original *unix.Termios

	events    chan emulator.KeyEvent
	done      chan struct{}
	closeOnce sync.Once
	frame     []byte
}

// Open switches the standard input into non-canonical mode and starts reading
// key presses. Close must be called to restore the terminal settings.
func Open(logger *log.Logger, config Config) (*Terminal, error) {
	fd := os.Stdin.Fd()
	if !term.IsTerminal(int(fd)) {
		return nil, ErrNotTerminal
	}

	if width, height, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		if width < columns || height < rows {
			logger.Warn("Terminal window is smaller than the display",
				log.Int("width", width),
				log.Int("height", height),
				log.Int("required_width", columns),
				log.Int("required_height", rows))
		}
	}

	var original unix.Termios
	if err := termios.Tcgetattr(fd, &original); err != nil {
		return nil, fmt.Errorf("reading terminal settings: %w", err)
	}

	raw := original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(fd, termios.TCSANOW, &raw); err != nil {
		return nil, fmt.Errorf("enabling raw mode: %w", err)
	}
	logger.Debug("Enabled terminal raw mode")

	t := newTerminal(logger, config, os.Stdin, os.Stdout)
	t.fd = fd
	t.original = &original

	if _, err := io.WriteString(t.out, hideCursor+clearScreen); err != nil {
		_ = t.Close()
		return nil, fmt.Errorf("initializing screen: %w", err)
	}

	t.start()
	return t, nil
}

// newTerminal returns a terminal for the given streams without changing any
// terminal settings.
func newTerminal(logger *log.Logger, config Config, in io.Reader, out io.Writer) *Terminal {
	if config.KeyHold <= 0 {
		config.KeyHold = 150 * time.Millisecond
	}

	return &Terminal{
		logger: logger,
		config: config,
		in:     in,
		out:    out,
		events: make(chan emulator.KeyEvent, 16),
		done:   make(chan struct{}),
	}
}

func (t *Terminal) start() {
	input := make(chan byte, 16)
	go t.readInput(input)
	go t.dispatch(input)
}

// Events returns the key event channel. It is closed when escape is pressed,
// the input ends or the terminal is closed.
func (t *Terminal) Events() <-chan emulator.KeyEvent {
	return t.events
}

// SetTone rings the terminal bell when a tone starts.
func (t *Terminal) SetTone(on bool) {
	if !on {
		return
	}
	if _, err := io.WriteString(t.out, bell); err != nil {
		t.logger.Debug("Ringing bell failed", log.Err(err))
	}
}

// Close stops the key processing and restores the terminal settings.
func (t *Terminal) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)

		if _, werr := io.WriteString(t.out, resetGraphics+showCursor+"\n"); werr != nil {
			err = fmt.Errorf("restoring screen: %w", werr)
		}

		if t.original == nil {
			return
		}
		if terr := termios.Tcsetattr(t.fd, termios.TCSANOW, t.original); terr != nil {
			err = fmt.Errorf("restoring terminal settings: %w", terr)
			return
		}
		t.logger.Debug("Restored terminal settings")
	})
	return err
}
