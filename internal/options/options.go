// Package options contains the program options.
package options

// Defaults of the execution speed options.
const (
	DefaultHz      = 600
	DefaultFPS     = 60
	DefaultKeyHold = 150
)

// Parameters contains file path options.
type Parameters struct {
	Input string `arg:"positional" usage:"CHIP-8 program file or archive"`
}

// Timing contains execution speed options.
type Timing struct {
	Hz      int    `flag:"hz" usage:"instructions executed per second" default:"600"`
	FPS     int    `flag:"fps" usage:"frames per second, also the timer rate" default:"60"`
	KeyHold int    `flag:"keyhold" usage:"milliseconds after which a key press is released" default:"150"`
	Seed    uint64 `flag:"seed" usage:"seed of the random number generator (default: random)"`
}

// Flags contains behavior options.
type Flags struct {
	Trace bool `flag:"trace" usage:"log every executed instruction, requires -debug"`
	Dump  bool `flag:"dump" usage:"print registers and a memory dump on exit"`
	Debug bool `flag:"debug" usage:"enable debug logging"`
	Quiet bool `flag:"q" usage:"quiet mode"`
}

// Program options of the emulator.
type Program struct {
	Parameters
	Timing
	Flags
}
