// Package config handles application configuration and setup
package config

import (
	"math/rand/v2"
	"time"

	"github.com/retroenv/retrochip8/internal/cpu"
	"github.com/retroenv/retrochip8/internal/emulator"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/terminal"
	"github.com/retroenv/retrogolib/log"
)

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// EmulatorConfig converts the program options into the emulator configuration.
// A zero seed is replaced by a random one.
func EmulatorConfig(opts options.Program) emulator.Config {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return emulator.Config{
		CyclesPerFrame: max(opts.Hz/max(opts.FPS, 1), 1),
		FrameRate:      opts.FPS,
		CPU: cpu.Config{
			Seed:  seed,
			Trace: opts.Trace,
		},
	}
}

// TerminalConfig converts the program options into the terminal configuration.
func TerminalConfig(opts options.Program) terminal.Config {
	return terminal.Config{
		KeyHold: time.Duration(opts.KeyHold) * time.Millisecond,
	}
}
