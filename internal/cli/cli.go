// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/retrochip8/internal/options"
)

const maxFPS = 1000

// ParseFlags parses command line flags and returns the program options
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard) // defaults are printed by UsageError.ShowUsage
	var opts options.Program
	readOptionFlags(flags, &opts)

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, &UsageError{flags: flags}
		}
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}

	args := flags.Args()
	if len(args) == 0 {
		return opts, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, err
	}

	if err := validateOptions(opts); err != nil {
		return opts, err
	}

	opts.Input = args[0]
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retrochip8 [options] <program file>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(os.Stdout)
		e.flags.PrintDefaults()
	}
	fmt.Println()
	fmt.Println("keys: 1 2 3 4 / q w e r / a s d f / z x c v, escape quits")
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg != "" && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after program file, please pass the program file as last argument", arg),
			}
		}
	}
	return nil
}

// validateOptions checks that the speed options are in range
func validateOptions(opts options.Program) error {
	switch {
	case opts.Hz <= 0:
		return fmt.Errorf("invalid instruction rate %d: must be positive", opts.Hz)
	case opts.FPS <= 0 || opts.FPS > maxFPS:
		return fmt.Errorf("invalid frame rate %d: must be between 1 and %d", opts.FPS, maxFPS)
	case opts.FPS > opts.Hz:
		return fmt.Errorf("frame rate %d exceeds instruction rate %d", opts.FPS, opts.Hz)
	case opts.KeyHold <= 0:
		return fmt.Errorf("invalid key hold time %d: must be positive", opts.KeyHold)
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.IntVar(&opts.Hz, "hz", options.DefaultHz, "instructions executed per second")
	flags.IntVar(&opts.FPS, "fps", options.DefaultFPS, "frames per second, also the rate of the delay and sound timers")
	flags.IntVar(&opts.KeyHold, "keyhold", options.DefaultKeyHold, "milliseconds after which a key press is released, terminals do not report key releases")
	flags.Uint64Var(&opts.Seed, "seed", 0, "seed of the random number generator, a random seed is used if not set")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, requires -debug")
	flags.BoolVar(&opts.Dump, "dump", false, "print the registers and a memory dump of the program on exit")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
