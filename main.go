// Package main implements the main entry point for a CHIP-8 emulator
// running in a text terminal
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/retrochip8/internal/cli"
	"github.com/retroenv/retrochip8/internal/config"
	"github.com/retroenv/retrochip8/internal/emulator"
	"github.com/retroenv/retrochip8/internal/loader"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/terminal"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Debug, opts.Quiet)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			printBanner(opts)
			if usageErr.Error() != "" {
				logger.Error(usageErr.Error())
			}
			usageErr.ShowUsage()
		} else {
			logger.Error(err.Error())
		}
		os.Exit(1)
	}

	logger := config.CreateLogger(opts.Debug, opts.Quiet)
	printBanner(opts)

	if err := run(ctx, logger, opts); err != nil {
		logger.Error("Emulation failed", log.Err(err))
		os.Exit(1)
	}
}

func printBanner(opts options.Program) {
	if opts.Quiet {
		return
	}
	fmt.Println("[-------------------------------]")
	fmt.Println("[ retrochip8 - CHIP-8 emulator  ]")
	fmt.Printf("[-------------------------------]\n\n")
	fmt.Printf("version: %s\n\n", buildinfo.Version(version, commit, date))
}

func run(ctx context.Context, logger *log.Logger, opts options.Program) error {
	data, name, err := loader.New(logger).Load(opts.Input)
	if err != nil {
		return err
	}

	emu := emulator.New(logger, config.EmulatorConfig(opts))
	if err := emu.LoadROM(data); err != nil {
		return err
	}
	logger.Info("Program loaded",
		log.String("name", name),
		log.Int("size", len(data)))

	term, err := terminal.Open(logger, config.TerminalConfig(opts))
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}

	err = emu.Run(ctx, term)
	if cerr := term.Close(); cerr != nil {
		logger.Error("Restoring terminal failed", log.Err(cerr))
	}

	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("Emulation cancelled")
	case errors.Is(err, emulator.ErrHalted):
		logger.Info("Program halted")
	case err != nil:
		return err
	}

	logger.Info("Emulation finished", log.String("stats", emu.Stats()))

	if opts.Dump {
		fmt.Println(emu.DebugInfo())
		fmt.Print(emu.MemoryDump(memory.ProgramStart, uint16(len(data))))
	}
	return nil
}
