// Package fileprocessor handles the processing of a program file: running
// it or writing its listing, followed by screenshot and verification steps.
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/chip8vm/internal/arch/chip8"
	"github.com/retroenv/chip8vm/internal/config"
	"github.com/retroenv/chip8vm/internal/display"
	"github.com/retroenv/chip8vm/internal/input"
	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/chip8vm/internal/pipeline"
	"github.com/retroenv/chip8vm/internal/verification"
	"github.com/retroenv/retrogolib/log"
)

// ProcessFile handles the complete file processing workflow. Listings and
// rendered frames are written to stdout.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program, emuOpts options.Emulator) error {
	return processFile(ctx, logger, opts, emuOpts, os.Stdout)
}

func processFile(ctx context.Context, logger *log.Logger, opts options.Program, emuOpts options.Emulator,
	stdout io.Writer) error {

	p := pipeline.New(logger)
	if opts.Disasm {
		return writeListing(p, opts, emuOpts, stdout)
	}

	source, err := createInputSource(logger, opts)
	if err != nil {
		return fmt.Errorf("creating input source: %w", err)
	}
	defer func() {
		if err := source.Close(); err != nil {
			logger.Error("Closing input source failed", log.Err(err))
		}
	}()

	renderer, err := createRenderer(opts, stdout)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}

	result, runErr := p.Execute(ctx, opts, emuOpts, source, renderer)
	if result == nil {
		return fmt.Errorf("running program: %w", runErr)
	}

	if opts.Screenshot != "" {
		if err := writeScreenshot(opts.Screenshot, result.Frame, opts.Scale); err != nil {
			return errors.Join(runErr, err)
		}
		logger.Info("Screenshot written", log.String("file", opts.Screenshot))
	}
	if runErr != nil {
		return fmt.Errorf("running program: %w", runErr)
	}

	logger.Info("Emulation ended",
		log.String("reason", string(result.StopReason)),
		log.Uint64("frames", result.Frames),
		log.Uint64("cycles", result.Cycles),
		log.String("frame_hash", display.HashString(result.Frame)))

	if opts.VerifyHash != "" {
		if err := verification.VerifyFrame(logger, opts.VerifyHash, result.Frame); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		logger.Info("Verification successful")
	}
	return nil
}

// writeListing writes the disassembly listing of the program file.
func writeListing(p *pipeline.Pipeline, opts options.Program, emuOpts options.Emulator, w io.Writer) error {
	data, err := p.Load(opts)
	if err != nil {
		return err
	}

	listing := chip8.NewListing(data, emuOpts.EntryPoint, config.CreateListingOptions(opts))
	if err := listing.Write(w); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

// createInputSource combines all input sources enabled by the options.
func createInputSource(logger *log.Logger, opts options.Program) (input.Multi, error) {
	var sources input.Multi

	if opts.Keys != "" {
		script, err := input.ParseScript(opts.Keys)
		if err != nil {
			return nil, fmt.Errorf("parsing key script: %w", err)
		}
		sources = append(sources, script)
	}

	if opts.LuaScript != "" {
		lua, err := input.NewLua(logger, opts.LuaScript)
		if err != nil {
			_ = sources.Close()
			return nil, fmt.Errorf("loading lua script: %w", err)
		}
		sources = append(sources, lua)
	}

	if opts.Interactive {
		terminal, err := input.NewTerminal(logger, os.Stdin, opts.HoldFrames)
		if err != nil {
			_ = sources.Close()
			return nil, fmt.Errorf("opening terminal input: %w", err)
		}
		sources = append(sources, terminal)
	}

	return sources, nil
}

// createRenderer returns the terminal renderer if rendering is enabled.
func createRenderer(opts options.Program, w io.Writer) (pipeline.Renderer, error) {
	if !opts.Render {
		return nil, nil //nolint:nilnil // no renderer is a valid configuration
	}

	if f, ok := w.(*os.File); ok {
		if err := display.TerminalFits(int(f.Fd())); err != nil {
			return nil, fmt.Errorf("checking terminal: %w", err)
		}
	}

	textOptions := []display.TextOption{display.WithCursorHome()}
	if opts.Interactive {
		textOptions = append(textOptions, display.WithRawLineEndings())
	}
	return display.NewTextRenderer(w, textOptions...), nil
}

func writeScreenshot(path string, frame display.Frame, scale int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating screenshot file %s: %w", path, err)
	}

	if err := display.WriteBMP(file, frame, scale); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing screenshot: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing screenshot file: %w", err)
	}
	return nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("chip8vm", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
