// Package detector handles system architecture detection.
package detector

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/retroenv/chip8vm/internal/options"
	"github.com/retroenv/retrogolib/arch"
	"github.com/retroenv/retrogolib/log"
)

// archiveExtensions are stripped before the program extension is inspected.
var archiveExtensions = map[string]struct{}{
	".zip": {},
	".gz":  {},
	".7z":  {},
}

// Detector handles system architecture detection from file extensions and options.
type Detector struct {
	logger *log.Logger
}

// New creates a new system detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the system architecture from options or file auto-detection.
// An explicitly specified system wins, otherwise the system is derived from
// the input filename extension.
func (d *Detector) Detect(opts options.Program) arch.System {
	if opts.System != "" {
		system, ok := arch.SystemFromString(opts.System)
		if ok {
			return system
		}
		d.logger.Warn("Unsupported system option, detecting from file",
			log.String("system", opts.System))
	}

	system := d.detectFromFile(opts.Input)
	d.logger.Debug("Auto-detected system",
		log.Stringer("system", system),
		log.String("file", opts.Input))
	return system
}

// Validate returns an error if the system can not be emulated.
func Validate(system arch.System) error {
	if system != arch.CHIP8System {
		return fmt.Errorf("unsupported system '%s', only '%s' programs can be run", system, arch.CHIP8System)
	}
	return nil
}

// detectFromFile determines the system type based on file extension.
// Archives are inspected by the extension of the contained file name,
// for example game.ch8.gz.
func (d *Detector) detectFromFile(filename string) arch.System {
	name := strings.ToLower(filepath.Base(filename))
	ext := filepath.Ext(name)
	if _, ok := archiveExtensions[ext]; ok {
		name = strings.TrimSuffix(name, ext)
		ext = filepath.Ext(name)
	}

	switch ext {
	case ".ch8", ".c8", ".rom", "":
		return arch.CHIP8System
	case ".nes":
		return arch.NES
	default:
		d.logger.Warn("Unknown file extension, assuming CHIP-8 program",
			log.String("extension", ext))
		return arch.CHIP8System
	}
}
