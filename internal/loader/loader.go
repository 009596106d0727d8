// Package loader handles program image loading, including images packed
// into zip, gzip or 7z archives.
package loader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/retroenv/chip8vm/internal/interpreter"
	"github.com/retroenv/retrogolib/log"
)

var (
	// ErrEmptyProgram is returned for images without any data.
	ErrEmptyProgram = errors.New("program image is empty")
	// ErrProgramTooLarge is returned for images that do not fit into memory
	// behind the program start address.
	ErrProgramTooLarge = errors.New("program image too large")
	// ErrEmptyArchive is returned for archives that contain no files.
	ErrEmptyArchive = errors.New("archive contains no files")
)

// Loader handles loading program images from disk.
type Loader struct {
	logger *log.Logger
}

// New creates a new program loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load reads the program image from the given file. Archives are detected
// by their file extension and the first contained file is returned.
func (l *Loader) Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return l.LoadFromBytes(path, data)
}

// LoadFromBytes extracts and validates a program image from an in-memory
// buffer. The name is only used to detect the archive format.
func (l *Loader) LoadFromBytes(name string, data []byte) ([]byte, error) {
	var err error
	ext := strings.ToLower(filepath.Ext(name))

	switch ext {
	case ".zip":
		data, err = extractZip(data)
	case ".gz":
		data, err = extractGzip(data)
	case ".7z":
		data, err = extractSevenZip(data)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s archive: %w", ext, err)
	}

	if err := validate(data); err != nil {
		return nil, err
	}

	l.logger.Debug("Program loaded",
		log.String("name", filepath.Base(name)),
		log.Int("size", len(data)))
	return data, nil
}

func validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyProgram
	}
	if len(data) > interpreter.MaxProgramSize {
		return fmt.Errorf("%w: %d bytes exceed the maximum of %d bytes",
			ErrProgramTooLarge, len(data), interpreter.MaxProgramSize)
	}
	return nil
}

func extractZip(data []byte) ([]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening zip: %w", err)
	}

	for _, file := range r.File {
		if file.FileInfo().IsDir() {
			continue
		}
		return readEntry(file.Open)
	}
	return nil, ErrEmptyArchive
}

func extractGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening gzip: %w", err)
	}
	defer func() { _ = r.Close() }()

	return readLimited(r)
}

func extractSevenZip(data []byte) ([]byte, error) {
	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening 7z: %w", err)
	}

	for _, file := range r.File {
		if file.FileInfo().IsDir() {
			continue
		}
		return readEntry(file.Open)
	}
	return nil, ErrEmptyArchive
}

func readEntry(open func() (io.ReadCloser, error)) ([]byte, error) {
	rc, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening archive entry: %w", err)
	}
	defer func() { _ = rc.Close() }()

	return readLimited(rc)
}

// readLimited reads one byte more than the maximum program size so that
// oversized entries are reported without decompressing all of them.
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, interpreter.MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading archive entry: %w", err)
	}
	return data, nil
}
