// Package loader handles CHIP-8 program file loading, including programs
// packed into ZIP, gzip, tar.gz, 7z and RAR archives.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrogolib/log"
)

var (
	// ErrNoROMFile is returned when an archive contains no CHIP-8 program.
	ErrNoROMFile = errors.New("no program file found in archive")

	// ErrUnsupportedFormat is returned for archive formats that can not be read.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned when a program does not fit into the program region.
	ErrFileTooLarge = errors.New("file exceeds program region size")
)

// Extensions lists the file extensions that identify CHIP-8 programs inside archives.
var Extensions = []string{".ch8", ".c8", ".rom", ".bin"}

var (
	magicZIP      = []byte{0x50, 0x4B, 0x03, 0x04}
	magicZIPEmpty = []byte{0x50, 0x4B, 0x05, 0x06}
	magic7z       = []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}
	magicGzip     = []byte{0x1F, 0x8B}
	magicRAR      = []byte{0x52, 0x61, 0x72, 0x21}
)

type format int

const (
	formatRaw format = iota
	formatZIP
	format7z
	formatGzip
	formatRAR
)

var formatNames = map[format]string{
	formatRaw:  "raw",
	formatZIP:  "zip",
	format7z:   "7z",
	formatGzip: "gzip",
	formatRAR:  "rar",
}

// Loader handles loading program files from disk.
type Loader struct {
	logger *log.Logger
}

// New creates a new program loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// Load reads a program from the given path. Archives are detected by their
// magic bytes or file extension and the first entry with a CHIP-8 program
// extension is extracted. Any other file is loaded as raw program.
// Returns the program data and the base name of the file it was read from.
func (l *Loader) Load(path string) ([]byte, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	header := make([]byte, 8)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("reading file header: %w", err)
	}

	typ := detectFormat(header[:n], path)
	l.logger.Debug("Loading program",
		log.String("path", path),
		log.String("format", formatNames[typ]))

	var data []byte
	var name string

	switch typ {
	case formatZIP:
		data, name, err = extractFromZIP(path)
	case format7z:
		data, name, err = extractFrom7z(path)
	case formatGzip:
		data, name, err = extractFromGzip(path)
	case formatRAR:
		data, name, err = extractFromRAR(path)
	default:
		if _, err = file.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("seeking file: %w", err)
		}
		data, err = limitedRead(file)
		name = filepath.Base(path)
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading %s: %w", path, err)
	}

	return data, name, nil
}

// detectFormat determines the file format from the magic bytes, falling back
// to the file extension for archives with a damaged header.
func detectFormat(header []byte, path string) format {
	switch {
	case bytes.HasPrefix(header, magicZIP), bytes.HasPrefix(header, magicZIPEmpty):
		return formatZIP
	case bytes.HasPrefix(header, magicRAR):
		return formatRAR
	case bytes.HasPrefix(header, magic7z):
		return format7z
	case bytes.HasPrefix(header, magicGzip):
		return formatGzip
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return formatZIP
	case strings.HasSuffix(lower, ".7z"):
		return format7z
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".tgz"):
		return formatGzip
	case strings.HasSuffix(lower, ".rar"):
		return formatRAR
	}
	return formatRaw
}

// isROMFile checks if an archive entry has one of the program extensions.
func isROMFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// limitedRead reads at most the size of the program region from r.
func limitedRead(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, memory.MaxROMSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading data: %w", err)
	}
	if len(data) > memory.MaxROMSize {
		return nil, fmt.Errorf("%w: maximum is %d bytes", ErrFileTooLarge, memory.MaxROMSize)
	}
	return data, nil
}
