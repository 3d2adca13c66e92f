package text

import (
	"errors"
	"io/fs"
)

// Sentinel errors for the text package.
var (
	// ErrFileNotFound is returned by Load when the font file does not exist.
	// It also matches fs.ErrNotExist through errors.Is.
	ErrFileNotFound = &notFoundError{}

	// ErrEmptyFile is returned when the font file or data is zero-length.
	ErrEmptyFile = errors.New("text: empty font file")

	// ErrMalformedFont is returned when the font data cannot be parsed.
	ErrMalformedFont = errors.New("text: malformed font")

	// ErrInvalidPixelHeight is returned for a pixel height <= 0.
	ErrInvalidPixelHeight = errors.New("text: pixel height must be positive")

	// ErrFontClosed is returned when a closed Font is used.
	ErrFontClosed = errors.New("text: font is closed")
)

type notFoundError struct{}

func (*notFoundError) Error() string { return "text: font file not found" }

func (*notFoundError) Is(target error) bool { return target == fs.ErrNotExist }

// LoadError records the path of a font file that failed to load.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "text: load " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error { return e.Err }
