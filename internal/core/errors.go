package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by lookups before the first successful load.
	ErrNotLoaded = errors.New("lookup table not loaded yet")

	// ErrUnknownBrand is returned when a lookup names a brand absent from the table.
	ErrUnknownBrand = errors.New("unknown brand")

	// ErrInvalidSerial is returned when the query serial is not a number.
	ErrInvalidSerial = errors.New("invalid serial number")

	// ErrInvalidEncoding marks source text that is not valid UTF-8.
	ErrInvalidEncoding = errors.New("encoding error: source is not valid UTF-8")

	// ErrSourceTooLarge is returned when the source exceeds the configured size limit.
	ErrSourceTooLarge = errors.New("source too large")

	// ErrEmptySource is returned when a source produced no brands at all.
	ErrEmptySource = errors.New("empty source: no brand rows found")
)

// ParseError reports source text that could not be decoded at all.
// Row-level problems never produce a ParseError.
type ParseError struct {
	Offset int // byte offset of the first undecodable sequence
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v (first bad byte at offset %d)", ErrInvalidEncoding, e.Offset)
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidEncoding
}

// LoadError reports a failed load attempt. The previously published snapshot,
// if any, stays in place.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load source %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
