package core

// decode.go prepares fetched source bytes for the builder.
//
// The builder needs the complete text, so the source is read in full, but
// never more than DecodeOptions.MaxSize bytes. Spreadsheet exports from
// Windows often start with a UTF-8 BOM; it is dropped here. Invalid UTF-8 is
// either rejected (the builder returns a ParseError) or, when SanitizeUTF8 is
// set, replaced with '?' so a single bad cell does not block a reload.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

var bomBytes = []byte{0xEF, 0xBB, 0xBF}

// DecodeOptions controls how raw source bytes are turned into text.
type DecodeOptions struct {
	MaxSize      int64 // maximum bytes accepted; 0 means unlimited
	SanitizeUTF8 bool  // replace invalid UTF-8 sequences instead of failing
}

// countingReader tracks how many bytes were pulled from the wrapped reader.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadSource reads r completely and returns its text and the number of bytes read.
// It returns ErrSourceTooLarge when the input exceeds opts.MaxSize.
func ReadSource(r io.Reader, opts DecodeOptions) (string, int64, error) {
	counter := &countingReader{r: r}

	var src io.Reader = counter
	if opts.MaxSize > 0 {
		src = io.LimitReader(counter, opts.MaxSize+1)
	}

	data, err := io.ReadAll(skipBOM(src))
	if err != nil {
		return "", counter.n, fmt.Errorf("read source: %w", err)
	}
	if opts.MaxSize > 0 && counter.n > opts.MaxSize {
		return "", counter.n, fmt.Errorf("%w: more than %d bytes", ErrSourceTooLarge, opts.MaxSize)
	}

	if opts.SanitizeUTF8 {
		data = bytes.ToValidUTF8(data, []byte("?"))
	}
	return string(data), counter.n, nil
}

// skipBOM returns a reader positioned after a leading UTF-8 BOM, if present.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bomBytes)); err == nil && bytes.Equal(head, bomBytes) {
		_, _ = br.Discard(len(bomBytes))
	}
	return br
}
