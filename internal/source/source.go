// Package source provides the places a lookup table can be read from.
//
// A source only delivers bytes. Size limits, BOM handling and parsing are
// applied by the core service, so every implementation behaves the same once
// its reader is open.
package source

import (
	"errors"

	"github.com/JonMunkholm/serialyear/internal/config"
	"github.com/JonMunkholm/serialyear/internal/core"
)

// ErrNoSource is returned by New when neither a URL nor a path is configured.
var ErrNoSource = errors.New("no source configured: set SOURCE_URL or SOURCE_PATH")

// New returns the source selected by cfg. URL takes precedence over Path.
func New(cfg config.SourceConfig) (core.Source, error) {
	switch {
	case cfg.URL != "":
		return NewHTTP(cfg.URL, cfg.FetchTimeout), nil
	case cfg.Path != "":
		return NewFile(cfg.Path), nil
	default:
		return nil, ErrNoSource
	}
}
