// Package history keeps the list of recent lookups shown next to the search
// form.
//
// History belongs to the caller of the lookup engine: core never remembers
// queries. Stores follow the same rules regardless of backing:
//
//   - Add ignores an entry whose brand and serial equal the most recent one.
//   - Re-adding an older query moves it to the front instead of duplicating it.
//   - List returns newest first.
//   - Remove deletes every entry for a brand and serial.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/serialyear/internal/core"
)

// Entry is one remembered lookup and its answer.
type Entry struct {
	ID        string    `json:"id"`
	Brand     string    `json:"brand"`
	Serial    string    `json:"serial"`
	Year      *int      `json:"year"`
	Index     int       `json:"index"`
	IPAddress string    `json:"-"`
	UserAgent string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Key identifies entries that count as the same query.
func (e Entry) Key() string {
	return e.Brand + "\x00" + e.Serial
}

// Store persists lookup history.
type Store interface {
	Add(ctx context.Context, e Entry) error
	// List returns up to limit entries, newest first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Entry, error)
	// Remove deletes entries for brand and serial and returns how many were removed.
	Remove(ctx context.Context, brand, serial string) (int, error)
	Clear(ctx context.Context) error
}

// NewEntry builds an entry from a lookup result, stamping the client
// address and user agent stored in ctx by the web layer.
func NewEntry(ctx context.Context, res core.QueryResult) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Brand:     res.Brand,
		Serial:    res.Serial,
		Year:      res.Year,
		Index:     res.Index,
		IPAddress: IPAddressFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}
}
