package core

import (
	"math"
	"time"
)

// Number is the result of parsing a numeric CSV cell.
//
// Raw keeps the displayable text (for thresholds, with digit-group commas
// already removed) so an unparsable cell can still be shown to a reviewer.
// An invalid Number always has a zero Value.
type Number struct {
	Value float64 `json:"value"`
	Raw   string  `json:"raw"`
	Valid bool    `json:"valid"`
}

// Int returns the value as an int. It reports false when the cell did not
// parse, is not a whole number, or lies outside the int range; such a cell is
// shown as written rather than rounded into a year.
func (n Number) Int() (int, bool) {
	if !n.Valid || n.Value != math.Trunc(n.Value) {
		return 0, false
	}
	if n.Value < math.MinInt32 || n.Value > math.MaxInt32 {
		return 0, false
	}
	return int(n.Value), true
}

// String returns the raw text of the cell.
func (n Number) String() string {
	return n.Raw
}

// Breakpoint marks the serial threshold at which a production year begins.
// The range is inclusive at Threshold and open-ended up to the next
// breakpoint of the same brand.
type Breakpoint struct {
	Threshold Number `json:"threshold"`
	Year      Number `json:"year"`
}

// BuildStats counts what happened to each data line during a build.
type BuildStats struct {
	Lines               int `json:"lines"`
	BlankSkipped        int `json:"blankSkipped"`
	NotAvailableSkipped int `json:"notAvailableSkipped"`
	OrphanSkipped       int `json:"orphanSkipped"`
	Breakpoints         int `json:"breakpoints"`
}

// BrandTable maps brand names to their breakpoints in encounter order.
//
// A BrandTable is immutable once built. Breakpoint sequences are kept in the
// order the source listed them and are never sorted; see [Resolve]. Every
// brand present in the table has at least one breakpoint.
type BrandTable struct {
	brands map[string][]Breakpoint
	order  []string
	stats  BuildStats
}

func newBrandTable() *BrandTable {
	return &BrandTable{brands: make(map[string][]Breakpoint)}
}

// append adds a breakpoint for brand, registering the brand on first use.
func (t *BrandTable) append(brand string, bp Breakpoint) {
	if _, ok := t.brands[brand]; !ok {
		t.order = append(t.order, brand)
	}
	t.brands[brand] = append(t.brands[brand], bp)
	t.stats.Breakpoints++
}

// Brands returns brand names in the order they first appeared in the source.
func (t *BrandTable) Brands() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Breakpoints returns a copy of the brand's breakpoints and whether the brand exists.
func (t *BrandTable) Breakpoints(brand string) ([]Breakpoint, bool) {
	bps, ok := t.brands[brand]
	if !ok {
		return nil, false
	}
	out := make([]Breakpoint, len(bps))
	copy(out, bps)
	return out, true
}

// Has reports whether the table contains brand (case-sensitive).
func (t *BrandTable) Has(brand string) bool {
	_, ok := t.brands[brand]
	return ok
}

// Len returns the number of brands.
func (t *BrandTable) Len() int {
	return len(t.order)
}

// BreakpointCount returns the total number of breakpoints across all brands.
func (t *BrandTable) BreakpointCount() int {
	return t.stats.Breakpoints
}

// Stats returns the counters captured while the table was built.
func (t *BrandTable) Stats() BuildStats {
	return t.stats
}

// QueryResult is the answer to a single (brand, serial) lookup.
//
// Year is nil when no breakpoint matched (Index is -1) or when the matching
// breakpoint's year cell did not parse (Index points at that breakpoint).
type QueryResult struct {
	Brand  string `json:"brand"`
	Serial string `json:"serial"`
	Year   *int   `json:"year"`
	Index  int    `json:"index"`
}

// Matched reports whether a breakpoint covered the serial.
func (r QueryResult) Matched() bool {
	return r.Index >= 0
}

// Snapshot is an immutable, published build of the source.
type Snapshot struct {
	ID       string        `json:"id"`
	Source   string        `json:"source"`
	LoadedAt time.Time     `json:"loadedAt"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
	Table    *BrandTable   `json:"-"`
}

// BreakpointRow is one breakpoint prepared for diagnostic display.
type BreakpointRow struct {
	Index     int         `json:"index"`
	Threshold string      `json:"threshold"`
	Year      string      `json:"year"`
	Flags     AnomalyFlag `json:"flags"`
	Anomalous bool        `json:"anomalous"`
	// Highlight is set on rows whose year equals the resolved year of the
	// serial passed to BrandDetail.
	Highlight bool `json:"highlight"`
}

// BrandDetail is a brand's full breakpoint listing with anomaly flags.
type BrandDetail struct {
	Brand  string          `json:"brand"`
	Rows   []BreakpointRow `json:"rows"`
	Result *QueryResult    `json:"result,omitempty"`
}
