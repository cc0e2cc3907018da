package core

import (
	"fmt"
	"strings"
)

// Resolve returns the year whose range contains serial q, the index of the
// breakpoint that supplied it, and whether any breakpoint matched.
//
// The scan is positional over encounter order, not a search over sorted
// thresholds:
//
//  1. find the first breakpoint whose valid threshold is > q;
//  2. if it is not the first breakpoint, the previous breakpoint's year applies;
//  3. if it is the first breakpoint, q predates the table: no match;
//  4. if none exceeds q, the last breakpoint applies when its threshold is
//     valid and <= q (the open-ended top range); otherwise no match.
//
// Thresholds that did not parse never compare greater than q. Equality with a
// threshold selects that breakpoint (ranges are inclusive at the bottom).
// Resolve never panics, including on empty or disordered input.
func Resolve(bps []Breakpoint, q float64) (Number, int, bool) {
	if len(bps) == 0 {
		return Number{}, -1, false
	}

	i := firstAbove(bps, q)
	switch {
	case i > 0:
		return bps[i-1].Year, i - 1, true
	case i == 0:
		return Number{}, -1, false
	}

	last := len(bps) - 1
	if t := bps[last].Threshold; t.Valid && t.Value <= q {
		return bps[last].Year, last, true
	}
	return Number{}, -1, false
}

// firstAbove returns the index of the first valid threshold greater than q, or -1.
func firstAbove(bps []Breakpoint, q float64) int {
	for i, bp := range bps {
		if bp.Threshold.Valid && bp.Threshold.Value > q {
			return i
		}
	}
	return -1
}

// Lookup resolves a (brand, serial) query against table.
//
// brand is matched case-sensitively after trimming. serialText is trimmed and
// parsed with [ParseSerial]. Unknown brands and non-numeric serials are
// caller errors; a valid query that no breakpoint covers returns a result with
// a nil Year and no error.
func Lookup(table *BrandTable, brand, serialText string) (QueryResult, error) {
	brand = strings.TrimSpace(brand)
	serialText = strings.TrimSpace(serialText)
	result := QueryResult{Brand: brand, Serial: serialText, Index: -1}

	bps, ok := table.brands[brand]
	if !ok {
		return result, fmt.Errorf("%w: %q", ErrUnknownBrand, brand)
	}

	serial := ParseSerial(serialText)
	if !serial.Valid {
		return result, fmt.Errorf("%w: %q", ErrInvalidSerial, serialText)
	}

	year, idx, matched := Resolve(bps, serial.Value)
	if !matched {
		return result, nil
	}
	result.Index = idx
	if y, ok := year.Int(); ok {
		result.Year = &y
	}
	return result, nil
}
