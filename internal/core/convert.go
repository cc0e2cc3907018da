package core

// convert.go holds the single numeric parser shared by the builder, the
// resolver and the anomaly detector.
//
// Source cells are typed by hand, so thresholds show up as "1,234", " 1234 ",
// "N/A" or "12OO". Everything that needs to know "is this a number" goes
// through parseNumber so the builder (which stores the result) and the
// anomaly detector (which flags it) can never disagree.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex accepts integers, decimals and scientific notation after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ParseThreshold parses a serial/license cell.
// Surrounding whitespace and every digit-group comma are removed first, so
// "1,234" and "1234" parse to the same value. The stripped text is kept as Raw
// whether or not it parsed.
func ParseThreshold(s string) Number {
	return parseNumber(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

// ParseYear parses a year cell as a plain decimal number. Digit grouping is
// not accepted.
func ParseYear(s string) Number {
	return parseNumber(strings.TrimSpace(s))
}

// ParseSerial parses a query serial with the same rules as thresholds.
func ParseSerial(s string) Number {
	return ParseThreshold(s)
}

func parseNumber(raw string) Number {
	if !numericRegex.MatchString(raw) {
		return Number{Raw: raw}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return Number{Raw: raw}
	}
	return Number{Value: v, Raw: raw, Valid: true}
}
