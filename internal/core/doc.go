// Package core provides the ingestion and lookup engine for serial-year tables.
//
// The package turns a loosely structured CSV export of (brand, year, serial)
// rows into a per-brand breakpoint table and answers "what year was this
// serial made?" against it. It has no transport or UI dependencies and can be
// used by the web server, the CLI, or tests without modification.
//
// # Architecture
//
// Two pure components do the real work:
//
//   - Table Builder: [Build] parses raw text into an immutable [BrandTable].
//     Blank lines and "N/A" rows are skipped, blank brand cells inherit the
//     brand of the previous kept row, and unparsable cells are kept as invalid
//     [Number] values instead of being dropped.
//   - Range Resolver: [Resolve] scans a brand's breakpoints in encounter order
//     and returns the year whose range contains the query. [DetectAnomalies]
//     flags non-numeric thresholds, out-of-order thresholds and duplicate
//     adjacent years for human review.
//
// The [Service] wraps both for long-running callers: it fetches the source
// through a [Source], decodes it, builds a table and publishes it as an
// immutable [Snapshot] with an atomic swap.
//
// # Encounter Order
//
// Breakpoints are never sorted. Source data is maintained by hand and is not
// guaranteed to be numerically ordered, so resolution is positional: the
// first breakpoint whose threshold exceeds the query ends the scan. Sorting
// the sequence would silently change answers for disordered data; anomalies
// are reported instead.
//
// # Error Handling
//
// Row-level problems never fail a build. Only undecodable text produces a
// [*ParseError], and only a failed fetch or decode produces a [*LoadError].
// A lookup that matches no breakpoint is a normal [QueryResult] with a nil
// Year. Technical errors are mapped to user-facing messages with [MapError]:
//
//   - SRC001-SRC005: Source errors (fetch, size, encoding, empty, busy)
//   - LKP001-LKP003: Lookup errors (unknown brand, bad serial, not loaded)
//   - DB004-DB006: Database errors (connection, timeout)
//   - REQ001-REQ002: Request cancelled or timed out
package core
