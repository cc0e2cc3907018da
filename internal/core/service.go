package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Source supplies the raw CSV text of the lookup table.
type Source interface {
	// Name identifies the source in logs and load records.
	Name() string
	// Open returns a reader over the current source contents.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// LoadRecord describes one reload attempt, successful or not.
type LoadRecord struct {
	ID          string
	Source      string
	LoadedAt    time.Time
	Duration    time.Duration
	Bytes       int64
	Brands      int
	Breakpoints int
	Anomalies   int
	Stats       BuildStats
	Err         string // empty on success
}

// RecordTimeout bounds how long a finished load waits on its LoadRecorder.
const RecordTimeout = 5 * time.Second

// LoadRecorder persists load records. Recording failures are logged and
// never fail the load itself.
type LoadRecorder interface {
	RecordLoad(ctx context.Context, rec LoadRecord) error
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets where load records are written.
func WithRecorder(r LoadRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLimiter replaces the default load limiter.
func WithLimiter(l *LoadLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithDecodeOptions sets the size cap and UTF-8 handling used on load.
func WithDecodeOptions(opts DecodeOptions) Option {
	return func(s *Service) { s.decode = opts }
}

// Service owns the published lookup table and answers queries against it.
//
// Reloads build a complete new table off to the side and publish it with a
// single atomic swap, so readers always see either the old or the new
// snapshot and never a partial one. A failed reload leaves the previous
// snapshot in place.
type Service struct {
	src      Source
	recorder LoadRecorder
	limiter  *LoadLimiter
	decode   DecodeOptions

	current atomic.Pointer[Snapshot]
}

// NewService creates a Service reading from src. No load happens until
// Reload or StartRefreshScheduler is called.
func NewService(src Source, opts ...Option) *Service {
	s := &Service{src: src}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = NewLoadLimiter(DefaultMaxConcurrentLoads, DefaultLoadWait)
	}
	return s
}

// Reload fetches and rebuilds the table, then publishes it.
func (s *Service) Reload(ctx context.Context) (*Snapshot, error) {
	name := s.src.Name()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	defer s.limiter.Release()

	start := time.Now()
	rec := LoadRecord{ID: uuid.New().String(), Source: name, LoadedAt: start.UTC()}

	table, n, err := s.load(ctx)
	rec.Duration = time.Since(start)
	rec.Bytes = n

	if err != nil {
		rec.Err = err.Error()
		s.record(ctx, rec)
		slog.Error("source load failed",
			"load_id", rec.ID,
			"source", name,
			"duration_ms", rec.Duration.Milliseconds(),
			"error", err,
		)
		return nil, &LoadError{Source: name, Err: err}
	}

	snap := &Snapshot{
		ID:       rec.ID,
		Source:   name,
		LoadedAt: rec.LoadedAt,
		Bytes:    n,
		Duration: rec.Duration,
		Table:    table,
	}
	s.current.Store(snap)

	rec.Brands = table.Len()
	rec.Breakpoints = table.BreakpointCount()
	rec.Anomalies = countAnomalies(table)
	rec.Stats = table.Stats()
	s.record(ctx, rec)

	slog.Info("source loaded",
		"load_id", rec.ID,
		"source", name,
		"bytes", n,
		"brands", rec.Brands,
		"breakpoints", rec.Breakpoints,
		"anomalies", rec.Anomalies,
		"skipped_na", rec.Stats.NotAvailableSkipped,
		"skipped_orphan", rec.Stats.OrphanSkipped,
		"duration_ms", rec.Duration.Milliseconds(),
	)
	return snap, nil
}

// load reads and builds the source without publishing anything.
func (s *Service) load(ctx context.Context) (*BrandTable, int64, error) {
	rc, err := s.src.Open(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	text, n, err := ReadSource(rc, s.decode)
	if err != nil {
		return nil, n, err
	}

	table, err := Build(text)
	if err != nil {
		return nil, n, err
	}
	if table.Len() == 0 {
		return nil, n, ErrEmptySource
	}
	return table, n, nil
}

func (s *Service) record(ctx context.Context, rec LoadRecord) {
	if s.recorder == nil {
		return
	}
	// Record even when the load was cancelled.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RecordTimeout)
	defer cancel()
	if err := s.recorder.RecordLoad(recCtx, rec); err != nil {
		slog.Warn("failed to record source load", "load_id", rec.ID, "error", err)
	}
}

// Snapshot returns the published snapshot, or nil before the first successful load.
func (s *Service) Snapshot() *Snapshot {
	return s.current.Load()
}

// Ready reports whether a table has been published.
func (s *Service) Ready() bool {
	return s.current.Load() != nil
}

// Limiter exposes the load limiter for health output and shutdown draining.
func (s *Service) Limiter() *LoadLimiter {
	return s.limiter
}

func (s *Service) table() (*BrandTable, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap.Table, nil
}

// Lookup resolves brand and serial against the published table.
func (s *Service) Lookup(brand, serial string) (QueryResult, error) {
	table, err := s.table()
	if err != nil {
		return QueryResult{Brand: brand, Serial: serial, Index: -1}, err
	}
	return Lookup(table, brand, serial)
}

// Brands returns the brands containing query, case-insensitively, in table order.
func (s *Service) Brands(query string) ([]string, error) {
	table, err := s.table()
	if err != nil {
		return nil, err
	}
	return FilterBrands(table.order, query), nil
}

// Suggest returns up to n brands spelled similarly to brand.
func (s *Service) Suggest(brand string, n int) []string {
	table, err := s.table()
	if err != nil {
		return nil
	}
	return SuggestBrands(table.order, brand, n)
}

// BrandDetail lists every breakpoint of brand with its anomaly flags.
//
// When serial is non-empty it is resolved too, and rows whose year equals the
// resolved year are marked Highlight. An invalid serial is an error; a serial
// outside every range yields a Result with a nil Year and no highlights.
func (s *Service) BrandDetail(brand, serial string) (BrandDetail, error) {
	table, err := s.table()
	if err != nil {
		return BrandDetail{}, err
	}

	brand = strings.TrimSpace(brand)
	bps, ok := table.brands[brand]
	if !ok {
		return BrandDetail{}, fmt.Errorf("%w: %q", ErrUnknownBrand, brand)
	}

	detail := BrandDetail{Brand: brand, Rows: make([]BreakpointRow, len(bps))}
	if strings.TrimSpace(serial) != "" {
		res, err := Lookup(table, brand, serial)
		if err != nil {
			return BrandDetail{}, err
		}
		detail.Result = &res
	}

	for i, f := range DetectAnomalies(bps) {
		row := BreakpointRow{
			Index:     i,
			Threshold: bps[i].Threshold.Raw,
			Year:      bps[i].Year.Raw,
			Flags:     f,
			Anomalous: f.Any(),
		}
		if detail.Result != nil && detail.Result.Year != nil {
			if y, ok := bps[i].Year.Int(); ok && y == *detail.Result.Year {
				row.Highlight = true
			}
		}
		detail.Rows[i] = row
	}
	return detail, nil
}

// Anomalies returns the anomaly report for the published table.
func (s *Service) Anomalies() ([]BrandAnomalies, error) {
	table, err := s.table()
	if err != nil {
		return nil, err
	}
	return TableAnomalies(table), nil
}

// IsCallerError reports whether err was caused by the query rather than the
// service: an unknown brand or an unparsable serial.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrUnknownBrand) || errors.Is(err, ErrInvalidSerial)
}
