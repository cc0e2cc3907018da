// Command serialyear loads a brand/year/license table once and answers a
// single query from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/JonMunkholm/serialyear/internal/config"
	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/logging"
	"github.com/JonMunkholm/serialyear/internal/source"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file      string
	url       string
	brand     string
	serial    string
	brands    bool
	query     string
	anomalies bool
	json      bool
	maxSize   int64
	timeout   time.Duration
	sanitize  bool
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("serialyear", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: serialyear (--file PATH | --url URL) [options]\n\n")
		fmt.Fprintf(stderr, "serialyear maps a brand and serial number to its production year.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  serialyear -f table.csv -b Acme -s 1500   # Resolve one serial\n")
		fmt.Fprintf(stderr, "  serialyear -f table.csv -b Acme           # Show Acme's breakpoints\n")
		fmt.Fprintf(stderr, "  serialyear -f table.csv --brands -q co    # List brands containing \"co\"\n")
		fmt.Fprintf(stderr, "  serialyear -u https://host/table.csv -a   # Report data anomalies\n")
	}

	fs.StringVarP(&opts.file, "file", "f", "", "Read the table from a local CSV file")
	fs.StringVarP(&opts.url, "url", "u", "", "Fetch the table from an http(s) URL")
	fs.StringVarP(&opts.brand, "brand", "b", "", "Brand to look up")
	fs.StringVarP(&opts.serial, "serial", "s", "", "Serial number to resolve (requires --brand)")
	fs.BoolVar(&opts.brands, "brands", false, "List brands")
	fs.StringVarP(&opts.query, "query", "q", "", "Filter --brands by a case-insensitive substring")
	fs.BoolVarP(&opts.anomalies, "anomalies", "a", false, "Report breakpoints with data-quality problems")
	fs.BoolVarP(&opts.json, "json", "j", false, "Write JSON instead of a table")
	fs.Int64Var(&opts.maxSize, "max-size", 10<<20, "Largest accepted table in bytes (0 for no limit)")
	fs.DurationVar(&opts.timeout, "timeout", source.DefaultFetchTimeout, "Fetch timeout for --url")
	fs.BoolVar(&opts.sanitize, "sanitize", false, "Replace invalid UTF-8 instead of failing")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	switch {
	case opts.file == "" && opts.url == "":
		return opts, errors.New("one of --file or --url is required")
	case opts.file != "" && opts.url != "":
		return opts, errors.New("--file and --url are mutually exclusive")
	case opts.serial != "" && opts.brand == "":
		return opts, errors.New("--serial requires --brand")
	case opts.brand == "" && !opts.brands && !opts.anomalies:
		return opts, errors.New("nothing to do: pass --brand, --brands or --anomalies")
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	logger := logging.New(opts.logLevel, "text", stderr)

	src, err := source.New(config.SourceConfig{
		URL:          opts.url,
		Path:         opts.file,
		FetchTimeout: opts.timeout,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	svc := core.NewService(src, core.WithDecodeOptions(core.DecodeOptions{
		MaxSize:      opts.maxSize,
		SanitizeUTF8: opts.sanitize,
	}))

	snap, err := svc.Reload(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", core.FormatUserError(err))
		logger.Debug("load failed", "error", err)
		return exitError
	}
	logger.Info("table loaded", "source", snap.Source, "brands", snap.Table.Len(), "bytes", snap.Bytes)

	out := &printer{w: stdout, json: opts.json}
	switch {
	case opts.anomalies:
		err = out.anomalies(svc)
	case opts.brands:
		err = out.brands(svc, opts.query)
	case opts.serial != "":
		err = out.lookup(svc, opts.brand, opts.serial)
	default:
		err = out.detail(svc, opts.brand)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", core.FormatUserError(err))
		if errors.Is(err, core.ErrUnknownBrand) {
			if s := svc.Suggest(opts.brand, 3); len(s) > 0 {
				fmt.Fprintf(stderr, "Did you mean: %s?\n", strings.Join(s, ", "))
			}
		}
		logger.Debug("query failed", "error", err)
		return exitError
	}
	return exitOK
}

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
}

func (p *printer) lookup(svc *core.Service, brand, serial string) error {
	res, err := svc.Lookup(brand, serial)
	if err != nil {
		return err
	}
	if p.json {
		return p.encode(struct {
			core.QueryResult
			Matched bool `json:"matched"`
		}{res, res.Matched()})
	}

	switch {
	case res.Year != nil:
		_, err = fmt.Fprintf(p.w, "%s %s: %d\n", res.Brand, res.Serial, *res.Year)
	case res.Matched():
		_, err = fmt.Fprintf(p.w, "%s %s: matching row %d has no usable year\n", res.Brand, res.Serial, res.Index)
	default:
		_, err = fmt.Fprintf(p.w, "%s %s: no year covers this serial\n", res.Brand, res.Serial)
	}
	return err
}

func (p *printer) detail(svc *core.Service, brand string) error {
	detail, err := svc.BrandDetail(brand, "")
	if err != nil {
		return err
	}
	if p.json {
		return p.encode(detail)
	}

	tw := p.table()
	fmt.Fprintln(tw, "#\tTHRESHOLD\tYEAR\tFLAGS")
	for _, row := range detail.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", row.Index, row.Threshold, row.Year, strings.Join(row.Flags.Labels(), ", "))
	}
	return tw.Flush()
}

func (p *printer) brands(svc *core.Service, query string) error {
	brands, err := svc.Brands(query)
	if err != nil {
		return err
	}
	if p.json {
		if brands == nil {
			brands = []string{}
		}
		return p.encode(brands)
	}
	for _, b := range brands {
		if _, err := fmt.Fprintln(p.w, b); err != nil {
			return err
		}
	}
	return nil
}

func (p *printer) anomalies(svc *core.Service) error {
	report, err := svc.Anomalies()
	if err != nil {
		return err
	}
	if p.json {
		if report == nil {
			report = []core.BrandAnomalies{}
		}
		return p.encode(report)
	}
	if len(report) == 0 {
		_, err := fmt.Fprintln(p.w, "no anomalies")
		return err
	}

	tw := p.table()
	fmt.Fprintln(tw, "BRAND\t#\tTHRESHOLD\tYEAR\tFLAGS")
	for _, b := range report {
		for _, row := range b.Rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				b.Brand, strconv.Itoa(row.Index), row.Breakpoint.Threshold.Raw, row.Breakpoint.Year.Raw,
				strings.Join(row.Flags.Labels(), ", "))
		}
	}
	return tw.Flush()
}
