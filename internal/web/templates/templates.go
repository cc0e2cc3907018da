// Package templates renders the HTML pages of the lookup server.
//
// Pages are templ components; edit the .templ files and run `templ generate`
// to refresh the *_templ.go files.
package templates

//go:generate templ generate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
)

// IndexData is everything the index page shows.
type IndexData struct {
	Brands   []string
	Snapshot *core.Snapshot

	// Query echoes the submitted form; Result is set after a lookup.
	Brand  string
	Serial string
	Result *core.QueryResult

	// Error and Suggestions describe a failed lookup.
	Error       string
	Suggestions []string

	History []history.Entry
}

func flagText(f core.AnomalyFlag) string {
	return strings.Join(f.Labels(), ", ")
}

func yearText(year *int, index int) string {
	switch {
	case year != nil:
		return strconv.Itoa(*year)
	case index >= 0:
		return "?"
	default:
		return "none"
	}
}

func snapshotSummary(brands int, snap *core.Snapshot) string {
	return fmt.Sprintf("%d brands from %s, loaded %s.",
		brands, snap.Source, snap.LoadedAt.Format("2006-01-02 15:04 MST"))
}

// resolvedSerial prefills the brand page form with the serial just resolved.
func resolvedSerial(detail core.BrandDetail) string {
	if detail.Result == nil {
		return ""
	}
	return detail.Result.Serial
}

func brandHref(brand, serial string) templ.SafeURL {
	href := "/brands/" + url.PathEscape(brand)
	if serial != "" {
		href += "?serial=" + url.QueryEscape(serial)
	}
	return templ.SafeURL(href)
}

func lookupHref(brand, serial string) templ.SafeURL {
	q := url.Values{"brand": {brand}, "serial": {serial}}
	return templ.SafeURL("/?" + q.Encode())
}
