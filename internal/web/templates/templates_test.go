package templates

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/serialyear/internal/core"
	"github.com/JonMunkholm/serialyear/internal/history"
)

func intPtr(v int) *int { return &v }

func TestErrorAlert_Escapes(t *testing.T) {
	var b strings.Builder
	if err := ErrorAlert("<b>bad</b>", "retry", "ERR000").Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := b.String()

	if strings.Contains(got, "<b>bad</b>") {
		t.Errorf("message not escaped: %s", got)
	}
	if !strings.Contains(got, "(Code: ERR000)") {
		t.Errorf("missing code: %s", got)
	}
}

func TestIndexPage(t *testing.T) {
	tests := []struct {
		name   string
		data   IndexData
		want   []string
		absent []string
	}{
		{
			name:   "loading",
			data:   IndexData{},
			want:   []string{"still loading"},
			absent: []string{"Recent lookups"},
		},
		{
			name: "result with year",
			data: IndexData{
				Brands:   []string{"Acme", "Old Co"},
				Snapshot: &core.Snapshot{Source: "file:table.csv", LoadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
				Brand:    "Acme",
				Serial:   "1500",
				Result:   &core.QueryResult{Brand: "Acme", Serial: "1500", Year: intPtr(1975), Index: 1},
			},
			want: []string{"Produced in <strong>1975</strong>", `href="/brands/Old%20Co"`, "2 brands from file:table.csv"},
		},
		{
			name: "no match",
			data: IndexData{
				Result: &core.QueryResult{Brand: "Acme", Serial: "5", Index: -1},
			},
			want: []string{"No year covers this serial number."},
		},
		{
			name: "unknown brand with suggestions",
			data: IndexData{
				Brand:       "Acmee",
				Serial:      "10",
				Error:       "Brand not found",
				Suggestions: []string{"Acme"},
			},
			want: []string{"Brand not found", "Did you mean", "/?brand=Acme&amp;serial=10"},
		},
		{
			name: "history",
			data: IndexData{
				History: []history.Entry{
					{Brand: "Acme", Serial: "1500", Year: intPtr(1975), Index: 1},
					{Brand: "Acme", Serial: "9", Index: -1},
				},
			},
			want: []string{"Recent lookups", "<td>1975</td>", "<td>none</td>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			if err := IndexPage(tt.data).Render(context.Background(), &b); err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			got := b.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("page missing %q", w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(got, a) {
					t.Errorf("page should not contain %q", a)
				}
			}
		})
	}
}

func TestBrandPage(t *testing.T) {
	detail := core.BrandDetail{
		Brand: "Acme",
		Rows: []core.BreakpointRow{
			{Index: 0, Threshold: "1000", Year: "1970"},
			{Index: 1, Threshold: "500", Year: "1975", Anomalous: true, Flags: core.AnomalyFlag{OutOfOrder: true}, Highlight: true},
		},
		Result: &core.QueryResult{Brand: "Acme", Serial: "600", Year: intPtr(1975), Index: 1},
	}

	var b strings.Builder
	if err := BrandPage(detail).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := b.String()

	for _, w := range []string{
		`<tr class="anomalous highlight"><td>1</td>`,
		`<tr class=""><td>0</td>`,
		"out of order",
		`value="600"`,
		"<title>Acme breakpoints</title>",
		`href="/brands/Acme?serial=600"`,
	} {
		if !strings.Contains(got, w) {
			t.Errorf("page missing %q", w)
		}
	}
}

func TestFlagText(t *testing.T) {
	tests := []struct {
		flags core.AnomalyFlag
		want  string
	}{
		{core.AnomalyFlag{}, ""},
		{core.AnomalyFlag{NonNumericThreshold: true}, "non-numeric threshold"},
		{core.AnomalyFlag{OutOfOrder: true, DuplicateYear: true}, "out of order, duplicate year"},
	}
	for _, tt := range tests {
		if got := flagText(tt.flags); got != tt.want {
			t.Errorf("flagText(%+v) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}

func TestIndexPage_EscapesUserInput(t *testing.T) {
	data := IndexData{
		Brand:       `"><script>x</script>`,
		Serial:      "1 & 2",
		Error:       "Brand not found",
		Suggestions: []string{"A&B <Co>"},
		History:     []history.Entry{{Brand: "<i>Acme</i>", Serial: "5", Index: 0}},
	}

	var b strings.Builder
	if err := IndexPage(data).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	got := b.String()

	for _, bad := range []string{"<script>", "<i>Acme</i>", "<Co>"} {
		if strings.Contains(got, bad) {
			t.Errorf("page contains unescaped %q", bad)
		}
	}
	for _, w := range []string{
		`value="&#34;&gt;&lt;script&gt;x&lt;/script&gt;"`,
		`value="1 &amp; 2"`,
		`href="/brands/%3Ci%3EAcme%3C%2Fi%3E?serial=5"`,
		"A&amp;B &lt;Co&gt;",
		"<td>?</td>",
	} {
		if !strings.Contains(got, w) {
			t.Errorf("page missing %q", w)
		}
	}
}

func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	if err := IndexPage(IndexData{}).Render(ctx, &b); err == nil {
		t.Error("Render() error = nil, want context error")
	}
	if b.Len() != 0 {
		t.Errorf("Render() wrote %d bytes after cancellation", b.Len())
	}
}

func TestHrefs(t *testing.T) {
	if got := brandHref("Old Co", ""); got != "/brands/Old%20Co" {
		t.Errorf("brandHref() = %q", got)
	}
	if got := brandHref("Acme", "1,500"); got != "/brands/Acme?serial=1%2C500" {
		t.Errorf("brandHref() = %q", got)
	}
	if got := lookupHref("Acme", "10"); got != "/?brand=Acme&serial=10" {
		t.Errorf("lookupHref() = %q", got)
	}
}
