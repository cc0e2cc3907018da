package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const acmeCSV = "Brand,Year,License\n" +
	"Acme,1900,100\n" +
	",1910,250\n" +
	",1920,N/A\n"

// thresholds extracts threshold values for compact comparison.
func thresholds(bps []Breakpoint) []float64 {
	out := make([]float64, len(bps))
	for i, bp := range bps {
		out[i] = bp.Threshold.Value
	}
	return out
}

func years(bps []Breakpoint) []float64 {
	out := make([]float64, len(bps))
	for i, bp := range bps {
		out[i] = bp.Year.Value
	}
	return out
}

// =============================================================================
// Row rules
// =============================================================================

func TestBuild_AcmeScenario(t *testing.T) {
	table, err := Build(acmeCSV)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	bps, ok := table.Breakpoints("Acme")
	if !ok {
		t.Fatal("Breakpoints(Acme) not found")
	}
	if got, want := thresholds(bps), []float64{100, 250}; !reflect.DeepEqual(got, want) {
		t.Errorf("thresholds = %v, want %v", got, want)
	}
	if got, want := years(bps), []float64{1900, 1910}; !reflect.DeepEqual(got, want) {
		t.Errorf("years = %v, want %v", got, want)
	}

	stats := table.Stats()
	if stats.Lines != 4 {
		t.Errorf("Lines = %d, want 4", stats.Lines)
	}
	if stats.NotAvailableSkipped != 1 {
		t.Errorf("NotAvailableSkipped = %d, want 1", stats.NotAvailableSkipped)
	}
	if stats.BlankSkipped != 1 {
		t.Errorf("BlankSkipped = %d, want 1 (trailing newline)", stats.BlankSkipped)
	}
}

func TestBuild_HeaderAlwaysSkipped(t *testing.T) {
	// The first line is dropped even when it looks like data.
	table, err := Build("Acme,1900,100\nAcme,1910,250")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bps, _ := table.Breakpoints("Acme")
	if len(bps) != 1 || bps[0].Threshold.Value != 250 {
		t.Errorf("breakpoints = %+v, want only threshold 250", bps)
	}
}

func TestBuild_SkipRules(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantBrands []string
		wantCounts map[string]int
	}{
		{
			name:       "blank rows between brands",
			input:      "h\nAcme,1900,100\n,,\n   ,  ,\nZeta,1950,10\n",
			wantBrands: []string{"Acme", "Zeta"},
			wantCounts: map[string]int{"Acme": 1, "Zeta": 1},
		},
		{
			name:       "N/A variants skipped",
			input:      "h\nAcme,1900,100\n,1901,N/A\n,1902,NA\n,1903,N / A\n,1904,200\n",
			wantBrands: []string{"Acme"},
			wantCounts: map[string]int{"Acme": 2},
		},
		{
			name:       "N/A row does not set the current brand",
			input:      "h\nAcme,1900,100\nZeta,1950,N/A\n,1960,300\n",
			wantBrands: []string{"Acme"},
			wantCounts: map[string]int{"Acme": 2},
		},
		{
			name:       "rows before any brand are dropped",
			input:      "h\n,1900,100\n,1901,200\nAcme,1910,300\n",
			wantBrands: []string{"Acme"},
			wantCounts: map[string]int{"Acme": 1},
		},
		{
			name:       "brand is trimmed",
			input:      "h\n  Acme  ,1900,100\n",
			wantBrands: []string{"Acme"},
			wantCounts: map[string]int{"Acme": 1},
		},
		{
			name:       "brand repeated later appends",
			input:      "h\nAcme,1900,100\nZeta,1950,10\nAcme,1920,400\n",
			wantBrands: []string{"Acme", "Zeta"},
			wantCounts: map[string]int{"Acme": 2, "Zeta": 1},
		},
		{
			name:       "short rows keep missing fields empty",
			input:      "h\nAcme,1900\n",
			wantBrands: []string{"Acme"},
			wantCounts: map[string]int{"Acme": 1},
		},
		{
			name:       "header only",
			input:      "Brand,Year,License",
			wantBrands: []string{},
			wantCounts: map[string]int{},
		},
		{
			name:       "empty input",
			input:      "",
			wantBrands: []string{},
			wantCounts: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Build(tt.input)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := table.Brands(); !reflect.DeepEqual(got, tt.wantBrands) {
				t.Errorf("Brands() = %v, want %v", got, tt.wantBrands)
			}
			for brand, want := range tt.wantCounts {
				bps, _ := table.Breakpoints(brand)
				if len(bps) != want {
					t.Errorf("len(Breakpoints(%q)) = %d, want %d", brand, len(bps), want)
				}
			}
		})
	}
}

func TestBuild_QuotedDigitGroups(t *testing.T) {
	table, err := Build("h\nAcme,1900,\"1,234\"\nAcme,1910,\"12,345,678\"\n")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bps, _ := table.Breakpoints("Acme")
	if got, want := thresholds(bps), []float64{1234, 12345678}; !reflect.DeepEqual(got, want) {
		t.Errorf("thresholds = %v, want %v", got, want)
	}
	if bps[0].Threshold.Raw != "1234" {
		t.Errorf("Raw = %q, want %q", bps[0].Threshold.Raw, "1234")
	}
}

func TestBuild_KeepsInvalidCells(t *testing.T) {
	table, err := Build("h\nAcme,19OO,12OO\nAcme,,300\n")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bps, _ := table.Breakpoints("Acme")
	if len(bps) != 2 {
		t.Fatalf("len(breakpoints) = %d, want 2", len(bps))
	}
	if bps[0].Threshold.Valid || bps[0].Year.Valid {
		t.Errorf("first breakpoint = %+v, want both cells invalid", bps[0])
	}
	if bps[0].Threshold.Raw != "12OO" {
		t.Errorf("Threshold.Raw = %q, want %q", bps[0].Threshold.Raw, "12OO")
	}
	if bps[1].Year.Valid {
		t.Errorf("empty year cell parsed as valid")
	}
}

func TestBuild_CRLF(t *testing.T) {
	table, err := Build("h\r\nAcme,1900,100\r\n,1910,250\r\n")
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	bps, _ := table.Breakpoints("Acme")
	if got, want := years(bps), []float64{1900, 1910}; !reflect.DeepEqual(got, want) {
		t.Errorf("years = %v, want %v", got, want)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	input := acmeCSV + "Zeta,1950,\"1,000\"\n,1951,bad\n,,\n"
	a, err := Build(input)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	b, err := Build(input)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("Build() not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestBuild_DigitGroupIndependence(t *testing.T) {
	grouped, _ := Build("h\nAcme,1900,\"1,000\"\n,1910,\"2,500\"\n")
	plain, _ := Build("h\nAcme,1900,1000\n,1910,2500\n")

	for _, q := range []float64{999, 1000, 2499, 2500, 10000} {
		gb, _ := grouped.Breakpoints("Acme")
		pb, _ := plain.Breakpoints("Acme")
		gy, gi, gok := Resolve(gb, q)
		py, pi, pok := Resolve(pb, q)
		if gy.Value != py.Value || gi != pi || gok != pok {
			t.Errorf("Resolve(%v): grouped=(%v,%d,%v) plain=(%v,%d,%v)", q, gy.Value, gi, gok, py.Value, pi, pok)
		}
	}
}

// =============================================================================
// Decoding
// =============================================================================

func TestBuild_InvalidUTF8(t *testing.T) {
	_, err := Build("h\nAc\xffme,1900,100\n")
	if err == nil {
		t.Fatal("Build() error = nil, want ParseError")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if pe.Offset != 4 {
		t.Errorf("Offset = %d, want 4", pe.Offset)
	}
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Error("errors.Is(err, ErrInvalidEncoding) = false, want true")
	}
}

func TestBuild_LeadingBOM(t *testing.T) {
	table, err := Build(utf8BOM + acmeCSV)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if !table.Has("Acme") {
		t.Error("Has(Acme) = false after BOM")
	}
}

func TestBuildReader(t *testing.T) {
	table, err := BuildReader(strings.NewReader(acmeCSV))
	if err != nil {
		t.Fatalf("BuildReader() error = %v", err)
	}
	if table.Len() != 1 || table.BreakpointCount() != 2 {
		t.Errorf("Len() = %d, BreakpointCount() = %d, want 1, 2", table.Len(), table.BreakpointCount())
	}
}

func TestBrandTable_BreakpointsReturnsCopy(t *testing.T) {
	table, _ := Build(acmeCSV)
	bps, _ := table.Breakpoints("Acme")
	bps[0].Year.Value = 0

	again, _ := table.Breakpoints("Acme")
	if again[0].Year.Value != 1900 {
		t.Errorf("table mutated through Breakpoints(): year = %v", again[0].Year.Value)
	}
}
