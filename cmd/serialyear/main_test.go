package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const cliCSV = "Brand,Year,License\n" +
	"Acme,1900,100\n" +
	",1910,250\n" +
	",1910,400\n" +
	"Zeta,1980,500\n" +
	",1985,400\n" +
	"Old Co,1950,10\n"

func writeTable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.csv")
	if err := os.WriteFile(path, []byte(cliCSV), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun(t *testing.T) {
	path := writeTable(t)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantOut    []string
		wantErrOut []string
	}{
		{
			name:     "lookup",
			args:     []string{"-f", path, "-b", "Acme", "-s", "300"},
			wantCode: exitOK,
			wantOut:  []string{"Acme 300: 1910"},
		},
		{
			name:     "lookup without match",
			args:     []string{"-f", path, "-b", "Acme", "-s", "5"},
			wantCode: exitOK,
			wantOut:  []string{"no year covers this serial"},
		},
		{
			name:       "unknown brand suggests",
			args:       []string{"-f", path, "-b", "Acmee", "-s", "5"},
			wantCode:   exitError,
			wantErrOut: []string{"LKP001", "Did you mean: Acme?"},
		},
		{
			name:       "invalid serial",
			args:       []string{"-f", path, "-b", "Acme", "-s", "abc"},
			wantCode:   exitError,
			wantErrOut: []string{"LKP002"},
		},
		{
			name:     "brand detail",
			args:     []string{"-f", path, "-b", "Acme"},
			wantCode: exitOK,
			wantOut:  []string{"THRESHOLD", "duplicate year"},
		},
		{
			name:     "brands filtered",
			args:     []string{"-f", path, "--brands", "-q", "co"},
			wantCode: exitOK,
			wantOut:  []string{"Old Co"},
		},
		{
			name:     "anomalies",
			args:     []string{"-f", path, "-a"},
			wantCode: exitOK,
			wantOut:  []string{"Acme", "Zeta", "out of order"},
		},
		{
			name:       "missing source",
			args:       []string{"-b", "Acme"},
			wantCode:   exitUsage,
			wantErrOut: []string{"--file or --url"},
		},
		{
			name:       "serial without brand",
			args:       []string{"-f", path, "-s", "1"},
			wantCode:   exitUsage,
			wantErrOut: []string{"--serial requires --brand"},
		},
		{
			name:       "missing file",
			args:       []string{"-f", filepath.Join(t.TempDir(), "nope.csv"), "--brands"},
			wantCode:   exitError,
			wantErrOut: []string{"SRC005"},
		},
		{
			name:     "help",
			args:     []string{"--help"},
			wantCode: exitOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := runCLI(tt.args...)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q, got %q", want, stdout)
				}
			}
			for _, want := range tt.wantErrOut {
				if !strings.Contains(stderr, want) {
					t.Errorf("stderr missing %q, got %q", want, stderr)
				}
			}
		})
	}
}

func TestRun_JSON(t *testing.T) {
	path := writeTable(t)

	code, stdout, stderr := runCLI("-f", path, "-b", "Zeta", "-s", "450", "--json")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}

	var got struct {
		Brand   string `json:"brand"`
		Year    *int   `json:"year"`
		Index   int    `json:"index"`
		Matched bool   `json:"matched"`
	}
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if got.Matched || got.Year != nil || got.Index != -1 {
		t.Errorf("result = %+v, want unmatched", got)
	}
}

func TestRun_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(cliCSV))
	}))
	defer srv.Close()

	code, stdout, stderr := runCLI("-u", srv.URL, "-b", "Old Co", "-s", "11")
	if code != exitOK {
		t.Fatalf("exit code = %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "Old Co 11: 1950") {
		t.Errorf("stdout = %q", stdout)
	}
}
