package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/serialyear/internal/config"
)

const sheet = "Brand,Year,License\nAcme,1900,100\n"

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	return string(b)
}

func TestFile_Open(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.csv")
	if err := os.WriteFile(path, []byte(sheet), 0o644); err != nil {
		t.Fatal(err)
	}

	src := NewFile(path)
	if got := src.Name(); got != "file:"+path {
		t.Errorf("Name() = %q", got)
	}

	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := readAll(t, rc); got != sheet {
		t.Errorf("contents = %q, want %q", got, sheet)
	}
}

func TestFile_OpenMissing(t *testing.T) {
	_, err := NewFile(filepath.Join(t.TempDir(), "missing.csv")).Open(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open() error = %v, want os.ErrNotExist", err)
	}
}

func TestFile_OpenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFile("whatever.csv").Open(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Open() error = %v, want context.Canceled", err)
	}
}

func TestHTTP_Open(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = io.WriteString(w, sheet)
	}))
	defer srv.Close()

	rc, err := NewHTTP(srv.URL, time.Second).Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if got := readAll(t, rc); got != sheet {
		t.Errorf("contents = %q, want %q", got, sheet)
	}
}

func TestHTTP_OpenBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTP(srv.URL, time.Second).Open(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Errorf("Open() error = %v, want unexpected status 404", err)
	}
}

func TestHTTP_OpenTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	if _, err := NewHTTP(srv.URL, 50*time.Millisecond).Open(context.Background()); err == nil {
		t.Error("Open() error = nil, want timeout")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.SourceConfig
		wantName string
		wantErr  error
	}{
		{"url", config.SourceConfig{URL: "https://x/sheet.csv"}, "https://x/sheet.csv", nil},
		{"path", config.SourceConfig{Path: "sheet.csv"}, "file:sheet.csv", nil},
		{"url wins", config.SourceConfig{URL: "https://x/a.csv", Path: "b.csv"}, "https://x/a.csv", nil},
		{"none", config.SourceConfig{}, "", ErrNoSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && src.Name() != tt.wantName {
				t.Errorf("Name() = %q, want %q", src.Name(), tt.wantName)
			}
		})
	}
}
