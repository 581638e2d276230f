package filescan

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

func quietScanner() *Scanner {
	return New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

func touch(t *testing.T, dir, name string, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDiscover_ExtensionFilter(t *testing.T) {
	// WHAT: N files match the pattern, only M carry allowed extensions →
	// exactly M records, sorted by path.
	// WHY: The allow-list is the contract between discovery and dispatch.
	dir := t.TempDir()
	touch(t, dir, "b.pdf", "x")
	touch(t, dir, "a.pdf", "x")
	touch(t, dir, "notes.txt", "x")
	touch(t, dir, "image.png", "x")

	recs := quietScanner().Discover(dir, "*.*", []string{".pdf", ".txt"})
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if !sort.SliceIsSorted(recs, func(i, j int) bool { return recs[i].Path < recs[j].Path }) {
		t.Error("records are not sorted by path")
	}
	for _, r := range recs {
		if r.Extension != ".pdf" && r.Extension != ".txt" {
			t.Errorf("unexpected extension %q", r.Extension)
		}
	}
}

func TestDiscover_CaseInsensitiveExtensions(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "REPORT.PDF", "x")

	recs := quietScanner().Discover(dir, "*.*", []string{".pdf"})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	if recs[0].Extension != ".pdf" {
		t.Errorf("extension = %q, want lower-cased .pdf", recs[0].Extension)
	}
}

func TestDiscover_MissingDirectory(t *testing.T) {
	// WHAT: A missing directory yields an empty result, not a panic or error.
	// WHY: Discovery errors are never fatal.
	recs := quietScanner().Discover("/nonexistent/dockb-test-dir", "*.pdf", nil)
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
}

func TestDiscover_PathIsFile(t *testing.T) {
	dir := t.TempDir()
	path := touch(t, dir, "a.pdf", "x")

	recs := quietScanner().Discover(path, "*.pdf", nil)
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0 for non-directory path", len(recs))
	}
}

func TestDiscover_Metadata(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "doc.pdf", strings.Repeat("a", 2048))

	recs := quietScanner().Discover(dir, "*.pdf", []string{".pdf"})
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	r := recs[0]
	if r.SizeBytes != 2048 {
		t.Errorf("size = %d, want 2048", r.SizeBytes)
	}
	if r.Name != "doc.pdf" {
		t.Errorf("name = %q", r.Name)
	}
	if !filepath.IsAbs(r.Path) {
		t.Errorf("path %q is not absolute", r.Path)
	}
	if !r.Readable {
		t.Error("expected readable")
	}
	if r.Modified.IsZero() {
		t.Error("expected non-zero mtime")
	}
}

func TestWriteSummary(t *testing.T) {
	// WHAT: The tabular report carries the readable count and total size.
	// WHY: This is the operator's pre-confirmation view of the batch.
	dir := t.TempDir()
	touch(t, dir, "one.pdf", "x")
	touch(t, dir, "two.pdf", "x")
	recs := quietScanner().Discover(dir, "*.pdf", []string{".pdf"})

	var sb strings.Builder
	WriteSummary(&sb, recs, "PDF")
	out := sb.String()

	if !strings.Contains(out, "Found 2 PDF files") {
		t.Errorf("missing header: %q", out)
	}
	if !strings.Contains(out, "Total readable files: 2/2") {
		t.Errorf("missing readable count: %q", out)
	}
	if !strings.Contains(out, "one.pdf") || !strings.Contains(out, "two.pdf") {
		t.Errorf("missing file rows: %q", out)
	}
}

func TestWriteSummary_Empty(t *testing.T) {
	var sb strings.Builder
	WriteSummary(&sb, nil, "document")
	if !strings.Contains(sb.String(), "No document files found.") {
		t.Errorf("unexpected output: %q", sb.String())
	}
}
