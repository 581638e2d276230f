package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	// WHAT: Defaults mirror the documented processing thresholds.
	// WHY: Components rely on these values when no config file is given.
	cfg := DefaultConfig()

	if cfg.PDF.MinImageWidth != 100 || cfg.PDF.MinImageHeight != 100 {
		t.Errorf("min image size = %dx%d, want 100x100", cfg.PDF.MinImageWidth, cfg.PDF.MinImageHeight)
	}
	if cfg.PDF.MaxPages != 0 {
		t.Errorf("max_pages = %d, want 0 (all pages)", cfg.PDF.MaxPages)
	}
	if cfg.OCR.MinConfidence != 50 {
		t.Errorf("ocr.min_confidence = %d, want 50", cfg.OCR.MinConfidence)
	}
	if cfg.OCR.MinWords != 3 || cfg.OCR.MinChars != 10 {
		t.Errorf("usefulness thresholds = %d/%d, want 3/10", cfg.OCR.MinWords, cfg.OCR.MinChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	// WHAT: A partial YAML file overrides only the keys it names.
	// WHY: Operators should not have to repeat every default.
	dir := t.TempDir()
	path := filepath.Join(dir, "dockb.yaml")
	data := `
paths:
  source: /srv/docs
pdf:
  max_pages: 12
ocr:
  min_confidence: 70
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Paths.Source != "/srv/docs" {
		t.Errorf("paths.source = %q", cfg.Paths.Source)
	}
	if cfg.PDF.MaxPages != 12 {
		t.Errorf("pdf.max_pages = %d, want 12", cfg.PDF.MaxPages)
	}
	if cfg.OCR.MinConfidence != 70 {
		t.Errorf("ocr.min_confidence = %d, want 70", cfg.OCR.MinConfidence)
	}
	// Untouched keys keep their defaults.
	if cfg.PDF.MinImageWidth != 100 {
		t.Errorf("pdf.min_image_width = %d, want default 100", cfg.PDF.MinImageWidth)
	}
	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Errorf("embedding.model = %q, want default", cfg.Embedding.Model)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"confidence over 100", func(c *Config) { c.OCR.MinConfidence = 101 }, "min_confidence"},
		{"negative confidence", func(c *Config) { c.OCR.MinConfidence = -1 }, "min_confidence"},
		{"zero image width", func(c *Config) { c.PDF.MinImageWidth = 0 }, "min_image_width"},
		{"negative max pages", func(c *Config) { c.PDF.MaxPages = -1 }, "max_pages"},
		{"empty source", func(c *Config) { c.Paths.Source = "" }, "paths.source"},
		{"overlap >= size", func(c *Config) { c.Chunking.Overlap = 1000 }, "overlap"},
		{"empty ledger", func(c *Config) { c.LedgerPath = "" }, "ledger_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	// WHAT: EnsureDirs creates every configured directory, vectors included.
	// WHY: The CLI bootstraps the directory layout on startup.
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths.Source = filepath.Join(dir, "in")
	cfg.Paths.Images = filepath.Join(dir, "img")
	cfg.Paths.Processed = filepath.Join(dir, "out")
	cfg.Paths.Logs = filepath.Join(dir, "logs")
	cfg.Paths.Vectors = filepath.Join(dir, "vec")
	cfg.LedgerPath = filepath.Join(dir, "db", "dockb.db")

	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{cfg.Paths.Source, cfg.Paths.Images, cfg.Paths.Processed,
		cfg.Paths.Logs, cfg.Paths.Vectors, filepath.Join(dir, "db")} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", d)
		}
	}
}
