// Package config holds the full dockb configuration.
//
// The configuration is loaded once at startup and passed into each component
// constructor. Components never reach into ambient global state.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete dockb configuration surface.
type Config struct {
	AppName  string `yaml:"app_name"`
	LogLevel string `yaml:"log_level"`

	Paths      PathsConfig     `yaml:"paths"`
	PDF        PDFConfig       `yaml:"pdf"`
	OCR        OCRConfig       `yaml:"ocr"`
	Chunking   ChunkingConfig  `yaml:"chunking"`
	Embedding  EmbeddingConfig `yaml:"embedding"`
	Retrieval  RetrievalConfig `yaml:"retrieval"`
	LedgerPath string          `yaml:"ledger_path"`
	Listen     string          `yaml:"listen"`
}

// PathsConfig names the working directories. All are created on startup.
type PathsConfig struct {
	Source    string `yaml:"source"`     // input documents
	Images    string `yaml:"images"`     // extracted image assets
	Processed string `yaml:"processed"`  // per-file JSON summaries
	Logs      string `yaml:"logs"`       // log files
	Vectors   string `yaml:"vectors"`    // reserved for the vector layer, not written by the core
}

// PDFConfig configures PDF extraction.
type PDFConfig struct {
	// MaxPages caps the number of pages processed per PDF. Zero means all pages.
	MaxPages int `yaml:"max_pages"`
	// MinImageWidth/MinImageHeight filter out icon/logo noise. Embedded images
	// below either threshold are discarded without being saved.
	MinImageWidth  int `yaml:"min_image_width"`
	MinImageHeight int `yaml:"min_image_height"`
}

// OCRConfig configures the OCR adapter and the usefulness filter.
type OCRConfig struct {
	MinConfidence int `yaml:"min_confidence"` // word acceptance threshold, 0-100
	MinWords      int `yaml:"min_words"`      // usefulness filter
	MinChars      int `yaml:"min_chars"`      // usefulness filter
}

// ChunkingConfig is recognized but unused by the core; reserved for the
// vector layer.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// EmbeddingConfig is recognized but unused by the core; reserved for the
// vector layer.
type EmbeddingConfig struct {
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// RetrievalConfig is recognized but unused by the core; reserved for the
// vector layer.
type RetrievalConfig struct {
	TopK                int     `yaml:"top_k"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		AppName:  "dockb",
		LogLevel: "info",
		Paths: PathsConfig{
			Source:    "data/pdfs",
			Images:    "data/images",
			Processed: "data/processed",
			Logs:      "logs",
			Vectors:   "data/vectors",
		},
		PDF: PDFConfig{
			MaxPages:       0,
			MinImageWidth:  100,
			MinImageHeight: 100,
		},
		OCR: OCRConfig{
			MinConfidence: 50,
			MinWords:      3,
			MinChars:      10,
		},
		Chunking:   ChunkingConfig{Size: 1000, Overlap: 100},
		Embedding:  EmbeddingConfig{Model: "all-MiniLM-L6-v2", Dimension: 384},
		Retrieval:  RetrievalConfig{TopK: 5, SimilarityThreshold: 0.7},
		LedgerPath: "data/dockb.db",
		Listen:     ":8086",
	}
}

// LoadConfig reads and parses a YAML config file. Returns DefaultConfig
// merged with the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.Paths.Source == "" {
		return fmt.Errorf("paths.source is required")
	}
	if c.Paths.Images == "" {
		return fmt.Errorf("paths.images is required")
	}
	if c.Paths.Processed == "" {
		return fmt.Errorf("paths.processed is required")
	}
	if c.PDF.MaxPages < 0 {
		return fmt.Errorf("pdf.max_pages must be >= 0")
	}
	if c.PDF.MinImageWidth <= 0 || c.PDF.MinImageHeight <= 0 {
		return fmt.Errorf("pdf.min_image_width and pdf.min_image_height must be > 0")
	}
	if c.OCR.MinConfidence < 0 || c.OCR.MinConfidence > 100 {
		return fmt.Errorf("ocr.min_confidence must be in [0,100]")
	}
	if c.OCR.MinWords < 0 || c.OCR.MinChars < 0 {
		return fmt.Errorf("ocr.min_words and ocr.min_chars must be >= 0")
	}
	if c.Chunking.Size <= 0 || c.Chunking.Overlap < 0 {
		return fmt.Errorf("chunking.size must be > 0 and chunking.overlap >= 0")
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be smaller than chunking.size")
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be > 0")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be > 0")
	}
	if c.Retrieval.SimilarityThreshold < 0 || c.Retrieval.SimilarityThreshold > 1 {
		return fmt.Errorf("retrieval.similarity_threshold must be in [0,1]")
	}
	if c.LedgerPath == "" {
		return fmt.Errorf("ledger_path is required")
	}
	return nil
}

// SlogLevel maps the configured log level string to a slog.Level.
// Unrecognized values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnsureDirs creates all configured directories if absent, including the
// ledger's parent directory.
func (c *Config) EnsureDirs() error {
	dirs := []string{
		c.Paths.Source,
		c.Paths.Images,
		c.Paths.Processed,
		c.Paths.Logs,
		c.Paths.Vectors,
		filepath.Dir(c.LedgerPath),
	}
	for _, d := range dirs {
		if d == "" || d == "." {
			continue
		}
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", d, err)
		}
	}
	return nil
}
