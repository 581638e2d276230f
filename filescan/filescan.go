// Package filescan discovers and validates candidate document files.
//
// Discovery is a single directory scan: glob match, extension allow-list,
// stat metadata. Nothing here is fatal — unreadable or mismatched files are
// excluded with a logged reason and the scan continues.
package filescan

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileRecord describes one filesystem file considered for processing.
// Records are created during the scan and never mutated afterwards.
type FileRecord struct {
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"` // lower-cased, with leading dot
	SizeBytes int64     `json:"size_bytes"`
	SizeMB    float64   `json:"size_mb"` // rounded to 2 decimals
	Modified  time.Time `json:"modified"`
	// Readable is computed once at discovery time and is advisory: a race
	// between check and use is possible and is not guarded.
	Readable bool `json:"readable"`
}

// Config configures a Scanner.
type Config struct {
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Scanner lists and validates files in a directory.
type Scanner struct {
	logger *slog.Logger
}

// New creates a Scanner with the given configuration.
func New(cfg Config) *Scanner {
	cfg.defaults()
	return &Scanner{logger: cfg.Logger}
}

// Discover returns a FileRecord for every file under dir that matches the
// glob pattern and the extension allow-list (case-insensitive; empty list
// accepts everything). Output is sorted by path. A missing or non-directory
// dir yields an empty result, not an error; per-file stat failures exclude
// the file and the scan continues.
func (s *Scanner) Discover(dir, pattern string, allowedExts []string) []FileRecord {
	info, err := os.Stat(dir)
	if err != nil {
		s.logger.Warn("scan directory does not exist", "dir", dir)
		return nil
	}
	if !info.IsDir() {
		s.logger.Warn("scan path is not a directory", "dir", dir)
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		s.logger.Warn("bad glob pattern", "pattern", pattern, "error", err)
		return nil
	}
	sort.Strings(matches)

	allowed := make(map[string]bool, len(allowedExts))
	for _, ext := range allowedExts {
		allowed[strings.ToLower(ext)] = true
	}

	var records []FileRecord
	for _, path := range matches {
		rec, ok := s.inspect(path, allowed)
		if ok {
			records = append(records, rec)
		}
	}
	return records
}

// inspect validates a single file and collects its metadata.
func (s *Scanner) inspect(path string, allowed map[string]bool) (FileRecord, bool) {
	st, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("stat failed, file excluded", "path", path, "error", err)
		return FileRecord{}, false
	}
	if st.IsDir() {
		return FileRecord{}, false
	}

	ext := strings.ToLower(filepath.Ext(path))
	if len(allowed) > 0 && !allowed[ext] {
		s.logger.Info("extension not in allow-list, file excluded", "path", path, "extension", ext)
		return FileRecord{}, false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	return FileRecord{
		Path:      abs,
		Name:      st.Name(),
		Extension: ext,
		SizeBytes: st.Size(),
		SizeMB:    roundMB(st.Size()),
		Modified:  st.ModTime(),
		Readable:  isReadable(path),
	}, true
}

// isReadable reports whether the file can be opened for reading right now.
func isReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func roundMB(bytes int64) float64 {
	mb := float64(bytes) / (1024 * 1024)
	return math.Round(mb*100) / 100
}
