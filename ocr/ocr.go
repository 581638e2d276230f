// Package ocr adapts a word-level OCR engine into confidence-filtered text.
//
// The Processor accepts a word iff its engine-reported confidence is strictly
// greater than the configured threshold and its trimmed text is non-empty.
// Engine failures never propagate: they are converted into zero-valued
// results carrying an error string.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Word is a single recognized token with its confidence and bounding box.
type Word struct {
	Text       string `json:"word"`
	Confidence int    `json:"confidence"` // 0-100, engine-reported
	Left       int    `json:"left"`
	Top        int    `json:"top"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Result captures the outcome of recognizing one image.
// When Err is non-empty all counts are zero and HasText is false.
type Result struct {
	ImagePath     string  `json:"image_path"`
	Text          string  `json:"extracted_text"`
	WordCount     int     `json:"word_count"`
	CharCount     int     `json:"char_count"`
	Words         []Word  `json:"word_details"`
	HasText       bool    `json:"has_text"`
	AvgConfidence float64 `json:"average_confidence"`
	Err           string  `json:"error,omitempty"`
}

// Engine produces raw word-level recognition output for one image file.
// Implementations report every word the engine saw; thresholding is the
// Processor's job.
type Engine interface {
	Name() string
	Words(ctx context.Context, imagePath string) ([]Word, error)
}

// Config configures a Processor.
type Config struct {
	// Engine performs the actual recognition. Defaults to Tesseract.
	Engine Engine `json:"-" yaml:"-"`
	// MinConfidence is the word acceptance threshold in [0,100]. A word at
	// exactly the threshold is rejected (strict >). Nil means 50; an
	// explicit zero accepts every word the engine reports.
	MinConfidence *int         `json:"min_confidence" yaml:"min_confidence"`
	Logger        *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Engine == nil {
		c.Engine = NewTesseractEngine()
	}
	if c.MinConfidence == nil {
		def := 50
		c.MinConfidence = &def
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Processor runs an Engine and applies the confidence filter.
type Processor struct {
	engine        Engine
	minConfidence int
	logger        *slog.Logger
}

// New creates a Processor. MinConfidence outside [0,100] is an error.
func New(cfg Config) (*Processor, error) {
	cfg.defaults()
	mc := *cfg.MinConfidence
	if mc < 0 || mc > 100 {
		return nil, fmt.Errorf("min confidence %d out of range [0,100]", mc)
	}
	return &Processor{
		engine:        cfg.Engine,
		minConfidence: mc,
		logger:        cfg.Logger,
	}, nil
}

// MinConfidence returns the configured word acceptance threshold.
func (p *Processor) MinConfidence() int { return p.minConfidence }

// Recognize runs OCR on one image. Accepted words are joined with a single
// space in engine order. Any failure — missing file, decode error, engine
// error — yields a zero-valued Result with Err set; Recognize never returns
// an error itself.
func (p *Processor) Recognize(ctx context.Context, imagePath string) Result {
	if _, err := os.Stat(imagePath); err != nil {
		return errorResult(imagePath, fmt.Errorf("image file not found: %w", err))
	}

	raw, err := p.engine.Words(ctx, imagePath)
	if err != nil {
		return errorResult(imagePath, fmt.Errorf("%s: %w", p.engine.Name(), err))
	}

	var accepted []Word
	var parts []string
	confSum := 0
	for _, w := range raw {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence <= p.minConfidence {
			continue
		}
		w.Text = text
		accepted = append(accepted, w)
		parts = append(parts, text)
		confSum += w.Confidence
	}

	text := strings.Join(parts, " ")
	avg := 0.0
	if len(accepted) > 0 {
		avg = float64(confSum) / float64(len(accepted))
	}

	return Result{
		ImagePath:     imagePath,
		Text:          text,
		WordCount:     len(accepted),
		CharCount:     len(text),
		Words:         accepted,
		HasText:       len(accepted) > 0,
		AvgConfidence: avg,
	}
}

// RecognizeAll runs Recognize over every path in order.
func (p *Processor) RecognizeAll(ctx context.Context, imagePaths []string) []Result {
	results := make([]Result, 0, len(imagePaths))
	for _, path := range imagePaths {
		p.logger.Debug("running OCR", "image", path)
		results = append(results, p.Recognize(ctx, path))
	}
	return results
}

// FilterUseful keeps results that carry meaningful text: HasText, at least
// minWords accepted words and minChars characters. The backing image file of
// every rejected result is deleted from disk if it still exists — there is
// no undo. Re-running the filter on its own output performs no deletions.
func (p *Processor) FilterUseful(results []Result, minWords, minChars int) []Result {
	var useful []Result
	for _, r := range results {
		if r.HasText && r.WordCount >= minWords && r.CharCount >= minChars {
			useful = append(useful, r)
			continue
		}
		if _, err := os.Stat(r.ImagePath); err == nil {
			if err := os.Remove(r.ImagePath); err != nil {
				p.logger.Warn("failed to remove rejected image", "image", r.ImagePath, "error", err)
			} else {
				p.logger.Debug("removed image with no useful text", "image", r.ImagePath)
			}
		}
	}
	return useful
}

func errorResult(imagePath string, err error) Result {
	return Result{
		ImagePath: imagePath,
		Err:       err.Error(),
	}
}
