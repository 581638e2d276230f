// Package ingest orchestrates batch runs over a source directory: discover
// candidate files, show them, ask for confirmation, then dispatch each file
// by extension. A failing file never aborts the batch; every visited file
// ends in exactly one outcome.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dockb/dockb/filescan"
	"github.com/dockb/dockb/idgen"
	"github.com/dockb/dockb/pdfextract"
	"github.com/dockb/dockb/vecstore"
)

// OutcomeKind classifies what happened to one file during a run.
type OutcomeKind string

const (
	OutcomeProcessed      OutcomeKind = "processed"       // extracted, summary written
	OutcomeNotImplemented OutcomeKind = "not_implemented" // recognized type, no handler yet
	OutcomeUnsupported    OutcomeKind = "unsupported"     // extension outside the allow-list
	OutcomeFailed         OutcomeKind = "failed"          // extraction or persistence error
)

// FileOutcome records what a run did with one discovered file.
type FileOutcome struct {
	File        filescan.FileRecord    `json:"file"`
	Kind        OutcomeKind            `json:"outcome"`
	Extraction  *pdfextract.Extraction `json:"extraction,omitempty"`
	SummaryPath string                 `json:"summary_path,omitempty"`
	Err         string                 `json:"error,omitempty"`
}

// Report is the result of one batch run.
type Report struct {
	RunID          string        `json:"run_id"`
	SourceDir      string        `json:"source_dir"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Aborted        bool          `json:"aborted"`
	Outcomes       []FileOutcome `json:"outcomes"`
	Processed      int           `json:"processed"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	TotalDocuments int           `json:"total_documents"`
}

// Extractor turns a PDF into documents. Satisfied by *pdfextract.Extractor.
type Extractor interface {
	Extract(ctx context.Context, pdfPath string) (*pdfextract.Extraction, error)
}

// Config configures a Runner.
type Config struct {
	// SourceDir is scanned for candidate files. Required.
	SourceDir string
	// ProcessedDir receives the per-file summary JSON files. Required.
	ProcessedDir string
	// Pattern is the glob applied during discovery. Default "*".
	Pattern string
	// Extensions is the dispatch allow-list. Default: .pdf, .txt, .md.
	Extensions []string
	// Extractor handles PDF files. Required.
	Extractor Extractor
	// Confirmer gates the run after discovery. Default: refuse, so a
	// misconfigured runner never silently processes files.
	Confirmer Confirmer
	// Store, when set, persists the run and per-file outcomes.
	Store *Store
	// Chunker and Vectors, when both set, feed extracted documents into
	// the vector layer. A backend answering vecstore.ErrNotImplemented
	// is logged and skipped, never counted as a file failure.
	Chunker vecstore.Chunker
	Vectors vecstore.Store
	// Out receives the discovery table and run report. Default os.Stdout.
	Out      io.Writer
	Logger   *slog.Logger
	NewRunID idgen.Generator
}

func (c *Config) defaults() {
	if c.Pattern == "" {
		c.Pattern = "*"
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".pdf", ".txt", ".md"}
	}
	if c.Confirmer == nil {
		c.Confirmer = AutoConfirm(false)
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.NewRunID == nil {
		c.NewRunID = idgen.Prefixed("run_", idgen.Default)
	}
}

// Runner executes batch ingestion runs.
type Runner struct {
	cfg     Config
	scanner *filescan.Scanner
}

// NewRunner creates a Runner with the given configuration.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.SourceDir == "" {
		return nil, fmt.Errorf("source dir is required")
	}
	if cfg.ProcessedDir == "" {
		return nil, fmt.Errorf("processed dir is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	cfg.defaults()
	return &Runner{
		cfg:     cfg,
		scanner: filescan.New(filescan.Config{Logger: cfg.Logger}),
	}, nil
}

// Run performs one batch run. It returns an error only for setup problems
// (confirmation I/O, ledger bootstrap); per-file failures are reported as
// outcomes, never as errors.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		RunID:     r.cfg.NewRunID(),
		SourceDir: r.cfg.SourceDir,
		StartedAt: time.Now().UTC(),
	}

	records := r.scanner.Discover(r.cfg.SourceDir, r.cfg.Pattern, r.cfg.Extensions)
	filescan.WriteSummary(r.cfg.Out, records, "candidate")

	if len(records) == 0 {
		r.cfg.Logger.Info("no candidate files found", "dir", r.cfg.SourceDir)
		report.FinishedAt = time.Now().UTC()
		return report, nil
	}

	ok, err := r.cfg.Confirmer.Confirm(fmt.Sprintf("Process %d file(s)", len(records)))
	if err != nil {
		return nil, fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		r.cfg.Logger.Info("run declined", "run", report.RunID)
		report.Aborted = true
		report.FinishedAt = time.Now().UTC()
		r.persistRun(report, len(records))
		return report, nil
	}

	if r.cfg.Store != nil {
		if err := r.cfg.Store.BeginRun(report.RunID, r.cfg.SourceDir, len(records)); err != nil {
			return nil, fmt.Errorf("ledger: %w", err)
		}
	}

	for i, rec := range records {
		r.cfg.Logger.Info("processing file",
			"run", report.RunID, "file", rec.Name, "n", i+1, "of", len(records))

		outcome := r.processOne(ctx, rec)
		report.Outcomes = append(report.Outcomes, outcome)

		switch outcome.Kind {
		case OutcomeProcessed:
			report.Processed++
			report.TotalDocuments += outcome.Extraction.TotalCount
		case OutcomeFailed:
			report.Failed++
			r.cfg.Logger.Warn("file failed", "run", report.RunID, "file", rec.Name, "error", outcome.Err)
		default:
			report.Skipped++
			r.cfg.Logger.Info("file skipped", "run", report.RunID, "file", rec.Name, "reason", outcome.Kind)
		}
		r.persistFile(report.RunID, outcome)
	}

	report.FinishedAt = time.Now().UTC()
	r.writeReport(report)

	if r.cfg.Store != nil {
		if err := r.cfg.Store.FinishRun(report.RunID, report.Processed, report.Skipped,
			report.Failed, report.TotalDocuments, false); err != nil {
			r.cfg.Logger.Warn("ledger finish failed", "run", report.RunID, "error", err)
		}
	}
	return report, nil
}

// processOne dispatches one file by extension and contains its failures.
func (r *Runner) processOne(ctx context.Context, rec filescan.FileRecord) FileOutcome {
	out := FileOutcome{File: rec}

	if !rec.Readable {
		out.Kind = OutcomeFailed
		out.Err = "file is not readable"
		return out
	}

	switch strings.ToLower(rec.Extension) {
	case ".pdf":
		ex, err := r.cfg.Extractor.Extract(ctx, rec.Path)
		if err != nil {
			out.Kind = OutcomeFailed
			out.Err = err.Error()
			return out
		}
		path, err := WriteSummary(r.cfg.ProcessedDir, rec.Path, ex)
		if err != nil {
			out.Kind = OutcomeFailed
			out.Err = err.Error()
			return out
		}
		out.Kind = OutcomeProcessed
		out.Extraction = ex
		out.SummaryPath = path
		r.pushVectors(ctx, ex)

	case ".txt", ".md", ".docx", ".doc":
		out.Kind = OutcomeNotImplemented

	default:
		out.Kind = OutcomeUnsupported
	}
	return out
}

// pushVectors chunks a processed extraction into the vector layer. Backend
// absence is expected while the store is pending and is only logged.
func (r *Runner) pushVectors(ctx context.Context, ex *pdfextract.Extraction) {
	if r.cfg.Chunker == nil || r.cfg.Vectors == nil {
		return
	}
	chunks := r.cfg.Chunker.SplitAll(ex.Documents)
	if len(chunks) == 0 {
		return
	}
	err := r.cfg.Vectors.Upsert(ctx, chunks)
	switch {
	case errors.Is(err, vecstore.ErrNotImplemented):
		r.cfg.Logger.Info("vector backend pending, chunks discarded",
			"file", ex.FileName, "chunks", len(chunks))
	case err != nil:
		r.cfg.Logger.Warn("vector upsert failed", "file", ex.FileName, "error", err)
	default:
		r.cfg.Logger.Info("chunks stored", "file", ex.FileName, "chunks", len(chunks))
	}
}

// persistRun records a declined run in the ledger so audits can see it.
func (r *Runner) persistRun(report *Report, filesTotal int) {
	if r.cfg.Store == nil {
		return
	}
	if err := r.cfg.Store.BeginRun(report.RunID, report.SourceDir, filesTotal); err != nil {
		r.cfg.Logger.Warn("ledger begin failed", "run", report.RunID, "error", err)
		return
	}
	if err := r.cfg.Store.FinishRun(report.RunID, 0, 0, 0, 0, true); err != nil {
		r.cfg.Logger.Warn("ledger finish failed", "run", report.RunID, "error", err)
	}
}

func (r *Runner) persistFile(runID string, out FileOutcome) {
	if r.cfg.Store == nil {
		return
	}
	docs := 0
	if out.Extraction != nil {
		docs = out.Extraction.TotalCount
	}
	rf := &RunFileRecord{
		RunID:       runID,
		Path:        out.File.Path,
		Name:        out.File.Name,
		Outcome:     string(out.Kind),
		Documents:   docs,
		SummaryPath: out.SummaryPath,
		Error:       out.Err,
	}
	if err := r.cfg.Store.RecordFile(rf); err != nil {
		r.cfg.Logger.Warn("ledger record failed", "run", runID, "file", out.File.Name, "error", err)
	}
}

func (r *Runner) writeReport(report *Report) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintln(r.cfg.Out)
	fmt.Fprintln(r.cfg.Out, rule)
	fmt.Fprintf(r.cfg.Out, "Run %s finished in %s\n",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	var totalMB float64
	for _, o := range report.Outcomes {
		line := string(o.Kind)
		if o.Err != "" {
			line += ": " + o.Err
		}
		fmt.Fprintf(r.cfg.Out, "  %-40s %s\n", o.File.Name, line)
		if o.Kind == OutcomeProcessed {
			totalMB += o.File.SizeMB
		}
	}

	fmt.Fprintf(r.cfg.Out, "  processed: %d (%.2f MB)\n", report.Processed, totalMB)
	fmt.Fprintf(r.cfg.Out, "  skipped:   %d\n", report.Skipped)
	fmt.Fprintf(r.cfg.Out, "  failed:    %d\n", report.Failed)
	fmt.Fprintf(r.cfg.Out, "  documents: %d\n", report.TotalDocuments)
	fmt.Fprintln(r.cfg.Out, rule)
}
