package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dockb/dockb/pdfextract"
)

const (
	previewDocs   = 5
	previewMaxLen = 200
	summarySuffix = "_summary.json"
)

// Summary is the per-file JSON record written next to the processed output.
// Field names form the on-disk contract; downstream tooling parses them.
type Summary struct {
	OriginalFile        string       `json:"original_file"`
	FileName            string       `json:"file_name"`
	ProcessingTimestamp string       `json:"processing_timestamp"`
	TextDocuments       int          `json:"text_documents"`
	ImageDocuments      int          `json:"image_documents"`
	TotalDocuments      int          `json:"total_documents"`
	DocumentsPreview    []PreviewDoc `json:"documents_preview"`
}

// PreviewDoc is a truncated view of one extracted document.
type PreviewDoc struct {
	Content   string          `json:"content"`
	Source    string          `json:"source"`
	Page      int             `json:"page"`
	Kind      pdfextract.Kind `json:"type"`
	CharCount int             `json:"char_count"`
	ImagePath string          `json:"image_path,omitempty"`
}

// BuildSummary assembles the summary record for one extraction. The
// timestamp is the source file's modification time so reruns over unchanged
// files produce identical records.
func BuildSummary(srcPath string, ex *pdfextract.Extraction) Summary {
	ts := ""
	if st, err := os.Stat(srcPath); err == nil {
		ts = fmt.Sprintf("%d", st.ModTime().Unix())
	}

	preview := make([]PreviewDoc, 0, previewDocs)
	for _, doc := range ex.Documents {
		if len(preview) == previewDocs {
			break
		}
		content := doc.Content
		// Truncate on rune boundaries; content may carry multi-byte text.
		if r := []rune(content); len(r) > previewMaxLen {
			content = string(r[:previewMaxLen]) + "..."
		}
		preview = append(preview, PreviewDoc{
			Content:   content,
			Source:    doc.Source,
			Page:      doc.Page,
			Kind:      doc.Kind,
			CharCount: doc.CharCount,
			ImagePath: doc.ImagePath,
		})
	}

	return Summary{
		OriginalFile:        srcPath,
		FileName:            ex.FileName,
		ProcessingTimestamp: ts,
		TextDocuments:       ex.TextCount,
		ImageDocuments:      ex.ImageCount,
		TotalDocuments:      ex.TotalCount,
		DocumentsPreview:    preview,
	}
}

// WriteSummary persists the summary as {stem}_summary.json under dir and
// returns the written path.
func WriteSummary(dir, srcPath string, ex *pdfextract.Extraction) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create summary dir: %w", err)
	}
	s := BuildSummary(srcPath, ex)
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(dir, ex.FileName+summarySuffix)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// ReadSummary loads a previously written summary file.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// ListSummaries returns the summary file names in dir, sorted by Glob order.
func ListSummaries(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+summarySuffix))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	return names, nil
}
