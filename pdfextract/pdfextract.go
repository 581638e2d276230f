// Package pdfextract turns a PDF file into a stream of extracted documents:
// one per page of text, one per embedded image whose OCR text survived the
// confidence filter.
//
// Extraction is a single-pass, non-resumable transformation. Failures are
// contained at the smallest reasonable granularity: a bad image never aborts
// its page, a dead text stream never blocks image extraction.
package pdfextract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dockb/dockb/ocr"
)

// Kind distinguishes how a document's content was obtained.
type Kind string

const (
	KindText     Kind = "text"      // plain text from a PDF page
	KindImageOCR Kind = "image_ocr" // OCR text from an embedded image
)

// Document is one unit of recognized textual content, tied to a PDF page or
// to an embedded image. Content is never empty after trimming; the
// constructors enforce this.
type Document struct {
	Content   string `json:"content"`
	Source    string `json:"source"` // originating PDF path
	Page      int    `json:"page"`   // 1-based
	Kind      Kind   `json:"type"`
	CharCount int    `json:"char_count"`
	ImagePath string `json:"image_path,omitempty"` // set for image_ocr only
}

// NewTextDocument builds a page-text document.
func NewTextDocument(source string, page int, content string) (Document, error) {
	return newDocument(KindText, source, page, content, "")
}

// NewImageDocument builds an OCR-text document backed by a persisted image.
func NewImageDocument(source string, page int, imagePath, content string) (Document, error) {
	if imagePath == "" {
		return Document{}, fmt.Errorf("image document requires an image path")
	}
	return newDocument(KindImageOCR, source, page, content, imagePath)
}

func newDocument(kind Kind, source string, page int, content, imagePath string) (Document, error) {
	if strings.TrimSpace(content) == "" {
		return Document{}, fmt.Errorf("empty content for %s document (page %d)", kind, page)
	}
	if page < 1 {
		return Document{}, fmt.Errorf("page number %d out of range", page)
	}
	return Document{
		Content:   content,
		Source:    source,
		Page:      page,
		Kind:      kind,
		CharCount: len(content),
		ImagePath: imagePath,
	}, nil
}

// Extraction is the merged result of both sub-extractions for one file:
// text documents first, then image documents, each stream in page order.
type Extraction struct {
	FileName   string     `json:"file_name"` // stem, without extension
	Documents  []Document `json:"documents"`
	TextCount  int        `json:"text_document_count"`
	ImageCount int        `json:"image_document_count"`
	TotalCount int        `json:"total_document_count"`
}

// PDFInfo is a best-effort metadata probe result.
type PDFInfo struct {
	PageCount int               `json:"page_count"`
	Metadata  map[string]string `json:"metadata"`
	Encrypted bool              `json:"is_encrypted"`
	FileSize  int64             `json:"file_size"`
}

// Recognizer runs OCR on a saved image file. Satisfied by *ocr.Processor.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) ocr.Result
}

// Config configures an Extractor.
type Config struct {
	// ImageDir receives extracted image assets as PNG files. Required.
	ImageDir string `json:"image_dir" yaml:"image_dir"`
	// MaxPages caps the pages processed per PDF for both sub-extractions.
	// Zero means all pages.
	MaxPages int `json:"max_pages" yaml:"max_pages"`
	// MinImageWidth/MinImageHeight discard icon/logo noise. Images below
	// either threshold are never saved. Default: 100x100.
	MinImageWidth  int `json:"min_image_width" yaml:"min_image_width"`
	MinImageHeight int `json:"min_image_height" yaml:"min_image_height"`
	// OCR recognizes saved images. Defaults to a Tesseract processor with
	// its default confidence threshold.
	OCR    Recognizer   `json:"-" yaml:"-"`
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() error {
	if c.MinImageWidth <= 0 {
		c.MinImageWidth = 100
	}
	if c.MinImageHeight <= 0 {
		c.MinImageHeight = 100
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.OCR == nil {
		p, err := ocr.New(ocr.Config{Logger: c.Logger})
		if err != nil {
			return err
		}
		c.OCR = p
	}
	return nil
}

// Extractor extracts text and image documents from PDF files.
type Extractor struct {
	imageDir  string
	maxPages  int
	minWidth  int
	minHeight int
	ocr       Recognizer
	logger    *slog.Logger
}

// New creates an Extractor with the given configuration.
func New(cfg Config) (*Extractor, error) {
	if cfg.ImageDir == "" {
		return nil, fmt.Errorf("image dir is required")
	}
	if err := cfg.defaults(); err != nil {
		return nil, err
	}
	return &Extractor{
		imageDir:  cfg.ImageDir,
		maxPages:  cfg.MaxPages,
		minWidth:  cfg.MinImageWidth,
		minHeight: cfg.MinImageHeight,
		ocr:       cfg.OCR,
		logger:    cfg.Logger,
	}, nil
}

// Extract runs both sub-extractions and merges their documents, text first.
// A failure in one stream degrades to an empty list for that stream; an
// error is returned only when the file yields no parseable PDF structure at
// all, so the caller can record it as a batch failure.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (*Extraction, error) {
	e.logger.Info("loading PDF", "file", filepath.Base(pdfPath))

	textDocs, textErr := e.extractText(pdfPath)
	if textErr != nil {
		e.logger.Warn("text extraction failed", "file", pdfPath, "error", textErr)
	}
	e.logger.Info("extracted page text", "file", filepath.Base(pdfPath), "pages", len(textDocs))

	imageDocs, imgErr := e.extractImages(ctx, pdfPath)
	if imgErr != nil {
		e.logger.Warn("image extraction failed", "file", pdfPath, "error", imgErr)
	}
	e.logger.Info("extracted images with OCR", "file", filepath.Base(pdfPath), "images", len(imageDocs))

	if textErr != nil && imgErr != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filepath.Base(pdfPath), textErr)
	}

	docs := make([]Document, 0, len(textDocs)+len(imageDocs))
	docs = append(docs, textDocs...)
	docs = append(docs, imageDocs...)

	return &Extraction{
		FileName:   stem(pdfPath),
		Documents:  docs,
		TextCount:  len(textDocs),
		ImageCount: len(imageDocs),
		TotalCount: len(docs),
	}, nil
}

// Info probes a PDF for basic metadata. It never fails: any error yields a
// zero-valued PDFInfo.
func (e *Extractor) Info(pdfPath string) PDFInfo {
	st, err := os.Stat(pdfPath)
	if err != nil {
		e.logger.Warn("pdf info: stat failed", "file", pdfPath, "error", err)
		return PDFInfo{}
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		e.logger.Warn("pdf info: open failed", "file", pdfPath, "error", err)
		return PDFInfo{}
	}
	defer f.Close()

	pctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		e.logger.Warn("pdf info: parse failed", "file", pdfPath, "error", err)
		return PDFInfo{}
	}

	meta := map[string]string{}
	for k, v := range map[string]string{
		"title":    pctx.Title,
		"author":   pctx.Author,
		"creator":  pctx.Creator,
		"producer": pctx.Producer,
		"subject":  pctx.Subject,
	} {
		if v != "" {
			meta[k] = v
		}
	}

	return PDFInfo{
		PageCount: pctx.PageCount,
		Metadata:  meta,
		Encrypted: pctx.Encrypt != nil,
		FileSize:  st.Size(),
	}
}

// lastPage applies the page cap to a document's real page count.
func (e *Extractor) lastPage(pageCount int) int {
	if e.maxPages > 0 && e.maxPages < pageCount {
		return e.maxPages
	}
	return pageCount
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
