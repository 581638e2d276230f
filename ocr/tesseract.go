package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine is the production Engine, backed by the gosseract client.
// A fresh client is created per call; gosseract clients are not safe for
// reuse across images.
type TesseractEngine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// TesseractOption configures a TesseractEngine.
type TesseractOption func(*TesseractEngine)

// WithLanguages sets the trained-data language hints (e.g. "eng", "deu").
func WithLanguages(langs ...string) TesseractOption {
	return func(e *TesseractEngine) { e.languages = langs }
}

// NewTesseractEngine constructs a Tesseract-backed OCR engine.
func NewTesseractEngine(opts ...TesseractOption) *TesseractEngine {
	e := &TesseractEngine{clientFactory: gosseract.NewClient}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Words recognizes the image and returns every word Tesseract reported,
// with its integer confidence and pixel bounding box.
func (e *TesseractEngine) Words(ctx context.Context, imagePath string) ([]Word, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Confidence: int(b.Confidence),
			Left:       b.Box.Min.X,
			Top:        b.Box.Min.Y,
			Width:      b.Box.Dx(),
			Height:     b.Box.Dy(),
		})
	}
	return words, nil
}
