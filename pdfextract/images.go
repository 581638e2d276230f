package pdfextract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	// Embedded images come back in whatever encoding the PDF carried.
	_ "image/jpeg"
	_ "golang.org/x/image/tiff"
)

// extractImages enumerates embedded raster images per page, persists the
// ones worth keeping and runs OCR on them. The returned error means the
// file could not be opened or validated; anything past that point degrades
// per page or per image.
func (e *Extractor) extractImages(ctx context.Context, pdfPath string) ([]Document, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	if err := os.MkdirAll(e.imageDir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	pdfStem := stem(pdfPath)
	var docs []Document

	last := e.lastPage(pctx.PageCount)
	for pageNr := 1; pageNr <= last; pageNr++ {
		images, err := pdfcpu.ExtractPageImages(pctx, pageNr, false)
		if err != nil {
			e.logger.Warn("page image enumeration failed", "file", pdfPath, "page", pageNr, "error", err)
			continue
		}

		// Map iteration order is random; sort by object number so the
		// per-page image index is deterministic.
		objNrs := make([]int, 0, len(images))
		for objNr := range images {
			objNrs = append(objNrs, objNr)
		}
		sort.Ints(objNrs)

		for i, objNr := range objNrs {
			imgIndex := i + 1
			img := images[objNr]
			data, err := io.ReadAll(img)
			if err != nil {
				e.logger.Warn("image read failed", "file", pdfPath, "page", pageNr, "img", imgIndex, "error", err)
				continue
			}
			doc, ok := e.processImage(ctx, data, pdfPath, pdfStem, pageNr, imgIndex)
			if ok {
				docs = append(docs, doc)
			}
		}
	}
	return docs, nil
}

// processImage runs the per-image pipeline: decode, dimension filter,
// color-space conversion, PNG persistence, OCR, keep-or-delete. Failures
// are logged and reported as "no document"; they never abort the page.
func (e *Extractor) processImage(ctx context.Context, data []byte, pdfPath, pdfStem string, page, index int) (Document, bool) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		e.logger.Warn("image decode failed", "file", pdfPath, "page", page, "img", index, "error", err)
		return Document{}, false
	}

	// Icon/logo noise: discard without saving.
	bounds := src.Bounds()
	if bounds.Dx() < e.minWidth || bounds.Dy() < e.minHeight {
		e.logger.Debug("image below minimum dimensions, skipped",
			"file", pdfPath, "page", page, "img", index, "w", bounds.Dx(), "h", bounds.Dy())
		return Document{}, false
	}

	// CMYK-class pixel formats are converted to RGB before saving.
	if src.ColorModel() == color.CMYKModel {
		rgba := image.NewRGBA(bounds)
		draw.Draw(rgba, bounds, src, bounds.Min, draw.Src)
		src = rgba
	}

	name := fmt.Sprintf("%s_page-%d_img-%d.png", pdfStem, page, index)
	imgPath := filepath.Join(e.imageDir, name)
	if err := savePNG(imgPath, src); err != nil {
		e.logger.Warn("image save failed", "file", pdfPath, "page", page, "img", index, "error", err)
		return Document{}, false
	}

	res := e.ocr.Recognize(ctx, imgPath)
	if res.Err != "" {
		e.logger.Warn("ocr failed", "image", imgPath, "error", res.Err)
	}
	if strings.TrimSpace(res.Text) == "" {
		// Nothing recognized; drop the asset too.
		if err := os.Remove(imgPath); err != nil {
			e.logger.Warn("failed to remove rejected image", "image", imgPath, "error", err)
		} else {
			e.logger.Debug("image rejected, no recognized text", "image", imgPath)
		}
		return Document{}, false
	}

	doc, err := NewImageDocument(pdfPath, page, imgPath, res.Text)
	if err != nil {
		e.logger.Warn("invalid image document", "image", imgPath, "error", err)
		return Document{}, false
	}
	return doc, true
}

func savePNG(path string, img image.Image) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
