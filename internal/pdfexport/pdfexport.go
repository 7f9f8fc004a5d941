// Package pdfexport renders a picture book as a PDF: the drawing on the
// first page, then one page per illustration with the story text stamped
// underneath.
package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/doodlebook/internal/story"
)

// ErrNoImages is returned when a book has no pictures to lay out yet.
var ErrNoImages = errors.New("no images to export")

// captionDesc positions story text at the bottom of each page. pdfcpu
// resolves parameter prefixes, so names are spelled out in full.
const captionDesc = "position:bc, rotation:0, scalefactor:0.8 rel"

// Page is one PDF page: an image and an optional caption.
type Page struct {
	Image   []byte
	Caption string
}

// Render lays out pages in order and returns the PDF.
func Render(pages []Page, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(pages) == 0 {
		return nil, ErrNoImages
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	imgs := make([]io.Reader, len(pages))
	for i, p := range pages {
		imgs[i] = bytes.NewReader(p.Image)
	}
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, imgs, pdfcpu.DefaultImportConfig(), conf); err != nil {
		return nil, fmt.Errorf("failed to import images: %w", err)
	}

	data := out.Bytes()
	for i, p := range pages {
		if p.Caption == "" {
			continue
		}
		wm, err := caption(p.Caption)
		if err != nil {
			return nil, fmt.Errorf("failed to caption page %d: %w", i+1, err)
		}
		var stamped bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(data), &stamped, []string{strconv.Itoa(i + 1)}, wm, conf); err != nil {
			return nil, fmt.Errorf("failed to caption page %d: %w", i+1, err)
		}
		data = stamped.Bytes()
	}

	count, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("failed to verify PDF: %w", err)
	}
	if count != len(pages) {
		return nil, fmt.Errorf("PDF has %d pages, want %d", count, len(pages))
	}
	logger.Debug("rendered picture book PDF", "pages", count, "bytes", len(data))
	return data, nil
}

// caption builds the stamp that prints text under a page's picture.
func caption(text string) (*model.Watermark, error) {
	return pdfcpu.ParseTextWatermarkDetails(text, captionDesc, true, types.POINTS)
}

// FromStory loads a book's drawing and arrived illustrations in reading
// order. Pages still waiting for an illustration are skipped.
func FromStory(ctx context.Context, store story.Store, b *story.Book) ([]Page, error) {
	if b.Analysis == nil {
		return nil, story.ErrNotAnalyzed
	}

	var pages []Page
	drawing, err := store.ReadMedia(ctx, b.ID, b.Drawing)
	switch {
	case err == nil:
		pages = append(pages, Page{Image: drawing, Caption: b.Analysis.StoryTitle})
	case !errors.Is(err, story.ErrNotFound):
		return nil, fmt.Errorf("failed to read drawing: %w", err)
	}

	for i, p := range b.Analysis.Pages {
		if p.Image == "" {
			continue
		}
		img, err := store.ReadMedia(ctx, b.ID, p.Image)
		if errors.Is(err, story.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d illustration: %w", i+1, err)
		}
		pages = append(pages, Page{Image: img, Caption: p.Text})
	}
	if len(pages) == 0 {
		return nil, ErrNoImages
	}
	return pages, nil
}

// Export is FromStory followed by Render.
func Export(ctx context.Context, store story.Store, b *story.Book, logger *slog.Logger) ([]byte, error) {
	pages, err := FromStory(ctx, store, b)
	if err != nil {
		return nil, err
	}
	return Render(pages, logger)
}
