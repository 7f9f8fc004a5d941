package pdfexport

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/jackzampolin/doodlebook/internal/story"
)

func testPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestRender(t *testing.T) {
	pages := []Page{
		{Image: testPNG(t, color.RGBA{255, 0, 0, 255}), Caption: "The Dancing Dragon"},
		{Image: testPNG(t, color.RGBA{0, 255, 0, 255})},
		{Image: testPNG(t, color.RGBA{0, 0, 255, 255}), Caption: "The dragon danced all night."},
	}
	data, err := Render(pages, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", data[:8])
	}
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		t.Fatalf("PageCount() error = %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount() = %d, want 3", n)
	}

	if _, err := Render(nil, nil); !errors.Is(err, ErrNoImages) {
		t.Errorf("Render(nil) error = %v", err)
	}
}

func TestCaption(t *testing.T) {
	tests := []string{
		"The Dancing Dragon",
		"Roar: said the dragon, loudly.",
		"Über die Brücke",
	}
	for _, text := range tests {
		wm, err := caption(text)
		if err != nil {
			t.Fatalf("caption(%q) error = %v", text, err)
		}
		if !wm.OnTop || wm.TextString != text {
			t.Errorf("caption(%q) = on top %v, text %q", text, wm.OnTop, wm.TextString)
		}
		if wm.Pos != types.BottomCenter || wm.Rotation != 0 || wm.Scale != 0.8 || wm.ScaleAbs {
			t.Errorf("caption(%q) layout = pos %v, rot %v, scale %v abs %v", text, wm.Pos, wm.Rotation, wm.Scale, wm.ScaleAbs)
		}
	}
}

func TestFromStory(t *testing.T) {
	ctx := context.Background()
	store := story.NewMemoryStore()
	b := story.NewBook("image/png")
	b.Analysis = &story.Analysis{
		StoryTitle: "Moon Cat",
		Pages: []story.Page{
			{Text: "one", Image: "page_0001.png"},
			{Text: "two"},
			{Text: "three", Image: "page_0003.png"},
		},
	}
	if err := store.Create(ctx, b); err != nil {
		t.Fatal(err)
	}

	if _, err := FromStory(ctx, store, b); !errors.Is(err, ErrNoImages) {
		t.Fatalf("FromStory() without media error = %v", err)
	}

	img := testPNG(t, color.White)
	for _, name := range []string{story.DrawingName, "page_0003.png"} {
		if err := store.WriteMedia(ctx, b.ID, name, img); err != nil {
			t.Fatal(err)
		}
	}
	pages, err := FromStory(ctx, store, b)
	if err != nil {
		t.Fatalf("FromStory() error = %v", err)
	}
	if len(pages) != 2 || pages[0].Caption != "Moon Cat" || pages[1].Caption != "three" {
		t.Errorf("FromStory() = %d pages, captions %q %q", len(pages), pages[0].Caption, pages[len(pages)-1].Caption)
	}

	data, err := Export(ctx, store, b, nil)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n, _ := api.PageCount(bytes.NewReader(data), nil); n != 2 {
		t.Errorf("exported %d pages, want 2", n)
	}
}
