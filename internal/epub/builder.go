// Package epub renders a finished picture book as an ePub 3.0 file.
package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Book contains the metadata and pages needed for epub generation.
type Book struct {
	ID        string
	Title     string
	Subject   string
	Artist    string // credited as the creator
	Age       string
	Grade     string
	Year      string
	Language  string // ISO 639-1 code (e.g., "en")
	CreatedAt time.Time

	// Cover is the original drawing; optional.
	Cover []byte
	Pages []Page
}

// Page is one story page. Image is empty until its illustration arrives.
type Page struct {
	Text  string
	Image []byte
}

// Builder creates ePub 3.0 files.
type Builder struct {
	book       Book
	identifier string
}

// NewBuilder creates a new epub builder.
func NewBuilder(book Book) *Builder {
	return &Builder{book: book, identifier: identifier(book.ID)}
}

// WriteTo writes the epub to a writer.
func (b *Builder) WriteTo(w io.Writer) error {
	zw := zip.NewWriter(w)

	// mimetype must be first and uncompressed
	if err := b.writeMimetype(zw); err != nil {
		return err
	}
	if err := b.writeFile(zw, "META-INF/container.xml", containerXML); err != nil {
		return err
	}
	if err := b.writeFile(zw, "OEBPS/content.opf", b.generatePackage()); err != nil {
		return err
	}
	if err := b.writeFile(zw, "OEBPS/nav.xhtml", b.generateNavigation()); err != nil {
		return err
	}
	if err := b.writeFile(zw, "OEBPS/toc.ncx", b.generateNCX()); err != nil {
		return err
	}
	if err := b.writeFile(zw, "OEBPS/styles/style.css", defaultStylesheet); err != nil {
		return err
	}

	for _, doc := range b.documents() {
		if err := b.writeFile(zw, "OEBPS/"+doc.href, doc.body); err != nil {
			return err
		}
	}
	for _, img := range b.images() {
		if err := b.writeBytes(zw, "OEBPS/"+img.href, img.data); err != nil {
			return err
		}
	}

	return zw.Close()
}

func (b *Builder) writeMimetype(zw *zip.Writer) error {
	header := &zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create mimetype: %w", err)
	}
	_, err = w.Write([]byte("application/epub+zip"))
	return err
}

func (b *Builder) writeFile(zw *zip.Writer, name, content string) error {
	return b.writeBytes(zw, name, []byte(content))
}

func (b *Builder) writeBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

// image is a picture stored in the archive.
type image struct {
	id        string
	href      string
	mediaType string
	data      []byte
	page      int // story page index, -1 for the cover
}

// images lists the cover and every page illustration that has arrived.
func (b *Builder) images() []image {
	var out []image
	if len(b.book.Cover) > 0 {
		mt, ext := imageType(b.book.Cover)
		out = append(out, image{id: "cover-image", href: "images/cover" + ext, mediaType: mt, data: b.book.Cover, page: -1})
	}
	for i, p := range b.book.Pages {
		if len(p.Image) == 0 {
			continue
		}
		mt, ext := imageType(p.Image)
		out = append(out, image{
			id:        fmt.Sprintf("img_%03d", i+1),
			href:      fmt.Sprintf("images/page_%03d%s", i+1, ext),
			mediaType: mt,
			data:      p.Image,
			page:      i,
		})
	}
	return out
}

func imageType(data []byte) (mediaType, ext string) {
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return "image/jpeg", ".jpg"
	case "image/webp":
		return "image/webp", ".webp"
	case "image/gif":
		return "image/gif", ".gif"
	default:
		return "image/png", ".png"
	}
}

// identifier returns the publication id, reusing the book id when it is a
// uuid.
func identifier(bookID string) string {
	if id, err := uuid.Parse(bookID); err == nil {
		return "urn:uuid:" + id.String()
	}
	return "urn:uuid:" + uuid.New().String()
}

// BuildToBuffer generates the epub and returns it as a byte buffer.
func (b *Builder) BuildToBuffer() (*bytes.Buffer, error) {
	buf := new(bytes.Buffer)
	if err := b.WriteTo(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const defaultStylesheet = `/* Doodlebook ePub Stylesheet */

body {
  font-family: Georgia, "Times New Roman", serif;
  margin: 1em;
  text-align: center;
}

h1 {
  font-size: 2.2em;
  margin-top: 1.5em;
}

.badge {
  font-size: 0.8em;
  text-transform: uppercase;
  letter-spacing: 0.2em;
}

.starring {
  font-style: italic;
}

.credits {
  margin-top: 2em;
  font-size: 0.9em;
}

.illustration img {
  max-width: 100%;
  max-height: 60vh;
}

.placeholder {
  color: #999;
  text-transform: uppercase;
  letter-spacing: 0.1em;
}

.text {
  font-size: 1.4em;
  font-style: italic;
  line-height: 1.4;
}

.page-number {
  font-size: 0.75em;
  text-transform: uppercase;
  letter-spacing: 0.2em;
  color: #999;
}
`
