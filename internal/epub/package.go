package epub

import (
	"fmt"
	"strings"
	"time"
)

// generatePackage creates the content.opf package document.
func (b *Builder) generatePackage() string {
	var sb strings.Builder

	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="pub-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
`)

	sb.WriteString(fmt.Sprintf("    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", b.identifier))
	sb.WriteString(fmt.Sprintf("    <dc:title>%s</dc:title>\n", escapeXML(b.book.Title)))
	if b.book.Artist != "" {
		sb.WriteString(fmt.Sprintf("    <dc:creator>%s</dc:creator>\n", escapeXML(b.book.Artist)))
	}
	if b.book.Subject != "" {
		sb.WriteString(fmt.Sprintf("    <dc:subject>%s</dc:subject>\n", escapeXML(b.book.Subject)))
	}

	lang := b.book.Language
	if lang == "" {
		lang = "en"
	}
	sb.WriteString(fmt.Sprintf("    <dc:language>%s</dc:language>\n", lang))
	if !b.book.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("    <dc:date>%s</dc:date>\n", b.book.CreatedAt.UTC().Format("2006-01-02")))
	}

	// Modified timestamp (required for ePub 3)
	sb.WriteString(fmt.Sprintf("    <meta property=\"dcterms:modified\">%s</meta>\n",
		time.Now().UTC().Format("2006-01-02T15:04:05Z")))
	if len(b.book.Cover) > 0 {
		sb.WriteString("    <meta name=\"cover\" content=\"cover-image\"/>\n")
	}

	sb.WriteString("  </metadata>\n\n")

	sb.WriteString("  <manifest>\n")
	sb.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	sb.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	sb.WriteString("    <item id=\"style\" href=\"styles/style.css\" media-type=\"text/css\"/>\n")

	docs := b.documents()
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("    <item id=\"%s\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n",
			doc.id, doc.href))
	}
	for _, img := range b.images() {
		props := ""
		if img.page < 0 {
			props = " properties=\"cover-image\""
		}
		sb.WriteString(fmt.Sprintf("    <item id=\"%s\" href=\"%s\" media-type=\"%s\"%s/>\n",
			img.id, img.href, img.mediaType, props))
	}

	sb.WriteString("  </manifest>\n\n")

	// Spine (reading order)
	sb.WriteString("  <spine toc=\"ncx\">\n")
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("    <itemref idref=\"%s\"/>\n", doc.id))
	}
	sb.WriteString("  </spine>\n")

	sb.WriteString("</package>\n")

	return sb.String()
}
