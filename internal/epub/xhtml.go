package epub

import (
	"fmt"
	"strings"
)

// document is one XHTML file in the spine.
type document struct {
	id    string
	href  string
	title string
	body  string
	page  int // 1-based story page, 0 for the cover and end
}

// documents returns the cover, one document per page, and the end page, in
// reading order.
func (b *Builder) documents() []document {
	imgs := make(map[int]image)
	var cover *image
	for _, img := range b.images() {
		if img.page < 0 {
			c := img
			cover = &c
			continue
		}
		imgs[img.page] = img
	}

	docs := []document{{
		id:    "cover",
		href:  "cover.xhtml",
		title: b.book.Title,
		body:  b.coverXHTML(cover),
	}}
	for i, p := range b.book.Pages {
		var img *image
		if found, ok := imgs[i]; ok {
			img = &found
		}
		docs = append(docs, document{
			id:    fmt.Sprintf("page_%03d", i+1),
			href:  fmt.Sprintf("pages/page_%03d.xhtml", i+1),
			title: fmt.Sprintf("Page %d", i+1),
			body:  b.pageXHTML(i, p, img),
			page:  i + 1,
		})
	}
	docs = append(docs, document{
		id:    "end",
		href:  "end.xhtml",
		title: "The End",
		body:  b.endXHTML(),
	})
	return docs
}

func xhtmlHeader(sb *strings.Builder, title, stylesheet string) {
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>`)
	sb.WriteString(escapeXML(title))
	sb.WriteString(`</title>
  <link rel="stylesheet" type="text/css" href="`)
	sb.WriteString(stylesheet)
	sb.WriteString(`"/>
</head>
`)
}

func (b *Builder) coverXHTML(cover *image) string {
	var sb strings.Builder
	xhtmlHeader(&sb, b.book.Title, "styles/style.css")
	sb.WriteString("<body epub:type=\"cover\">\n")
	sb.WriteString("  <p class=\"badge\">Your Epic Adventure</p>\n")
	sb.WriteString(fmt.Sprintf("  <h1>%s</h1>\n", escapeXML(b.book.Title)))
	if b.book.Subject != "" {
		sb.WriteString(fmt.Sprintf("  <p class=\"starring\">Starring the amazing <strong>%s</strong></p>\n",
			escapeXML(b.book.Subject)))
	}
	if cover != nil {
		sb.WriteString(fmt.Sprintf("  <div class=\"illustration\"><img src=\"%s\" alt=\"Original drawing\"/></div>\n", cover.href))
	}
	if b.book.Artist != "" {
		sb.WriteString("  <div class=\"credits\">\n")
		sb.WriteString("    <p class=\"badge\">Original Artwork By</p>\n")
		sb.WriteString(fmt.Sprintf("    <p><strong>%s</strong></p>\n", escapeXML(b.book.Artist)))
		if details := b.creditDetails(); details != "" {
			sb.WriteString(fmt.Sprintf("    <p>%s</p>\n", escapeXML(details)))
		}
		sb.WriteString("  </div>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func (b *Builder) creditDetails() string {
	var parts []string
	if b.book.Age != "" {
		parts = append(parts, "Age "+b.book.Age)
	}
	if b.book.Grade != "" {
		parts = append(parts, "Grade "+b.book.Grade)
	}
	if b.book.Year != "" {
		parts = append(parts, b.book.Year)
	}
	return strings.Join(parts, " · ")
}

func (b *Builder) pageXHTML(i int, p Page, img *image) string {
	var sb strings.Builder
	xhtmlHeader(&sb, fmt.Sprintf("Page %d", i+1), "../styles/style.css")
	sb.WriteString("<body>\n")
	if img != nil {
		sb.WriteString(fmt.Sprintf("  <div class=\"illustration\"><img src=\"../%s\" alt=\"Story illustration\"/></div>\n", img.href))
	}
	sb.WriteString(fmt.Sprintf("  <p class=\"text\">%s</p>\n", escapeXML(p.Text)))
	sb.WriteString(fmt.Sprintf("  <p class=\"page-number\">Page %d of %d</p>\n", i+1, len(b.book.Pages)))
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func (b *Builder) endXHTML() string {
	var sb strings.Builder
	xhtmlHeader(&sb, "The End", "styles/style.css")
	sb.WriteString("<body>\n")
	sb.WriteString("  <p class=\"badge\">The End</p>\n")
	sb.WriteString("  <h1>What a Masterpiece!</h1>\n")
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// escapeXML escapes special XML characters.
func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
