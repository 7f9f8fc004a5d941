package epub

import (
	"fmt"
	"strings"
)

// landmark is an entry of the nav document's landmarks list.
type landmark struct {
	kind  string // epub:type
	href  string
	title string
}

// landmarks points readers at the cover, the first story page and the end.
func landmarks(docs []document) []landmark {
	var out []landmark
	for _, doc := range docs {
		switch {
		case doc.id == "cover":
			out = append(out, landmark{"cover", doc.href, "Cover"})
		case doc.page == 1:
			out = append(out, landmark{"bodymatter", doc.href, "Start of Story"})
		case doc.id == "end":
			out = append(out, landmark{"backmatter", doc.href, doc.title})
		}
	}
	return out
}

// generateNavigation creates nav.xhtml with the contents, the landmarks and
// a page list that maps printed page numbers to story pages.
func (b *Builder) generateNavigation() string {
	docs := b.documents()
	var sb strings.Builder

	xhtmlHeader(&sb, "Contents", "styles/style.css")
	sb.WriteString("<body>\n")
	sb.WriteString("  <nav epub:type=\"toc\" id=\"toc\">\n    <h1>Contents</h1>\n    <ol>\n")
	for _, doc := range docs {
		fmt.Fprintf(&sb, "      <li><a href=\"%s\">%s</a></li>\n", doc.href, escapeXML(doc.title))
	}
	sb.WriteString("    </ol>\n  </nav>\n")

	sb.WriteString("  <nav epub:type=\"landmarks\" id=\"landmarks\" hidden=\"\">\n    <ol>\n")
	for _, l := range landmarks(docs) {
		fmt.Fprintf(&sb, "      <li><a epub:type=\"%s\" href=\"%s\">%s</a></li>\n", l.kind, l.href, escapeXML(l.title))
	}
	sb.WriteString("    </ol>\n  </nav>\n")

	sb.WriteString("  <nav epub:type=\"page-list\" id=\"page-list\" hidden=\"\">\n    <ol>\n")
	for _, doc := range docs {
		if doc.page > 0 {
			fmt.Fprintf(&sb, "      <li><a href=\"%s\">%d</a></li>\n", doc.href, doc.page)
		}
	}
	sb.WriteString("    </ol>\n  </nav>\n")

	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

// generateNCX creates toc.ncx for ePub 2 readers.
func (b *Builder) generateNCX() string {
	docs := b.documents()
	pages := len(b.book.Pages)
	var sb strings.Builder

	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <head>
    <meta name="dtb:uid" content="%s"/>
    <meta name="dtb:depth" content="1"/>
    <meta name="dtb:totalPageCount" content="%d"/>
    <meta name="dtb:maxPageNumber" content="%d"/>
  </head>
  <docTitle><text>%s</text></docTitle>
`, b.identifier, pages, pages, escapeXML(b.book.Title))
	if b.book.Artist != "" {
		fmt.Fprintf(&sb, "  <docAuthor><text>%s</text></docAuthor>\n", escapeXML(b.book.Artist))
	}

	sb.WriteString("  <navMap>\n")
	for i, doc := range docs {
		fmt.Fprintf(&sb, "    <navPoint id=\"nav-%s\" playOrder=\"%d\">\n", doc.id, i+1)
		fmt.Fprintf(&sb, "      <navLabel><text>%s</text></navLabel>\n", escapeXML(doc.title))
		fmt.Fprintf(&sb, "      <content src=\"%s\"/>\n", doc.href)
		sb.WriteString("    </navPoint>\n")
	}
	sb.WriteString("  </navMap>\n")

	if pages > 0 {
		sb.WriteString("  <pageList>\n")
		for i, doc := range docs {
			if doc.page == 0 {
				continue
			}
			fmt.Fprintf(&sb, "    <pageTarget id=\"pt-%d\" type=\"normal\" value=\"%d\" playOrder=\"%d\">\n", doc.page, doc.page, i+1)
			fmt.Fprintf(&sb, "      <navLabel><text>%d</text></navLabel>\n", doc.page)
			fmt.Fprintf(&sb, "      <content src=\"%s\"/>\n", doc.href)
			sb.WriteString("    </pageTarget>\n")
		}
		sb.WriteString("  </pageList>\n")
	}

	sb.WriteString("</ncx>\n")
	return sb.String()
}
