package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/unknownshopper/maiz-news/app/database"
)

type Generator struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Version     string
}

func NewGenerator(link, selfLink, version string) *Generator {
	return &Generator{
		Title:       "Noticias del maíz",
		Link:        link,
		Description: "Noticias sobre maíz, precios y mercados agrícolas en México",
		SelfLink:    selfLink,
		Version:     version,
	}
}

// Run renders stored news as an RSS 2.0 document.
func (g *Generator) Run(records []database.NewsRecord) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", g.Title, 4)
	g.writeElement(&buf, "link", g.Link, 4)
	g.writeElement(&buf, "description", g.Description, 4)

	if g.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(g.SelfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(records) > 0 && records[0].PublishedAt != nil {
		lastBuildDate = *records[0].PublishedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("maiz-news/%s", g.Version), 4)
	g.writeElement(&buf, "language", "es-mx", 4)

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record database.NewsRecord) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"true\">")
	xml.EscapeText(buf, []byte(record.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", record.Title, 6)
	g.writeElement(buf, "link", record.Link, 6)
	g.writeElement(buf, "description", record.Description, 6)

	if record.PublishedAt != nil {
		g.writeElement(buf, "pubDate", record.PublishedAt.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "category", record.Region, 6)
	g.writeElement(buf, "category", record.Source, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
