package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/OmarCodes2/Slop-Block/app/cfg"
)

const titleRunes = 80

// Generator writes the posts left visible in a session as an RSS 2.0 feed.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel, posts []ExportPost) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", cmp.Or(channel.Title, "Slop Block feed"), 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, fmt.Sprintf("Visible posts from %s", channel.Link)), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	g.writeElement(&buf, "lastBuildDate", time.Now().In(time.Local).Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Slop-Block/%s", cfg.Get().Version), 4)

	for _, post := range posts {
		g.writeItem(&buf, post)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

// SelfLink builds the public URL of a session's export.
func SelfLink(sessionID string) string {
	if cfg.Get().BaseUrl != "" {
		return fmt.Sprintf("%s/api/sessions/%s/feed.xml", strings.TrimRight(cfg.Get().BaseUrl, "/"), sessionID)
	}
	return fmt.Sprintf("http://localhost:%s/api/sessions/%s/feed.xml", cfg.Get().Port, sessionID)
}

func (g *Generator) writeItem(buf *bytes.Buffer, post ExportPost) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(post.Key)))
	xml.EscapeText(buf, []byte(post.Key))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", g.title(post.Text), 6)
	if g.isURL(post.Link) {
		g.writeElement(buf, "link", post.Link, 6)
	}
	g.writeElement(buf, "description", cmp.Or(post.Text, "No description available"), 6)

	if post.Category.Valid() {
		g.writeElement(buf, "category", post.Category.Label(), 6)
	}

	buf.WriteString("    </item>\n")
}

// title is the first line of the post, shortened to titleRunes.
func (g *Generator) title(text string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	runes := []rune(line)
	if len(runes) > titleRunes {
		return strings.TrimSpace(string(runes[:titleRunes])) + "…"
	}
	return line
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

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
