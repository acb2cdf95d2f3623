package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImportPage is the document a session starts from when posts are imported
// before the host has loaded a page.
const ImportPage = `<!DOCTYPE html><html><head><title>Feed</title></head><body>` +
	`<div class="scaffold-finite-scroll__content" data-finite-scroll-hotkey-context="FEED"></div>` +
	`</body></html>`

// ImportPageURL is the page URL recorded for ImportPage.
const ImportPageURL = "https://www.linkedin.com/feed/"

// Parser reads RSS/Atom/JSON feeds into items that can be rendered as posts.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	if feed.PublishedParsed != nil {
		metadata.FeedPublishedAt = feed.PublishedParsed
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		normalized := p.normalizeItem(item)
		if normalized.GUID == "" {
			normalized.GUID = normalized.Title
		}
		normalized.URN = ActivityURNPrefix + strconv.FormatUint(xxhash.Sum64String(normalized.GUID), 10)
		items = append(items, normalized)
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = *item.PublishedParsed
	}

	normalized.Authors = p.extractAuthors(item)

	if item.Categories != nil {
		normalized.Categories = item.Categories
	}

	return normalized
}

func (p *Parser) extractAuthors(item *gofeed.Item) []string {
	var authors []string

	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author != nil {
				if s := p.formatAuthor(author.Name, author.Email); s != "" {
					authors = append(authors, s)
				}
			}
		}
	} else if item.Author != nil {
		if s := p.formatAuthor(item.Author.Name, item.Author.Email); s != "" {
			authors = append(authors, s)
		}
	}

	return authors
}

func (p *Parser) formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}

// ItemText picks the post text for an item: readable text of the content,
// then of the description, then the title.
func ItemText(item Item, extractor *ContentExtractor) string {
	for _, body := range []string{item.Content, item.Description} {
		if strings.TrimSpace(body) == "" {
			continue
		}
		if text, err := extractor.Run([]byte(body)); err == nil && text != "" {
			return text
		}
	}
	return strings.TrimSpace(item.Title)
}

// RenderPost builds a legacy-layout post root for an imported item.
func RenderPost(item Item, text string) *html.Node {
	root := element(atom.Div, "feed-shared-update-v2")
	SetAttr(root, "role", "article")
	SetAttr(root, "data-urn", item.URN)
	if item.Link != "" {
		SetAttr(root, "data-permalink", item.Link)
	}

	if len(item.Authors) > 0 {
		actor := element(atom.Span, "update-components-actor__name")
		actor.AppendChild(&html.Node{Type: html.TextNode, Data: item.Authors[0]})
		root.AppendChild(actor)
	}

	description := element(atom.Div, "feed-shared-update-v2__description")
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			description.AppendChild(&html.Node{Type: html.ElementNode, DataAtom: atom.Br, Data: "br"})
		}
		description.AppendChild(&html.Node{Type: html.TextNode, Data: line})
	}
	root.AppendChild(description)

	return root
}
