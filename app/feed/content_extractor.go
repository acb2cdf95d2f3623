package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ContentExtractor turns syndicated HTML bodies into plain post text.
type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run returns the readable text of an HTML document. Fragments too short for
// readability to score fall back to their visible text.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err == nil {
		if text := strings.TrimSpace(article.TextContent); text != "" {
			slog.Debug("Content extracted successfully",
				"title", article.Title,
				"content_length", len(text))
			return text, nil
		}
	}

	nodes, perr := html.ParseFragment(bytes.NewReader(data), fragmentContext())
	if perr != nil {
		return "", fmt.Errorf("failed to parse content: %w", perr)
	}

	lines := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := VisibleText(n); t != "" {
			lines = append(lines, t)
		}
	}
	if len(lines) == 0 {
		if err != nil {
			return "", fmt.Errorf("failed to extract content: %w", err)
		}
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	return strings.Join(lines, "\n"), nil
}
