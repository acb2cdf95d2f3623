package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// Post text containers, most specific first.
var contentSelectors = []string{
	".feed-shared-update-v2__description",
	".feed-shared-text-view",
	".feed-shared-text",
	`[data-test-id="main-feed-activity-card__commentary"]`,
	".update-components-text",
	".feed-shared-inline-show-more-text",
	".feed-shared-text__text-view",
	`[data-test-id="feed-shared-update-v2__description"]`,
}

// UI chrome removed before the whole-subtree fallback.
var chromeSelectors = []string{
	"button",
	"." + OverlayClass,
	".feed-shared-social-action-bar",
	`[role="toolbar"]`,
	"script",
	"style",
}

// Extractor returns the best-effort visible text of a post.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

var errNoRoot = errors.New("no post root")

// Extract tries the known content containers in order and falls back to the
// text of a chrome-stripped clone of the post. It never panics and never
// mutates root; on failure it returns "".
func (e *Extractor) Extract(root *html.Node) string {
	text, _ := e.Run(root)
	return text
}

// Run is Extract with failures reported. An empty string with a nil error
// means the post has no text.
func (e *Extractor) Run(root *html.Node) (text string, err error) {
	if root == nil {
		return "", errNoRoot
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Post text extraction failed", "error", r)
			text = ""
			err = fmt.Errorf("failed to extract post text: %v", r)
		}
	}()

	for _, selector := range contentSelectors {
		for _, n := range Select(root, selector) {
			if t := strings.TrimSpace(VisibleText(n)); t != "" {
				return t, nil
			}
		}
	}

	clone := CloneTree(root)
	for _, selector := range chromeSelectors {
		for _, n := range Select(clone, selector) {
			Detach(n)
		}
	}

	return strings.TrimSpace(VisibleText(clone)), nil
}
