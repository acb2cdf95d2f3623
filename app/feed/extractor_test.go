package feed

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parsePost(t *testing.T, markup string) *html.Node {
	t.Helper()
	nodes, err := ParseFragment(markup)
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n
		}
	}
	t.Fatalf("No element in %q", markup)
	return nil
}

func TestExtractPrefersContentContainer(t *testing.T) {
	root := parsePost(t, `<div role="article">
		<span class="actor">Jane Doe</span>
		<div class="feed-shared-update-v2__description"><span>We are hiring</span></div>
		<button>Like</button>
	</div>`)

	if got := NewExtractor().Extract(root); got != "We are hiring" {
		t.Errorf("Expected 'We are hiring', got %q", got)
	}
}

func TestExtractSelectorOrder(t *testing.T) {
	root := parsePost(t, `<div>
		<div class="update-components-text">later selector</div>
		<div class="feed-shared-text">earlier selector</div>
	</div>`)

	if got := NewExtractor().Extract(root); got != "earlier selector" {
		t.Errorf("Expected the first selector in order to win, got %q", got)
	}
}

func TestExtractSkipsEmptyContainers(t *testing.T) {
	root := parsePost(t, `<div>
		<div class="feed-shared-update-v2__description">   </div>
		<div class="feed-shared-text-view">Actual text</div>
	</div>`)

	if got := NewExtractor().Extract(root); got != "Actual text" {
		t.Errorf("Expected 'Actual text', got %q", got)
	}
}

func TestExtractFallbackStripsChrome(t *testing.T) {
	root := parsePost(t, `<div role="article">
		<p>Post body text</p>
		<button>Like</button>
		<div class="feed-shared-social-action-bar">Comment Repost</div>
		<div role="toolbar">Send</div>
		<script>var x = 1;</script>
		<div class="slop-block-overlay"><h3>Post Blocked</h3></div>
	</div>`)

	got := NewExtractor().Extract(root)
	if got != "Post body text" {
		t.Errorf("Expected 'Post body text', got %q", got)
	}
	if len(Select(root, "button")) != 1 || len(Select(root, "script")) != 1 {
		t.Error("Expected the input subtree to be left untouched")
	}
}

func TestExtractBlockElementsSeparated(t *testing.T) {
	root := parsePost(t, `<div><p>Promoted</p><p>Start your free trial</p></div>`)

	got := NewExtractor().Extract(root)
	if !strings.Contains(got, "Promoted\nStart your free trial") {
		t.Errorf("Expected block elements on separate lines, got %q", got)
	}
}

func TestExtractEmpty(t *testing.T) {
	extractor := NewExtractor()

	if got := extractor.Extract(nil); got != "" {
		t.Errorf("Expected empty text for nil root, got %q", got)
	}
	if got := extractor.Extract(parsePost(t, `<div><img src="x.png"></div>`)); got != "" {
		t.Errorf("Expected empty text for image-only post, got %q", got)
	}
}

func TestRunDistinguishesFailureFromNoText(t *testing.T) {
	extractor := NewExtractor()

	if _, err := extractor.Run(nil); err == nil {
		t.Errorf("Expected error for nil root")
	}

	text, err := extractor.Run(parsePost(t, `<div><img src="x.png"></div>`))
	if err != nil {
		t.Errorf("Expected no error for a post without text, got %v", err)
	}
	if text != "" {
		t.Errorf("Expected empty text, got %q", text)
	}
}
