package engine

import (
	"errors"
	"strings"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"golang.org/x/net/html"
)

var ErrContainerNotFound = errors.New("feed container not found")

// Variant is one structural layout of the feed.
type Variant struct {
	Name string
	// Containers are tried in order; the first match is the container.
	Containers []string
	// Posts match post roots inside the container.
	Posts []string
	// Excluded roots lying inside any of these are page chrome.
	Excluded []string
}

var (
	LegacyVariant = Variant{
		Name: "legacy",
		Containers: []string{
			`.scaffold-finite-scroll__content[data-finite-scroll-hotkey-context="FEED"]`,
			`.scaffold-finite-scroll__content`,
		},
		Posts: []string{feed.PostSelector},
	}

	AlternateVariant = Variant{
		Name: "alternate",
		Containers: []string{
			`main[role="main"]`,
			`[role="main"]`,
			`main`,
		},
		Posts: []string{
			`article[role="article"]`,
			`article`,
			`[data-view-name="feed-full-update"]`,
		},
		Excluded: []string{
			`header`,
			`nav`,
			`[role="banner"]`,
			`[role="navigation"]`,
		},
	}

	Variants = []Variant{LegacyVariant, AlternateVariant}
)

// Container is a located feed container and the layout it belongs to.
type Container struct {
	Node    *html.Node
	Variant Variant
}

// FindContainers locates the container of every variant present in doc.
func FindContainers(doc *html.Node) []Container {
	var out []Container
	for _, variant := range Variants {
		for _, selector := range variant.Containers {
			if nodes := feed.Select(doc, selector); len(nodes) > 0 {
				out = append(out, Container{Node: nodes[0], Variant: variant})
				break
			}
		}
	}
	return out
}

// Posts returns the post roots of the container in document order.
func (c Container) Posts() []*html.Node {
	selector := c.selector()
	if selector == "" {
		return nil
	}

	var out []*html.Node
	for _, n := range feed.Select(c.Node, selector) {
		if c.isPost(n, selector) {
			out = append(out, n)
		}
	}
	return out
}

// Candidates returns the post roots an added node contributes: its enclosing
// post when it lies inside one, otherwise the posts below it.
func (c Container) Candidates(added *html.Node) []*html.Node {
	if added == nil || added.Type != html.ElementNode || !feed.Contains(c.Node, added) {
		return nil
	}
	if ignored(added) {
		return nil
	}

	selector := c.selector()
	if selector == "" {
		return nil
	}

	for cur := added; cur != nil && cur != c.Node; cur = cur.Parent {
		if c.isPost(cur, selector) {
			return []*html.Node{cur}
		}
	}

	var out []*html.Node
	for _, n := range feed.Select(added, selector) {
		if c.isPost(n, selector) {
			out = append(out, n)
		}
	}
	return out
}

// selector returns the first post selector of the variant with a post root
// in the container. Later selectors are fallbacks for other markup
// generations and are never mixed with earlier ones.
func (c Container) selector() string {
	for _, selector := range c.Variant.Posts {
		for _, n := range feed.Select(c.Node, selector) {
			if c.isPost(n, selector) {
				return selector
			}
		}
	}
	return ""
}

// isPost reports whether n is an outermost post root: it matches selector,
// and no ancestor inside the container is page chrome or another post root.
func (c Container) isPost(n *html.Node, selector string) bool {
	if n == nil || n == c.Node || !feed.Matches(n, selector) {
		return false
	}
	for cur := n.Parent; cur != nil && cur != c.Node; cur = cur.Parent {
		if feed.Matches(cur, selector) {
			return false
		}
		for _, excluded := range c.Variant.Excluded {
			if feed.Matches(cur, excluded) {
				return false
			}
		}
	}
	return true
}

// ignored reports additions that never hold a post of their own: aggregate
// wrappers and occludable hints without an article.
func ignored(n *html.Node) bool {
	if strings.HasPrefix(feed.Attr(n, "data-id"), feed.AggregateURNPrefix) {
		return true
	}
	if feed.HasClass(n, "occludable-update-hint") && feed.HasClass(n, "occludable-update") {
		return len(feed.Select(n, `[role="article"], article`)) == 0
	}
	return false
}

// Attached reports whether n is still part of doc.
func Attached(doc, n *html.Node) bool {
	return doc != nil && n != nil && feed.Contains(doc, n)
}
