package feed

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

const (
	ActivityURNPrefix  = "urn:li:activity:"
	AggregateURNPrefix = "urn:li:aggregate:"
	PermalinkPrefix    = "post:"
	SyntheticPrefix    = "synthetic:"

	// PostSelector matches post roots of the legacy feed layout.
	PostSelector = `div[role="article"][data-urn^="urn:li:activity:"]`
)

var (
	identityAttrs = []string{"data-urn", "data-activity-urn", "data-id"}
	activityInURL = regexp.MustCompile(`urn:li:activity:(\d+)`)
)

// Resolver derives stable identity keys for post roots. Synthetic keys are
// kept in a side table owned by the resolver. A Resolver is not safe for
// concurrent use; the engine calls it from its task loop only.
type Resolver struct {
	extractor *Extractor
	synthetic map[*html.Node]string
}

func NewResolver(extractor *Extractor) *Resolver {
	return &Resolver{
		extractor: extractor,
		synthetic: make(map[*html.Node]string),
	}
}

// Resolve returns the identity key for root: a canonical activity URN, then a
// permalink-derived key, then a synthetic key minted once per node.
func (r *Resolver) Resolve(root *html.Node) string {
	if key := canonicalKey(root); key != "" {
		return key
	}
	if key := permalinkKey(root); key != "" {
		return key
	}
	return r.syntheticKey(root)
}

// Forget drops the synthetic key cached for n.
func (r *Resolver) Forget(n *html.Node) {
	delete(r.synthetic, n)
}

// Reset drops every cached synthetic key.
func (r *Resolver) Reset() {
	clear(r.synthetic)
}

func canonicalKey(root *html.Node) string {
	for _, name := range identityAttrs {
		if v := Attr(root, name); strings.HasPrefix(v, ActivityURNPrefix) {
			return v
		}
	}
	for _, n := range Select(root, `[data-urn^="urn:li:activity:"]`) {
		return Attr(n, "data-urn")
	}
	return ""
}

func permalinkKey(root *html.Node) string {
	for _, a := range Select(root, `a[href*="/feed/update/"]`) {
		href := Attr(a, "href")
		if unescaped, err := url.QueryUnescape(href); err == nil {
			href = unescaped
		}
		if m := activityInURL.FindStringSubmatch(href); m != nil {
			return ActivityURNPrefix + m[1]
		}
		_, rest, _ := strings.Cut(href, "/feed/update/")
		rest, _, _ = strings.Cut(rest, "?")
		rest = strings.Trim(rest, "/")
		if rest != "" {
			return PermalinkPrefix + rest
		}
	}
	if v := Attr(root, "data-permalink"); v != "" {
		return PermalinkPrefix + v
	}
	return ""
}

func (r *Resolver) syntheticKey(root *html.Node) string {
	if key, ok := r.synthetic[root]; ok {
		return key
	}

	var key string
	if text := Normalize(r.extractor.Extract(root)); text != "" {
		key = fmt.Sprintf("%s%016x", SyntheticPrefix, xxhash.Sum64String(text))
	} else {
		key = SyntheticPrefix + "node-" + uuid.NewString()
	}

	r.synthetic[root] = key
	return key
}
