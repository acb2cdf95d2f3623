package feed

import (
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	OccludedClass      = "slop-block-occluded"
	OverlayClass       = "slop-block-overlay"
	OpaqueOverlayClass = "slop-block-overlay--opaque"
	MessageClass       = "slop-block-message"
	TitleClass         = "slop-block-title"
	SubtitleClass      = "slop-block-subtitle"
	RevealButtonClass  = "slop-block-reveal-button"

	overlayTitle = "Post Blocked"
	revealText   = "Reveal Post"
)

// Occluder covers and uncovers post roots. All operations are synchronous
// mutations of the node tree and are idempotent.
type Occluder struct{}

func NewOccluder() *Occluder {
	return &Occluder{}
}

// IsOccluded reports whether root carries the occlusion marker.
func (o *Occluder) IsOccluded(root *html.Node) bool {
	return HasClass(root, OccludedClass)
}

// Occlude marks root and appends the overlay. Calling it on an occluded post
// is a no-op.
func (o *Occluder) Occlude(root *html.Node, key, label string, style Style, pending bool) {
	if root == nil || o.IsOccluded(root) {
		return
	}

	overlay := element(atom.Div, OverlayClass)
	SetAttr(overlay, "data-post-key", key)
	SetAttr(overlay, "data-pending", strconv.FormatBool(pending))

	message := element(atom.Div, MessageClass)
	title := element(atom.H3, TitleClass)
	title.AppendChild(&html.Node{Type: html.TextNode, Data: overlayTitle})
	subtitle := element(atom.P, SubtitleClass)
	subtitle.AppendChild(&html.Node{Type: html.TextNode, Data: label})

	message.AppendChild(title)
	message.AppendChild(subtitle)
	overlay.AppendChild(message)

	AddClass(root, OccludedClass)
	root.AppendChild(overlay)
	o.Restyle(root, style)
}

// Remove drops every overlay and the occlusion marker from root.
func (o *Occluder) Remove(root *html.Node) {
	if root == nil {
		return
	}
	for _, overlay := range o.overlays(root) {
		Detach(overlay)
	}
	RemoveClass(root, OccludedClass)
}

// UpdateLabel replaces the overlay subtitle.
func (o *Occluder) UpdateLabel(root *html.Node, label string) {
	for _, overlay := range o.overlays(root) {
		for _, subtitle := range Select(overlay, "."+SubtitleClass) {
			for c := subtitle.FirstChild; c != nil; c = subtitle.FirstChild {
				subtitle.RemoveChild(c)
			}
			subtitle.AppendChild(&html.Node{Type: html.TextNode, Data: label})
		}
	}
}

// Label returns the current overlay subtitle, or "" when not occluded.
func (o *Occluder) Label(root *html.Node) string {
	for _, overlay := range o.overlays(root) {
		for _, subtitle := range Select(overlay, "."+SubtitleClass) {
			return VisibleText(subtitle)
		}
	}
	return ""
}

// SetPending flags whether an escalation is in flight for the post.
func (o *Occluder) SetPending(root *html.Node, pending bool) {
	for _, overlay := range o.overlays(root) {
		SetAttr(overlay, "data-pending", strconv.FormatBool(pending))
	}
}

// Pending reports the overlay's pending flag.
func (o *Occluder) Pending(root *html.Node) bool {
	for _, overlay := range o.overlays(root) {
		return Attr(overlay, "data-pending") == "true"
	}
	return false
}

// Restyle switches between opaque and label+button presentation without
// touching occlusion state.
func (o *Occluder) Restyle(root *html.Node, style Style) {
	for _, overlay := range o.overlays(root) {
		SetAttr(overlay, "data-opaque", strconv.FormatBool(style.Opaque))
		if style.Opaque {
			AddClass(overlay, OpaqueOverlayClass)
		} else {
			RemoveClass(overlay, OpaqueOverlayClass)
		}

		buttons := Select(overlay, "."+RevealButtonClass)
		switch {
		case style.HideRevealButton:
			for _, b := range buttons {
				Detach(b)
			}
		case len(buttons) == 0:
			for _, message := range Select(overlay, "."+MessageClass) {
				button := element(atom.Button, RevealButtonClass)
				SetAttr(button, "type", "button")
				SetAttr(button, "data-post-key", Attr(overlay, "data-post-key"))
				button.AppendChild(&html.Node{Type: html.TextNode, Data: revealText})
				message.AppendChild(button)
			}
		}
	}
}

func (o *Occluder) overlays(root *html.Node) []*html.Node {
	if root == nil {
		return nil
	}
	var out []*html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if HasClass(c, OverlayClass) {
			out = append(out, c)
		}
	}
	return out
}

func element(a atom.Atom, class string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	SetAttr(n, "class", class)
	return n
}
