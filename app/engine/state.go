package engine

import (
	"maps"
	"slices"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"golang.org/x/net/html"
)

// State is the per-session bookkeeping of the engine. It is only touched from
// the task loop.
type State struct {
	processed  map[string]bool
	occluded   map[string]bool
	revealed   map[string]bool
	pending    map[string]*html.Node
	categories map[string]feed.Category
	texts      map[string]string
	labels     map[string]string
	escalated  map[string]bool
	bindings   map[*html.Node]string
}

func NewState() *State {
	return &State{
		processed:  make(map[string]bool),
		occluded:   make(map[string]bool),
		revealed:   make(map[string]bool),
		pending:    make(map[string]*html.Node),
		categories: make(map[string]feed.Category),
		texts:      make(map[string]string),
		labels:     make(map[string]string),
		escalated:  make(map[string]bool),
		bindings:   make(map[*html.Node]string),
	}
}

// Reset clears per-page state. With preserveRevealed the sticky reveals, the
// AI labels and the escalation history survive so a rebuilt feed never
// re-occludes a revealed post or asks the backend twice for the same key.
func (s *State) Reset(preserveRevealed bool) {
	clear(s.processed)
	clear(s.occluded)
	clear(s.pending)
	clear(s.categories)
	clear(s.texts)
	clear(s.bindings)
	if preserveRevealed {
		return
	}
	clear(s.revealed)
	clear(s.labels)
	clear(s.escalated)
}

// Bind records that node currently shows the post identified by key and
// returns the key it was bound to before, if any.
func (s *State) Bind(node *html.Node, key string) string {
	previous := s.bindings[node]
	s.bindings[node] = key
	return previous
}

// Unbind forgets the binding of node.
func (s *State) Unbind(node *html.Node) string {
	key := s.bindings[node]
	delete(s.bindings, node)
	return key
}

// KeyOf returns the key node is bound to, or "".
func (s *State) KeyOf(node *html.Node) string {
	return s.bindings[node]
}

// Nodes returns every node bound to key.
func (s *State) Nodes(key string) []*html.Node {
	var out []*html.Node
	for node, k := range s.bindings {
		if k == key {
			out = append(out, node)
		}
	}
	return out
}

// PostState is the externally visible state of one identity key.
type PostState struct {
	Key       string        `json:"key"`
	Category  feed.Category `json:"category,omitempty"`
	Label     string        `json:"label,omitempty"`
	Processed bool          `json:"processed"`
	Occluded  bool          `json:"occluded"`
	Revealed  bool          `json:"revealed"`
	Pending   bool          `json:"pending"`
	Escalated bool          `json:"escalated"`
	Nodes     int           `json:"nodes"`
}

// Snapshot describes every key the state knows about, sorted by key.
func (s *State) Snapshot() []PostState {
	keys := make(map[string]bool)
	for _, m := range []map[string]bool{s.processed, s.occluded, s.revealed, s.escalated} {
		for key := range m {
			keys[key] = true
		}
	}
	nodes := make(map[string]int)
	for _, key := range s.bindings {
		keys[key] = true
		nodes[key]++
	}

	out := make([]PostState, 0, len(keys))
	for _, key := range slices.Sorted(maps.Keys(keys)) {
		out = append(out, PostState{
			Key:       key,
			Category:  s.categories[key],
			Label:     s.labels[key],
			Processed: s.processed[key],
			Occluded:  s.occluded[key],
			Revealed:  s.revealed[key],
			Pending:   s.pending[key] != nil,
			Escalated: s.escalated[key],
			Nodes:     nodes[key],
		})
	}
	return out
}
