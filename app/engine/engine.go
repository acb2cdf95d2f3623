package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/llm"
	"github.com/OmarCodes2/Slop-Block/app/tasks"
	"golang.org/x/net/html"
)

// PendingLabel is shown while an escalation is in flight.
const PendingLabel = "Processing..."

var ErrNoDocument = errors.New("no document loaded")

// Action tells the host how to react to a navigation.
type Action string

const (
	ActionNone    Action = "none"
	ActionReload  Action = "reload"
	ActionRebuild Action = "rebuild"
)

// Dispatcher queues work on the task loop the engine runs on.
type Dispatcher interface {
	EnqueueTask(task tasks.TaskInterface) error
	ScheduleIdle(task tasks.TaskInterface) error
}

// Stats counts work done by the engine since it was created.
type Stats struct {
	Classified  int `json:"classified"`
	Escalations int `json:"escalations"`
	Discarded   int `json:"discarded"`
	Skipped     int `json:"skipped"`
}

// Engine discovers post roots in the session's document, classifies each
// identity key once and keeps the overlays in line with the settings. Every
// method must be called from the task loop.
type Engine struct {
	sessionID  string
	dispatcher Dispatcher
	submitter  Submitter

	extractor        *feed.Extractor
	resolver         *feed.Resolver
	classifier       *feed.Classifier
	occluder         *feed.Occluder
	contentExtractor *feed.ContentExtractor

	settings feed.Settings
	state    *State
	stats    Stats

	doc        *html.Node
	url        string
	containers []Container
	generation int

	scanQueue     []*html.Node
	scanScheduled bool

	feedReloaded bool
}

// New creates an engine. A nil submitter disables escalation.
func New(sessionID string, dispatcher Dispatcher, submitter Submitter, settings feed.Settings) *Engine {
	extractor := feed.NewExtractor()

	return &Engine{
		sessionID:        sessionID,
		dispatcher:       dispatcher,
		submitter:        submitter,
		extractor:        extractor,
		resolver:         feed.NewResolver(extractor),
		classifier:       feed.NewClassifier(),
		occluder:         feed.NewOccluder(),
		contentExtractor: feed.NewContentExtractor(),
		settings:         settings.Clone(),
		state:            NewState(),
	}
}

// LoadPage replaces the document after a full page load. All per-page state
// is discarded; the browsing-session reload flag survives.
func (e *Engine) LoadPage(pageURL, markup string) error {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	e.doc = doc
	e.url = pageURL
	e.restart(false)

	slog.Debug("Page loaded", "session", e.sessionID, "url", pageURL)
	return nil
}

// Navigate reacts to an in-app URL change reported by the host.
func (e *Engine) Navigate(nextURL string) Action {
	previous := e.url
	e.url = nextURL

	if !isFeedPath(previous) && isFeedPath(nextURL) && !e.feedReloaded {
		e.feedReloaded = true
		slog.Info("Feed entered, requesting reload", "session", e.sessionID, "from", previous, "to", nextURL)
		return ActionReload
	}

	if e.doc == nil {
		return ActionNone
	}

	for _, n := range feed.Select(e.doc, "."+feed.OccludedClass) {
		e.occluder.Remove(n)
	}
	e.restart(true)

	slog.Debug("Feed observation rebuilt", "session", e.sessionID, "url", nextURL)
	return ActionRebuild
}

func (e *Engine) restart(preserveRevealed bool) {
	e.generation++
	e.containers = nil
	e.scanQueue = nil
	e.scanScheduled = false
	e.state.Reset(preserveRevealed)
	e.resolver.Reset()

	task := NewLocateContainerTask(e.sessionID, e, e.generation)
	if err := e.dispatcher.EnqueueTask(task); err != nil {
		slog.Warn("Failed to schedule container lookup", "session", e.sessionID, "error", err)
	}
}

// locate finds the feed containers and scans the posts already in them. A
// missing container is an error so the task is retried with backoff.
func (e *Engine) locate(generation int) error {
	if generation != e.generation || e.doc == nil {
		return nil
	}

	containers := FindContainers(e.doc)
	if len(containers) == 0 {
		return ErrContainerNotFound
	}
	e.containers = containers

	var roots []*html.Node
	for _, c := range containers {
		roots = append(roots, c.Posts()...)
	}
	processed := e.scan(roots)

	slog.Info("Task completed",
		"type", "LocateContainer",
		"session", e.sessionID,
		"containers", len(containers),
		"posts", len(roots),
		"processed", processed)
	return nil
}

// Observing reports whether containers have been located for the current page.
func (e *Engine) Observing() bool {
	return len(e.containers) > 0
}

// OpKind names a host DOM mutation.
type OpKind string

const (
	OpAppend  OpKind = "append"
	OpRemove  OpKind = "remove"
	OpRecycle OpKind = "recycle"
)

// Op is one DOM mutation reported by the host. Target is a CSS selector;
// append adds HTML as children of the first match, remove detaches every
// match and recycle reuses the first match for the post in HTML.
type Op struct {
	Kind   OpKind `json:"op"`
	Target string `json:"target"`
	HTML   string `json:"html,omitempty"`
}

// Mutate applies host mutations and schedules the resulting candidate roots
// for idle processing. Failing ops are reported; the rest still apply.
func (e *Engine) Mutate(ops []Op) error {
	if e.doc == nil {
		return ErrNoDocument
	}

	var errs []error
	var added []*html.Node
	for i, op := range ops {
		nodes, err := e.apply(op)
		if err != nil {
			errs = append(errs, fmt.Errorf("op %d (%s): %w", i, op.Kind, err))
			continue
		}
		added = append(added, nodes...)
	}

	e.observe(added)
	return errors.Join(errs...)
}

func (e *Engine) apply(op Op) ([]*html.Node, error) {
	targets := feed.Select(e.doc, op.Target)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no node matches '%s'", op.Target)
	}

	switch op.Kind {
	case OpAppend:
		nodes, err := feed.ParseFragment(op.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fragment: %w", err)
		}
		for _, n := range nodes {
			targets[0].AppendChild(n)
		}
		return nodes, nil

	case OpRemove:
		for _, target := range targets {
			e.remove(target)
		}
		return nil, nil

	case OpRecycle:
		nodes, err := feed.ParseFragment(op.HTML)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fragment: %w", err)
		}
		var source *html.Node
		for _, n := range nodes {
			if n.Type == html.ElementNode {
				source = n
				break
			}
		}
		if source == nil {
			return nil, errors.New("recycle needs an element")
		}
		e.recycle(targets[0], source)
		return []*html.Node{targets[0]}, nil
	}

	return nil, fmt.Errorf("unknown op '%s'", op.Kind)
}

func (e *Engine) remove(target *html.Node) {
	affected := e.unbindSubtree(target)
	feed.Detach(target)
	for key := range affected {
		e.syncOccluded(key)
	}
}

// recycle reuses target for the content of source, the way virtualized lists
// reuse rows: the node handle stays, its attributes and children change.
func (e *Engine) recycle(target, source *html.Node) {
	affected := e.unbindSubtree(target)

	for c := target.FirstChild; c != nil; c = target.FirstChild {
		target.RemoveChild(c)
	}
	target.Attr = source.Attr
	for c := source.FirstChild; c != nil; c = source.FirstChild {
		source.RemoveChild(c)
		target.AppendChild(c)
	}

	for key := range affected {
		e.syncOccluded(key)
	}
}

func (e *Engine) unbindSubtree(root *html.Node) map[string]bool {
	affected := make(map[string]bool)
	for node, key := range e.state.bindings {
		if feed.Contains(root, node) {
			e.state.Unbind(node)
			e.resolver.Forget(node)
			affected[key] = true
		}
	}
	return affected
}

// observe turns added nodes into candidate post roots of the located
// containers and queues them for the next idle scan.
func (e *Engine) observe(added []*html.Node) {
	if !e.Observing() || len(added) == 0 {
		return
	}

	var candidates []*html.Node
	for _, n := range added {
		for _, c := range e.containers {
			candidates = append(candidates, c.Candidates(n)...)
		}
	}
	e.scheduleScan(candidates)
}

func (e *Engine) scheduleScan(roots []*html.Node) {
	for _, root := range roots {
		if !slices.Contains(e.scanQueue, root) {
			e.scanQueue = append(e.scanQueue, root)
		}
	}
	if e.scanScheduled || len(e.scanQueue) == 0 {
		return
	}

	if err := e.dispatcher.ScheduleIdle(NewScanTask(e.sessionID, e, e.generation)); err != nil {
		slog.Warn("Failed to schedule scan", "session", e.sessionID, "error", err)
		return
	}
	e.scanScheduled = true
}

// runScan drains the scan queue. It is the body of the idle scan task.
func (e *Engine) runScan(generation int) (int, int) {
	if generation != e.generation {
		return 0, 0
	}
	roots := e.scanQueue
	e.scanQueue = nil
	e.scanScheduled = false

	return len(roots), e.scan(roots)
}

// Flush runs the queued scan now instead of waiting for idle time.
func (e *Engine) Flush() int {
	_, processed := e.runScan(e.generation)
	return processed
}

// scan processes roots in document order and returns how many were handled.
func (e *Engine) scan(roots []*html.Node) int {
	count := 0
	for _, root := range documentOrder(e.doc, roots) {
		if e.process(root) {
			count++
		}
	}
	return count
}

// process runs one candidate root through identity, extraction,
// classification and rendering. It reports whether the root was handled; a
// post whose extraction fails is left untouched.
func (e *Engine) process(root *html.Node) (handled bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Post processing failed", "session", e.sessionID, "error", r)
			handled = false
		}
	}()

	if !Attached(e.doc, root) {
		return false
	}

	key := e.resolver.Resolve(root)
	if previous := e.state.Bind(root, key); previous != "" && previous != key {
		e.occluder.Remove(root)
		e.syncOccluded(previous)
	}

	if e.state.revealed[key] {
		e.occluder.Remove(root)
		e.syncOccluded(key)
		return true
	}

	if !e.state.processed[key] {
		text, err := e.extractor.Run(root)
		if err != nil {
			e.stats.Skipped++
			slog.Warn("Post skipped", "session", e.sessionID, "key", key, "error", err)
			return false
		}

		match := e.classifier.Explain(text)
		e.state.processed[key] = true
		e.state.texts[key] = text
		e.state.categories[key] = match.Category
		e.stats.Classified++

		slog.Debug("Post classified", "session", e.sessionID, "key", key, "category", string(match.Category), "phrase", match.Phrase, "pattern", match.Pattern)
	}

	v := verdict(e.state.categories[key], e.settings, false)
	e.render(root, key, v)

	slog.Debug("Post processed", "session", e.sessionID, "key", key, "category", string(v.Category), "occlude", v.Occlude, "escalate", v.Escalate)
	return true
}

func (e *Engine) render(root *html.Node, key string, v Verdict) {
	if !v.Occlude {
		e.occluder.Remove(root)
		e.syncOccluded(key)
		return
	}

	label := e.label(key, v.Category)
	pending := e.state.pending[key] != nil
	if e.occluder.IsOccluded(root) {
		e.occluder.UpdateLabel(root, label)
		e.occluder.SetPending(root, pending)
		e.occluder.Restyle(root, e.settings.Style())
	} else {
		e.occluder.Occlude(root, key, label, e.settings.Style(), pending)
	}
	e.state.occluded[key] = true

	if v.Escalate {
		e.escalate(key, root)
	}
}

func (e *Engine) label(key string, category feed.Category) string {
	if category.Valid() && category != feed.CategoryUncategorized {
		return category.Label()
	}
	if label := e.state.labels[key]; label != "" {
		return label
	}
	if e.state.pending[key] != nil {
		return PendingLabel
	}
	return feed.FallbackLabel
}

// escalate sends the key to the backend unless it is in flight or has been
// asked about before.
func (e *Engine) escalate(key string, root *html.Node) {
	if e.submitter == nil || e.state.escalated[key] || e.state.pending[key] != nil {
		return
	}
	text := e.state.texts[key]

	e.state.escalated[key] = true
	e.state.pending[key] = root
	e.stats.Escalations++

	for _, n := range e.state.Nodes(key) {
		if e.occluder.IsOccluded(n) {
			e.occluder.SetPending(n, true)
			e.occluder.UpdateLabel(n, PendingLabel)
		}
	}

	e.submitter.Submit(Request{Key: key, Node: root, Text: llm.Truncate(text)})
}

// HandleEscalation applies a backend result. The label is cached for the key
// in every case, since it depends only on the key's text. It is shown only
// while the request's node is still attached, bound to the same key and
// occluded, and the key has not been revealed.
func (e *Engine) HandleEscalation(res Result) {
	if res.Err == nil && !res.Unavailable {
		e.state.labels[res.Key] = llm.SanitizeLabel(res.Label)
	}

	node, ok := e.state.pending[res.Key]
	if !ok || node != res.Node {
		e.stats.Discarded++
		slog.Debug("Discarding escalation result without pending request", "session", e.sessionID, "key", res.Key)
		return
	}
	delete(e.state.pending, res.Key)

	switch {
	case !e.valid(node, res.Key):
		e.stats.Discarded++
		slog.Debug("Discarding stale escalation result", "session", e.sessionID, "key", res.Key)
	case res.Unavailable:
		slog.Debug("Classification backend unavailable", "session", e.sessionID, "key", res.Key)
	case res.Err != nil:
		slog.Debug("Escalation failed, using fallback label", "session", e.sessionID, "key", res.Key, "error", res.Err)
	}

	e.refreshLabel(res.Key)
}

// refreshLabel clears the pending marker of the key's overlays and shows its
// current label.
func (e *Engine) refreshLabel(key string) {
	category := verdict(e.state.categories[key], e.settings, false).Category
	for _, n := range e.state.Nodes(key) {
		if Attached(e.doc, n) && e.occluder.IsOccluded(n) {
			e.occluder.SetPending(n, false)
			e.occluder.UpdateLabel(n, e.label(key, category))
		}
	}
}

func (e *Engine) valid(node *html.Node, key string) bool {
	return e.state.KeyOf(node) == key &&
		!e.state.revealed[key] &&
		Attached(e.doc, node) &&
		e.occluder.IsOccluded(node)
}

// ApplySettings reconciles every attached post with new settings. Categories
// come from the cache; revealed keys are skipped entirely.
func (e *Engine) ApplySettings(settings feed.Settings) {
	e.settings = settings.Clone()
	if e.doc == nil {
		return
	}

	plan := Plan(e.state.categories, e.settings, e.state.revealed)
	changed := 0
	for _, node := range documentOrder(e.doc, e.boundNodes()) {
		key := e.state.KeyOf(node)
		if e.state.revealed[key] {
			continue
		}
		v, ok := plan[key]
		if !ok {
			continue
		}
		if e.occluder.IsOccluded(node) != v.Occlude {
			changed++
		}
		e.render(node, key, v)
	}

	slog.Info("Settings applied", "session", e.sessionID, "posts", len(plan), "changed", changed)
}

// Settings returns the settings in effect.
func (e *Engine) Settings() feed.Settings {
	return e.settings.Clone()
}

// Reveal uncovers every node bound to key and keeps it uncovered for the rest
// of the browsing session.
func (e *Engine) Reveal(key string) (int, error) {
	if key == "" {
		return 0, errors.New("empty post key")
	}

	e.state.revealed[key] = true
	revealed := 0
	for _, n := range e.state.Nodes(key) {
		if e.occluder.IsOccluded(n) {
			e.occluder.Remove(n)
			revealed++
		}
	}
	delete(e.state.occluded, key)

	slog.Debug("Post revealed", "session", e.sessionID, "key", key, "nodes", revealed)
	return revealed, nil
}

// syncOccluded keeps the occluded set equal to the DOM marking of the nodes
// bound to key.
func (e *Engine) syncOccluded(key string) {
	for _, n := range e.state.Nodes(key) {
		if Attached(e.doc, n) && e.occluder.IsOccluded(n) {
			e.state.occluded[key] = true
			return
		}
	}
	delete(e.state.occluded, key)
}

func (e *Engine) boundNodes() []*html.Node {
	out := make([]*html.Node, 0, len(e.state.bindings))
	for node := range e.state.bindings {
		out = append(out, node)
	}
	return out
}

// Snapshot describes the state of every known key.
func (e *Engine) Snapshot() []PostState {
	return e.state.Snapshot()
}

// Stats returns the work counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// URL is the page URL last reported by the host.
func (e *Engine) URL() string {
	return e.url
}

// Document serializes the current document with its overlays.
func (e *Engine) Document() (string, error) {
	if e.doc == nil {
		return "", ErrNoDocument
	}
	return feed.Render(e.doc)
}

// Import renders syndicated items as posts of the legacy layout. Without a
// document the import page is loaded first; items already present are
// skipped.
func (e *Engine) Import(items []feed.Item) (int, error) {
	if e.doc == nil {
		if err := e.LoadPage(feed.ImportPageURL, feed.ImportPage); err != nil {
			return 0, err
		}
	}

	var container *html.Node
	for _, c := range FindContainers(e.doc) {
		if c.Variant.Name == LegacyVariant.Name {
			container = c.Node
			break
		}
	}
	if container == nil {
		return 0, ErrContainerNotFound
	}

	var added []*html.Node
	for _, item := range items {
		if len(feed.Select(e.doc, fmt.Sprintf(`[data-urn=%q]`, item.URN))) > 0 {
			continue
		}
		post := feed.RenderPost(item, feed.ItemText(item, e.contentExtractor))
		container.AppendChild(post)
		added = append(added, post)
	}

	e.observe(added)
	return len(added), nil
}

// ExportPosts lists the processed posts left visible, in document order.
func (e *Engine) ExportPosts() []feed.ExportPost {
	if e.doc == nil {
		return nil
	}

	seen := make(map[string]bool)
	var out []feed.ExportPost
	for _, node := range documentOrder(e.doc, e.boundNodes()) {
		key := e.state.KeyOf(node)
		if seen[key] || !e.state.processed[key] || e.occluder.IsOccluded(node) {
			continue
		}
		seen[key] = true
		out = append(out, feed.ExportPost{
			Key:      key,
			Text:     e.state.texts[key],
			Link:     permalink(node, key),
			Category: verdict(e.state.categories[key], e.settings, false).Category,
		})
	}
	return out
}

func permalink(node *html.Node, key string) string {
	if link := feed.Attr(node, "data-permalink"); link != "" {
		return link
	}
	if strings.HasPrefix(key, feed.ActivityURNPrefix) {
		return "https://www.linkedin.com/feed/update/" + key + "/"
	}
	return ""
}

func isFeedPath(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.Contains(raw, "/feed")
	}
	return u.Path == "/feed" || strings.HasPrefix(u.Path, "/feed/")
}

// documentOrder filters nodes to those attached to doc, in document order.
func documentOrder(doc *html.Node, nodes []*html.Node) []*html.Node {
	if doc == nil || len(nodes) == 0 {
		return nil
	}
	want := make(map[*html.Node]bool, len(nodes))
	for _, n := range nodes {
		want[n] = true
	}

	out := make([]*html.Node, 0, len(nodes))
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if want[n] {
			out = append(out, n)
			delete(want, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}
