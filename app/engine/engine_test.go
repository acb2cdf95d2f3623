package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"github.com/OmarCodes2/Slop-Block/app/llm"
	"github.com/OmarCodes2/Slop-Block/app/tasks"
	"golang.org/x/net/html"
)

const (
	feedURL    = "https://www.linkedin.com/feed/"
	networkURL = "https://www.linkedin.com/mynetwork/"
)

type fakeDispatcher struct {
	immediate []tasks.TaskInterface
	idle      []tasks.TaskInterface
}

func (d *fakeDispatcher) EnqueueTask(task tasks.TaskInterface) error {
	d.immediate = append(d.immediate, task)
	return nil
}

func (d *fakeDispatcher) ScheduleIdle(task tasks.TaskInterface) error {
	d.idle = append(d.idle, task)
	return nil
}

// drain runs queued tasks, immediate ones first, until both queues are empty.
func (d *fakeDispatcher) drain(t *testing.T) {
	t.Helper()
	for len(d.immediate) > 0 || len(d.idle) > 0 {
		var task tasks.TaskInterface
		if len(d.immediate) > 0 {
			task, d.immediate = d.immediate[0], d.immediate[1:]
		} else {
			task, d.idle = d.idle[0], d.idle[1:]
		}
		task.Start()
		if err := task.Execute(context.Background()); err != nil {
			t.Logf("Task %s failed: %v", task.GetType(), err)
		}
	}
}

type fakeSubmitter struct {
	requests []Request
}

func (s *fakeSubmitter) Submit(req Request) {
	s.requests = append(s.requests, req)
}

func legacyPost(id, text string) string {
	return fmt.Sprintf(`<div role="article" data-urn="urn:li:activity:%s"><span class="update-components-actor__name">Someone</span><div class="feed-shared-update-v2__description">%s</div></div>`, id, text)
}

func legacyPage(posts ...string) string {
	return `<!DOCTYPE html><html><body><div class="scaffold-finite-scroll__content" data-finite-scroll-hotkey-context="FEED">` +
		strings.Join(posts, "") + `</div></body></html>`
}

func key(id string) string {
	return feed.ActivityURNPrefix + id
}

func newTestEngine(t *testing.T, settings feed.Settings) (*Engine, *fakeDispatcher, *fakeSubmitter) {
	t.Helper()
	dispatcher := &fakeDispatcher{}
	submitter := &fakeSubmitter{}
	return New("test", dispatcher, submitter, settings), dispatcher, submitter
}

func loadPage(t *testing.T, e *Engine, d *fakeDispatcher, pageURL, markup string) {
	t.Helper()
	if err := e.LoadPage(pageURL, markup); err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	d.drain(t)
}

func postNode(t *testing.T, e *Engine, id string) *html.Node {
	t.Helper()
	nodes := feed.Select(e.doc, fmt.Sprintf(`[data-urn=%q]`, key(id)))
	if len(nodes) == 0 {
		t.Fatalf("Post %s not found", id)
	}
	return nodes[0]
}

func isOccluded(t *testing.T, e *Engine, id string) bool {
	t.Helper()
	return feed.HasClass(postNode(t, e, id), feed.OccludedClass)
}

func overlayLabel(t *testing.T, e *Engine, id string) string {
	t.Helper()
	return feed.NewOccluder().Label(postNode(t, e, id))
}

func TestLoadPageOccludesHiddenCategories(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "We are hiring a backend engineer, apply now"),
		legacyPost("2", "Rise and grind. No days off."),
		legacyPost("3", "Had a great lunch with my team today."),
	))

	if !e.Observing() {
		t.Fatal("Expected engine to observe the legacy container")
	}
	if isOccluded(t, e, "1") {
		t.Error("Expected hiring post to stay visible")
	}
	if !isOccluded(t, e, "2") {
		t.Error("Expected grindset post to be occluded")
	}
	if label := overlayLabel(t, e, "2"); label != "Grindset" {
		t.Errorf("Expected label 'Grindset', got '%s'", label)
	}
	if !isOccluded(t, e, "3") {
		t.Error("Expected uncategorized post to be occluded")
	}
	if label := overlayLabel(t, e, "3"); label != PendingLabel {
		t.Errorf("Expected label '%s', got '%s'", PendingLabel, label)
	}

	if len(s.requests) != 1 || s.requests[0].Key != key("3") {
		t.Fatalf("Expected one escalation for post 3, got %+v", s.requests)
	}
	if e.Stats().Classified != 3 {
		t.Errorf("Expected 3 classifications, got %d", e.Stats().Classified)
	}

	for _, post := range e.Snapshot() {
		want := post.Key != key("1")
		if post.Occluded != want {
			t.Errorf("Expected %s occluded=%v in state, got %v", post.Key, want, post.Occluded)
		}
	}
}

func TestRevealIsSticky(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Promoted\nStart your free trial of Acme CRM today"),
	))

	if !isOccluded(t, e, "1") {
		t.Fatal("Expected sponsored post to be occluded")
	}

	count, err := e.Reveal(key("1"))
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 revealed node, got %d", count)
	}
	if isOccluded(t, e, "1") {
		t.Fatal("Expected post to be visible after reveal")
	}

	settings := feed.HiddenSettings()
	settings.OpaqueOverlay = true
	e.ApplySettings(settings)
	if isOccluded(t, e, "1") {
		t.Error("Expected revealed post to stay visible after settings change")
	}

	err = e.Mutate([]Op{{Kind: OpAppend, Target: fmt.Sprintf(`[data-urn=%q]`, key("1")), HTML: "<span>seen again</span>"}})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	d.drain(t)
	if isOccluded(t, e, "1") {
		t.Error("Expected revealed post to stay visible after re-scan")
	}
	if e.state.occluded[key("1")] {
		t.Error("Expected revealed key to be absent from the occluded set")
	}
}

func TestRescanDoesNotReclassifyOrEscalateAgain(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
	))

	target := fmt.Sprintf(`[data-urn=%q]`, key("1"))
	for i := 0; i < 3; i++ {
		if err := e.Mutate([]Op{{Kind: OpAppend, Target: target, HTML: "<span>more</span>"}}); err != nil {
			t.Fatalf("Mutate failed: %v", err)
		}
		d.drain(t)
	}

	e.HandleEscalation(Result{Key: key("1"), Node: postNode(t, e, "1"), Label: "Team Lunch"})

	for i := 0; i < 3; i++ {
		if err := e.Mutate([]Op{{Kind: OpAppend, Target: target, HTML: "<span>more</span>"}}); err != nil {
			t.Fatalf("Mutate failed: %v", err)
		}
		d.drain(t)
	}

	if len(s.requests) != 1 {
		t.Errorf("Expected 1 escalation request, got %d", len(s.requests))
	}
	if e.Stats().Classified != 1 {
		t.Errorf("Expected 1 classification, got %d", e.Stats().Classified)
	}
	if label := overlayLabel(t, e, "1"); label != "Team Lunch" {
		t.Errorf("Expected label 'Team Lunch', got '%s'", label)
	}
}

func TestEscalationTruncatesTextButClassifiesFullText(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	long := strings.Repeat("q", 1500)
	tail := strings.Repeat("lorem ", 250) + "Rise and grind."
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", long),
		legacyPost("2", tail),
	))

	if len(s.requests) != 1 {
		t.Fatalf("Expected 1 escalation request, got %d", len(s.requests))
	}
	if n := utf8.RuneCountInString(s.requests[0].Text); n != llm.MaxTextRunes {
		t.Errorf("Expected %d runes sent to the backend, got %d", llm.MaxTextRunes, n)
	}
	if e.state.texts[key("1")] != long {
		t.Error("Expected full text to be kept for local classification")
	}
	if got := e.state.categories[key("2")]; got != feed.CategoryHustleCulture {
		t.Errorf("Expected phrase past the truncation point to classify as %s, got %s", feed.CategoryHustleCulture, got)
	}
}

func TestEscalationResultUpdatesLabel(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
		legacyPost("2", "Just thinking out loud."),
	))
	if len(s.requests) != 2 {
		t.Fatalf("Expected 2 escalation requests, got %d", len(s.requests))
	}

	occluder := feed.NewOccluder()
	if !occluder.Pending(postNode(t, e, "1")) {
		t.Error("Expected overlay to be pending while the request is in flight")
	}

	e.HandleEscalation(Result{Key: key("1"), Node: s.requests[0].Node, Label: "**Team Lunch**"})
	if label := overlayLabel(t, e, "1"); label != "Team Lunch" {
		t.Errorf("Expected label 'Team Lunch', got '%s'", label)
	}
	if occluder.Pending(postNode(t, e, "1")) {
		t.Error("Expected overlay to stop pending")
	}
	if !isOccluded(t, e, "1") {
		t.Error("Expected escalation to leave the post occluded")
	}

	e.HandleEscalation(Result{Key: key("2"), Node: s.requests[1].Node, Unavailable: true, Err: llm.ErrUnavailable})
	if label := overlayLabel(t, e, "2"); label != feed.FallbackLabel {
		t.Errorf("Expected fallback label, got '%s'", label)
	}
	if !isOccluded(t, e, "2") {
		t.Error("Expected unavailable backend to leave the post occluded")
	}
}

func TestStaleEscalationResultIsDiscarded(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
	))
	if len(s.requests) != 1 {
		t.Fatalf("Expected 1 escalation request, got %d", len(s.requests))
	}
	node := s.requests[0].Node

	err := e.Mutate([]Op{{
		Kind:   OpRecycle,
		Target: fmt.Sprintf(`[data-urn=%q]`, key("1")),
		HTML:   legacyPost("2", "Rise and grind. No days off."),
	}})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	d.drain(t)

	if e.state.KeyOf(node) != key("2") {
		t.Fatalf("Expected recycled node to be bound to %s, got %s", key("2"), e.state.KeyOf(node))
	}

	e.HandleEscalation(Result{Key: key("1"), Node: node, Label: "Team Lunch"})

	if label := feed.NewOccluder().Label(node); label != "Grindset" {
		t.Errorf("Expected recycled node to keep label 'Grindset', got '%s'", label)
	}
	if e.Stats().Discarded != 1 {
		t.Errorf("Expected 1 discarded result, got %d", e.Stats().Discarded)
	}
	if e.state.occluded[key("1")] {
		t.Error("Expected recycled key to leave the occluded set")
	}
}

func TestStaleEscalationResultLabelsReturningPost(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
	))
	node := s.requests[0].Node

	err := e.Mutate([]Op{{
		Kind:   OpRecycle,
		Target: fmt.Sprintf(`[data-urn=%q]`, key("1")),
		HTML:   legacyPost("2", "Rise and grind. No days off."),
	}})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	d.drain(t)

	e.HandleEscalation(Result{Key: key("1"), Node: node, Label: "Team Lunch"})

	err = e.Mutate([]Op{{
		Kind:   OpAppend,
		Target: `.scaffold-finite-scroll__content`,
		HTML:   legacyPost("1", "Had a great lunch with my team today."),
	}})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	d.drain(t)

	if !isOccluded(t, e, "1") {
		t.Fatal("Expected returning post to be occluded")
	}
	if label := overlayLabel(t, e, "1"); label != "Team Lunch" {
		t.Errorf("Expected returning post to show 'Team Lunch', got '%s'", label)
	}
	if feed.NewOccluder().Pending(postNode(t, e, "1")) {
		t.Error("Expected returning post not to wait on a label")
	}
	if len(s.requests) != 1 {
		t.Errorf("Expected no new escalation request, got %d requests", len(s.requests))
	}
}

func TestEscalationResultAfterRevealIsDiscarded(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
	))

	if _, err := e.Reveal(key("1")); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	e.HandleEscalation(Result{Key: key("1"), Node: s.requests[0].Node, Label: "Team Lunch"})

	if isOccluded(t, e, "1") {
		t.Error("Expected revealed post to stay visible")
	}
	if e.Stats().Discarded != 1 {
		t.Errorf("Expected 1 discarded result, got %d", e.Stats().Discarded)
	}
}

func TestEmptyPostIsOccludedAsUncategorized(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		`<div role="article" data-urn="urn:li:activity:9"><div class="feed-shared-update-v2__description"> </div></div>`,
	))

	if !isOccluded(t, e, "9") {
		t.Error("Expected post without text to be occluded")
	}
	if !e.state.processed[key("9")] {
		t.Error("Expected post without text to be marked processed")
	}
	if e.state.categories[key("9")] != feed.CategoryUncategorized {
		t.Errorf("Expected uncategorized, got %s", e.state.categories[key("9")])
	}
	if e.Stats().Skipped != 0 {
		t.Errorf("Expected no skipped post, got %d", e.Stats().Skipped)
	}
	if len(s.requests) != 1 || s.requests[0].Text != "" {
		t.Errorf("Expected one escalation with empty text, got %+v", s.requests)
	}
}

func TestEmptyPostShownWhenOtherIsShown(t *testing.T) {
	settings := feed.DefaultSettings()
	settings.Show[feed.CategoryUncategorized] = true
	e, d, s := newTestEngine(t, settings)
	loadPage(t, e, d, feedURL, legacyPage(
		`<div role="article" data-urn="urn:li:activity:9"><div class="feed-shared-update-v2__description"> </div></div>`,
	))

	if isOccluded(t, e, "9") {
		t.Error("Expected post without text to follow the Other toggle")
	}
	if len(s.requests) != 0 {
		t.Errorf("Expected no escalation, got %d", len(s.requests))
	}
}

func TestApplySettingsReconcilesFromCache(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "We are hiring a backend engineer, apply now"),
		legacyPost("2", "Rise and grind. No days off."),
	))

	settings := feed.DefaultSettings()
	settings.Show[feed.CategoryRecruiterHiring] = false
	settings.Show[feed.CategoryHustleCulture] = true
	settings.OpaqueOverlay = true
	e.ApplySettings(settings)

	if !isOccluded(t, e, "1") {
		t.Error("Expected hiring post to be occluded")
	}
	if label := overlayLabel(t, e, "1"); label != "Hiring" {
		t.Errorf("Expected label 'Hiring', got '%s'", label)
	}
	overlays := feed.Select(postNode(t, e, "1"), "."+feed.OpaqueOverlayClass)
	if len(overlays) != 1 {
		t.Errorf("Expected opaque overlay, got %d", len(overlays))
	}
	if isOccluded(t, e, "2") {
		t.Error("Expected grindset post to be visible")
	}
	if e.Stats().Classified != 2 {
		t.Errorf("Expected classifications to stay at 2, got %d", e.Stats().Classified)
	}
	if len(s.requests) != 0 {
		t.Errorf("Expected no escalation, got %d", len(s.requests))
	}

	disabled := settings.Clone()
	disabled.ExtensionEnabled = false
	e.ApplySettings(disabled)
	if isOccluded(t, e, "1") || isOccluded(t, e, "2") {
		t.Error("Expected nothing occluded with the extension disabled")
	}
}

func TestApplySettingsEscalatesOnlyOnce(t *testing.T) {
	settings := feed.DefaultSettings()
	settings.Show[feed.CategoryUncategorized] = true
	e, d, s := newTestEngine(t, settings)
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Had a great lunch with my team today."),
	))

	if isOccluded(t, e, "1") || len(s.requests) != 0 {
		t.Fatal("Expected shown uncategorized post not to be escalated")
	}

	hidden := settings.Clone()
	hidden.Show[feed.CategoryUncategorized] = false
	e.ApplySettings(hidden)
	e.HandleEscalation(Result{Key: key("1"), Node: postNode(t, e, "1"), Label: "Lunch"})
	e.ApplySettings(settings)
	e.ApplySettings(hidden)

	if len(s.requests) != 1 {
		t.Errorf("Expected 1 escalation request, got %d", len(s.requests))
	}
	if label := overlayLabel(t, e, "1"); label != "Lunch" {
		t.Errorf("Expected cached label 'Lunch', got '%s'", label)
	}
}

func TestExperimentalCategoriesAreGated(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Remote work is the future. Agree?"),
	))

	if len(s.requests) != 1 {
		t.Fatalf("Expected gated post to be escalated as uncategorized, got %d requests", len(s.requests))
	}

	settings := feed.DefaultSettings()
	settings.ExperimentalFilters = true
	e.ApplySettings(settings)

	if label := overlayLabel(t, e, "1"); label != "Engagement Bait" {
		t.Errorf("Expected label 'Engagement Bait', got '%s'", label)
	}

	settings.Show[feed.CategoryEngagementBait] = true
	e.ApplySettings(settings)
	if isOccluded(t, e, "1") {
		t.Error("Expected shown experimental category to be visible")
	}
}

func TestNavigateReloadsOnFirstFeedEntry(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, networkURL, legacyPage())

	if action := e.Navigate(feedURL); action != ActionReload {
		t.Fatalf("Expected %s on first feed entry, got %s", ActionReload, action)
	}
	loadPage(t, e, d, feedURL, legacyPage())

	if action := e.Navigate(networkURL); action != ActionRebuild {
		t.Errorf("Expected %s leaving the feed, got %s", ActionRebuild, action)
	}
	if action := e.Navigate(feedURL); action != ActionRebuild {
		t.Errorf("Expected %s on second feed entry, got %s", ActionRebuild, action)
	}
	if action := e.Navigate(feedURL + "?sort=recent"); action != ActionRebuild {
		t.Errorf("Expected %s inside the feed, got %s", ActionRebuild, action)
	}
}

func TestNavigateRebuildPreservesReveals(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage(
		legacyPost("1", "Rise and grind. No days off."),
		legacyPost("2", "Had a great lunch with my team today."),
		legacyPost("3", "Book a call with me to 10x your revenue"),
	))
	if _, err := e.Reveal(key("1")); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}

	if action := e.Navigate(feedURL + "?sort=recent"); action != ActionRebuild {
		t.Fatalf("Expected %s, got %s", ActionRebuild, action)
	}
	if e.state.processed[key("3")] || e.state.occluded[key("3")] {
		t.Error("Expected rebuild to clear processed and occluded state")
	}
	d.drain(t)

	if isOccluded(t, e, "1") {
		t.Error("Expected revealed post to stay visible after rebuild")
	}
	if !isOccluded(t, e, "3") {
		t.Error("Expected sales pitch to be occluded again after rebuild")
	}
	if len(s.requests) != 1 {
		t.Errorf("Expected no second escalation after rebuild, got %d requests", len(s.requests))
	}
	if e.Stats().Classified != 5 {
		t.Errorf("Expected revealed post to skip classification on rebuild, got %d classifications", e.Stats().Classified)
	}
}

func TestLoadPageResetsReveals(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	page := legacyPage(legacyPost("1", "Rise and grind. No days off."))
	loadPage(t, e, d, feedURL, page)
	if _, err := e.Reveal(key("1")); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}

	loadPage(t, e, d, feedURL, page)
	if !isOccluded(t, e, "1") {
		t.Error("Expected a new page load to discard reveals")
	}
}

func TestLocateContainerRetriesUntilFound(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	if err := e.LoadPage(feedURL, `<html><body></body></html>`); err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if len(d.immediate) != 1 {
		t.Fatalf("Expected container lookup to be queued, got %d tasks", len(d.immediate))
	}
	task, ok := d.immediate[0].(*LocateContainerTask)
	if !ok {
		t.Fatalf("Expected *LocateContainerTask, got %T", d.immediate[0])
	}
	d.immediate = nil

	if err := task.Execute(context.Background()); !errors.Is(err, ErrContainerNotFound) {
		t.Fatalf("Expected ErrContainerNotFound, got %v", err)
	}
	if task.GetMaxRetries() != ContainerMaxRetries {
		t.Errorf("Expected %d retries, got %d", ContainerMaxRetries, task.GetMaxRetries())
	}
	task.IncrementRetryCount()
	if delay := task.RetryDelay(); delay != ContainerRetryBase {
		t.Errorf("Expected first retry after %v, got %v", ContainerRetryBase, delay)
	}

	markup := `<div class="scaffold-finite-scroll__content" data-finite-scroll-hotkey-context="FEED">` +
		legacyPost("1", "Rise and grind. No days off.") + `</div>`
	if err := e.Mutate([]Op{{Kind: OpAppend, Target: "body", HTML: markup}}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if e.Observing() {
		t.Fatal("Expected no observation before the container is located")
	}

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected container to be found, got %v", err)
	}
	if !isOccluded(t, e, "1") {
		t.Error("Expected existing post to be processed once the container is found")
	}
}

func TestStaleLocateTaskIsIgnored(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	if err := e.LoadPage(feedURL, `<html><body></body></html>`); err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	stale := d.immediate[0]
	d.immediate = nil

	loadPage(t, e, d, feedURL, legacyPage())
	if err := stale.Execute(context.Background()); err != nil {
		t.Errorf("Expected stale lookup to give up quietly, got %v", err)
	}
}

func TestMutateSchedulesIdleScan(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, legacyPage())

	container := `.scaffold-finite-scroll__content`
	err := e.Mutate([]Op{
		{Kind: OpAppend, Target: container, HTML: legacyPost("1", "Rise and grind. No days off.")},
		{Kind: OpAppend, Target: container, HTML: legacyPost("2", "Book a call with me to 10x your revenue")},
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if err := e.Mutate([]Op{{Kind: OpAppend, Target: container, HTML: `<div data-id="urn:li:aggregate:7">more</div>`}}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if len(d.idle) != 1 {
		t.Fatalf("Expected one coalesced idle scan, got %d", len(d.idle))
	}
	if len(e.scanQueue) != 2 {
		t.Errorf("Expected 2 candidates, got %d", len(e.scanQueue))
	}
	if isOccluded(t, e, "1") {
		t.Error("Expected processing to wait for the idle scan")
	}

	d.drain(t)
	if !isOccluded(t, e, "1") || !isOccluded(t, e, "2") {
		t.Error("Expected both posts occluded after the scan")
	}
}

func TestMutateReportsBadOps(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	if err := e.Mutate(nil); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Expected ErrNoDocument, got %v", err)
	}

	loadPage(t, e, d, feedURL, legacyPage(legacyPost("1", "Rise and grind.")))
	err := e.Mutate([]Op{
		{Kind: OpAppend, Target: "#missing", HTML: "<p>x</p>"},
		{Kind: "explode", Target: "body"},
		{Kind: OpRemove, Target: fmt.Sprintf(`[data-urn=%q]`, key("1"))},
	})
	if err == nil {
		t.Fatal("Expected an error for bad ops")
	}
	if len(feed.Select(e.doc, `[role="article"]`)) != 0 {
		t.Error("Expected valid remove op to apply despite other failures")
	}
	if e.state.occluded[key("1")] {
		t.Error("Expected removed post to leave the occluded set")
	}
}

func TestImportAndExport(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	items := []feed.Item{
		{GUID: "a", URN: key("100"), Title: "We are hiring a Go engineer, apply now", Link: "https://example.com/jobs/1"},
		{GUID: "b", URN: key("200"), Title: "Rise and grind. No days off."},
	}

	count, err := e.Import(items)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 imported posts, got %d", count)
	}
	d.drain(t)

	if count, err := e.Import(items); err != nil || count != 0 {
		t.Errorf("Expected re-import to add nothing, got %d (%v)", count, err)
	}
	d.drain(t)

	posts := e.ExportPosts()
	if len(posts) != 1 {
		t.Fatalf("Expected 1 visible post, got %d", len(posts))
	}
	if posts[0].Key != key("100") {
		t.Errorf("Expected key %s, got %s", key("100"), posts[0].Key)
	}
	if posts[0].Link != "https://example.com/jobs/1" {
		t.Errorf("Expected item link, got %s", posts[0].Link)
	}
	if posts[0].Category != feed.CategoryRecruiterHiring {
		t.Errorf("Expected %s, got %s", feed.CategoryRecruiterHiring, posts[0].Category)
	}
}

func TestDocumentRendersOverlays(t *testing.T) {
	e, d, _ := newTestEngine(t, feed.DefaultSettings())
	if _, err := e.Document(); !errors.Is(err, ErrNoDocument) {
		t.Errorf("Expected ErrNoDocument, got %v", err)
	}

	loadPage(t, e, d, feedURL, legacyPage(legacyPost("1", "Rise and grind. No days off.")))
	doc, err := e.Document()
	if err != nil {
		t.Fatalf("Document failed: %v", err)
	}
	if !strings.Contains(doc, feed.OverlayClass) || !strings.Contains(doc, "Grindset") {
		t.Errorf("Expected rendered overlay in document, got %s", doc)
	}
}

func TestIsFeedPath(t *testing.T) {
	tests := []struct {
		url      string
		expected bool
	}{
		{"https://www.linkedin.com/feed", true},
		{"https://www.linkedin.com/feed/", true},
		{"https://www.linkedin.com/feed/update/urn:li:activity:1/", true},
		{"/feed/?sort=recent", true},
		{"https://www.linkedin.com/feedback", false},
		{"https://www.linkedin.com/mynetwork/", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := isFeedPath(tt.url); got != tt.expected {
			t.Errorf("isFeedPath(%q) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestNestedAlternatePostIsOccludedOnce(t *testing.T) {
	e, d, s := newTestEngine(t, feed.DefaultSettings())
	loadPage(t, e, d, feedURL, `<!DOCTYPE html><html><body><main role="main">`+
		`<div data-view-name="feed-full-update"><span>Someone</span><article role="article"><p>Had a great lunch today.</p></article></div>`+
		`</main></body></html>`)

	if overlays := feed.Select(e.doc, "."+feed.OverlayClass); len(overlays) != 1 {
		t.Fatalf("Expected 1 overlay, got %d", len(overlays))
	}
	snapshot := e.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Expected 1 identity key, got %+v", snapshot)
	}
	if len(s.requests) != 1 {
		t.Errorf("Expected 1 escalation, got %d", len(s.requests))
	}

	if _, err := e.Reveal(snapshot[0].Key); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if marked := feed.Select(e.doc, "."+feed.OccludedClass); len(marked) != 0 {
		t.Errorf("Expected nothing occluded after reveal, got %d", len(marked))
	}
}
