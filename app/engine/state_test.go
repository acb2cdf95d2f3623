package engine

import (
	"testing"

	"github.com/OmarCodes2/Slop-Block/app/feed"
	"golang.org/x/net/html"
)

func fillState() (*State, *html.Node) {
	s := NewState()
	node := &html.Node{Type: html.ElementNode, Data: "div"}
	s.Bind(node, "k")
	s.processed["k"] = true
	s.occluded["k"] = true
	s.pending["k"] = node
	s.categories["k"] = feed.CategoryUncategorized
	s.texts["k"] = "text"
	s.labels["k"] = "Lunch"
	s.escalated["k"] = true
	s.revealed["r"] = true
	return s, node
}

func TestStateResetPreservingReveals(t *testing.T) {
	s, node := fillState()
	s.Reset(true)

	if s.processed["k"] || s.occluded["k"] || s.pending["k"] != nil || s.KeyOf(node) != "" {
		t.Error("Expected per-page state to be cleared")
	}
	if len(s.categories) != 0 || len(s.texts) != 0 {
		t.Error("Expected cached categories and texts to be cleared")
	}
	if !s.revealed["r"] {
		t.Error("Expected reveals to survive")
	}
	if !s.escalated["k"] || s.labels["k"] != "Lunch" {
		t.Error("Expected escalation history and labels to survive")
	}
}

func TestStateResetAll(t *testing.T) {
	s, _ := fillState()
	s.Reset(false)

	if s.revealed["r"] || s.escalated["k"] || s.labels["k"] != "" {
		t.Error("Expected a full reset to clear reveals, labels and escalation history")
	}
	if len(s.Snapshot()) != 0 {
		t.Errorf("Expected empty snapshot, got %+v", s.Snapshot())
	}
}

func TestStateBindings(t *testing.T) {
	s := NewState()
	a := &html.Node{Type: html.ElementNode, Data: "div"}
	b := &html.Node{Type: html.ElementNode, Data: "div"}

	if previous := s.Bind(a, "k1"); previous != "" {
		t.Errorf("Expected no previous binding, got %s", previous)
	}
	s.Bind(b, "k1")
	if len(s.Nodes("k1")) != 2 {
		t.Errorf("Expected 2 nodes for k1, got %d", len(s.Nodes("k1")))
	}
	if previous := s.Bind(b, "k2"); previous != "k1" {
		t.Errorf("Expected previous binding k1, got %s", previous)
	}
	if len(s.Nodes("k2")) != 1 {
		t.Errorf("Expected 1 node for k2, got %d", len(s.Nodes("k2")))
	}
	if key := s.Unbind(a); key != "k1" {
		t.Errorf("Expected k1, got %s", key)
	}
	if s.KeyOf(a) != "" {
		t.Error("Expected a to be unbound")
	}

	snapshot := s.Snapshot()
	if len(snapshot) != 1 || snapshot[0].Key != "k2" || snapshot[0].Nodes != 1 {
		t.Errorf("Unexpected snapshot %+v", snapshot)
	}
}
