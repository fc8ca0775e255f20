package domain

import (
	"fmt"
	"testing"
	"time"
)

func TestConversation_AppendDoesNotMutate(t *testing.T) {
	conv := NewConversation("sess-1", "doc-1", 0)
	now := time.Now()

	next := conv.Append("What is the title?", "Annual report", now)

	if conv.Len() != 0 {
		t.Errorf("expected original conversation to stay empty, got %d turns", conv.Len())
	}
	if next.Len() != 1 {
		t.Fatalf("expected 1 turn, got %d", next.Len())
	}
	if next.Turns[0].Question != "What is the title?" || next.Turns[0].Answer != "Annual report" {
		t.Errorf("unexpected turn: %+v", next.Turns[0])
	}
	if next.SessionID != "sess-1" || next.DocumentID != "doc-1" {
		t.Errorf("expected identity to carry over, got %s/%s", next.SessionID, next.DocumentID)
	}
}

func TestConversation_AppendSharedPrefix(t *testing.T) {
	base := NewConversation("s", "d", 0).Append("q1", "a1", time.Now())

	a := base.Append("q2", "a2", time.Now())
	b := base.Append("q3", "a3", time.Now())

	if a.Turns[1].Question != "q2" {
		t.Errorf("expected q2, got %s", a.Turns[1].Question)
	}
	if b.Turns[1].Question != "q3" {
		t.Errorf("expected q3, got %s", b.Turns[1].Question)
	}
	if base.Len() != 1 {
		t.Errorf("expected base to keep 1 turn, got %d", base.Len())
	}
}

func TestConversation_MaxTurns(t *testing.T) {
	conv := NewConversation("s", "d", 3)
	for i := 0; i < 5; i++ {
		conv = conv.Append(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i), time.Now())
	}

	if conv.Len() != 3 {
		t.Fatalf("expected 3 turns, got %d", conv.Len())
	}
	for i, turn := range conv.Turns {
		want := fmt.Sprintf("q%d", i+2)
		if turn.Question != want {
			t.Errorf("turn %d: expected %s, got %s", i, want, turn.Question)
		}
	}
}

func TestConversation_HistoryIsCopy(t *testing.T) {
	conv := NewConversation("s", "d", 0).Append("q", "a", time.Now())

	history := conv.History()
	history[0].Question = "changed"

	if conv.Turns[0].Question != "q" {
		t.Error("expected History to return a copy")
	}
}
