package core

import "testing"

func TestConversation_AppendAndCopy(t *testing.T) {
	c := NewConversation("c1")
	c.AppendTurns(NewUserTurn("hi"), NewAssistantTurn("hello"))

	turns := c.GetTurns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Errorf("turn order not preserved: %+v", turns)
	}

	turns[0].Content = "changed"
	if c.GetTurns()[0].Content != "hi" {
		t.Error("turns slice should be copied on read")
	}
}

func TestConversation_Clone(t *testing.T) {
	c := NewConversation("c2")
	c.AppendTurns(NewUserTurn("hi"))

	clone := c.Clone()
	if clone == c {
		t.Error("Clone should be a different pointer")
	}
	clone.AppendTurns(NewAssistantTurn("hello"))
	if c.Len() != 1 {
		t.Error("original should not see clone's appended turn")
	}
}
