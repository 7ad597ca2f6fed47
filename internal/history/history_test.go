package history

import (
	"fmt"
	"testing"
)

func TestHistoryAppendGetReset(t *testing.T) {
	h := NewManager(0)
	chatA := int64(1)
	chatB := int64(2)

	h.Append(chatA, Exchange{Utterance: "hello", Response: "Hello! How can I assist you today?"})
	h.Append(chatA, Exchange{Utterance: "how many students", Response: "There are 0 students in the database."})
	h.Append(chatB, Exchange{Utterance: "help", Response: "..."})

	exA := h.Get(chatA)
	if len(exA) != 2 || h.Len(chatB) != 1 {
		t.Fatalf("unexpected lengths: A=%d B=%d", len(exA), h.Len(chatB))
	}
	if exA[0].Utterance != "hello" || exA[1].Utterance != "how many students" {
		t.Fatalf("unexpected order: %+v", exA)
	}
	if exA[0].At.IsZero() {
		t.Fatalf("timestamp not assigned")
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	exA[0].Utterance = "mutated"
	if h.Get(chatA)[0].Utterance != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}

	h.Reset(chatA)
	if h.Len(chatA) != 0 {
		t.Fatalf("reset did not clear chat A")
	}
	if h.Len(chatB) != 1 {
		t.Fatalf("reset should not affect other chats")
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewManager(3)
	for i := 0; i < 5; i++ {
		h.Append(7, Exchange{Utterance: fmt.Sprint(i)})
	}
	got := h.Get(7)
	if len(got) != 3 || got[0].Utterance != "2" || got[2].Utterance != "4" {
		t.Fatalf("unexpected window: %+v", got)
	}
}
