package chat

import "testing"

func TestPrepareForModelFiltersSentinel(t *testing.T) {
	history, hadSentinel := PrepareForModel([]Incoming{
		{Role: RoleUser, Content: Sentinel},
		{Role: RoleAssistant, Content: "Merhaba. Seni dinliyorum."},
		{Role: RoleUser, Content: "Bugün çok yorgunum."},
	})

	if !hadSentinel {
		t.Fatal("expected sentinel to be detected")
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
	for _, msg := range history {
		if IsSentinel(msg.Text) {
			t.Fatalf("sentinel leaked into history: %+v", msg)
		}
	}
}

func TestPrepareForModelReinjectsSentinelWhenEmpty(t *testing.T) {
	history, hadSentinel := PrepareForModel([]Incoming{
		{Role: RoleUser, Content: Sentinel},
	})

	if !hadSentinel {
		t.Fatal("expected sentinel to be detected")
	}
	if len(history) != 1 {
		t.Fatalf("expected rebuilt list of length 1, got %d", len(history))
	}
	if history[0].Role != RoleUser || history[0].Text != Sentinel {
		t.Fatalf("unexpected rebuilt message: %+v", history[0])
	}
}

func TestPrepareForModelSentinelInParts(t *testing.T) {
	history, hadSentinel := PrepareForModel([]Incoming{
		{Role: RoleUser, Parts: []Part{{Text: "START_"}, {Text: "SESSION"}}},
	})

	if !hadSentinel {
		t.Fatal("expected sentinel assembled from parts to be detected")
	}
	if len(history) != 1 || history[0].Text != Sentinel {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestPrepareForModelDropsBlankMessages(t *testing.T) {
	history, hadSentinel := PrepareForModel([]Incoming{
		{Role: RoleUser, Content: "   "},
		{Role: RoleUser, Content: ""},
		{Role: RoleUser, Content: "gerçek mesaj"},
	})

	if hadSentinel {
		t.Fatal("no sentinel was sent")
	}
	if len(history) != 1 || history[0].Text != "gerçek mesaj" {
		t.Fatalf("unexpected history: %+v", history)
	}
}

func TestPrepareForModelAllBlankNoSentinel(t *testing.T) {
	history, hadSentinel := PrepareForModel([]Incoming{
		{Role: RoleUser, Content: " "},
	})

	if hadSentinel {
		t.Fatal("no sentinel was sent")
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}
