package main

import (
	"testing"

	"github.com/haasonsaas/nexus/pkg/models"
)

func TestChannelUserID_PrefersSlackUserID(t *testing.T) {
	msg := &models.Message{
		Channel:   models.ChannelSlack,
		ChannelID: "C123:1234.5678",
		Metadata:  map[string]any{"slack_user_id": "U999"},
	}
	if got, want := channelUserID(msg), "slack:U999"; got != want {
		t.Errorf("channelUserID() = %q, want %q", got, want)
	}
}

func TestChannelUserID_FallsBackToChannelID(t *testing.T) {
	msg := &models.Message{
		Channel:   models.ChannelSlack,
		ChannelID: "C123:1234.5678",
	}
	if got, want := channelUserID(msg), "slack:C123:1234.5678"; got != want {
		t.Errorf("channelUserID() = %q, want %q", got, want)
	}
}

func TestBuildMemoryManager_UnconfiguredReturnsNil(t *testing.T) {
	t.Setenv("MEAO_MEMORY_DB", "")
	t.Setenv("OPENAI_API_KEY", "")

	mgr, err := buildMemoryManager(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr != nil {
		t.Fatal("expected nil manager when memory env vars are unset")
	}
}

func TestRegisterMemoryTools_NilManagerReturnsNoTools(t *testing.T) {
	tools := registerMemoryTools(nil, nil)
	if tools != nil {
		t.Fatalf("expected no tools for nil manager, got %d", len(tools))
	}
}
