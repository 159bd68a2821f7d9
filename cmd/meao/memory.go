package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/memory"
	memorytool "github.com/haasonsaas/nexus/internal/tools/memory"
)

// memoryUserScoped is implemented by every tool whose calls are bound to a
// per-turn user identity (I6). setMemoryUserID rebinds all of them together,
// the same way setSessionID rebinds every guardedTool.
type memoryUserScoped interface {
	SetUserID(userID string)
}

// buildMemoryManager constructs the semantic Memory Manager from environment
// configuration, or returns (nil, nil) when memory is not configured — the
// feature degrades to absent rather than half-wired. It is gated on its own
// OPENAI_API_KEY-backed embedder rather than reusing ANTHROPIC_API_KEY,
// because embeddings and chat completions are two distinct provider
// relationships the teacher's config.go already keeps separate
// (Config.VectorMemory.Embeddings vs. the model provider config).
func buildMemoryManager(workDir string) (*memory.Manager, error) {
	dbPath := os.Getenv("MEAO_MEMORY_DB")
	apiKey := os.Getenv("OPENAI_API_KEY")
	if dbPath == "" || apiKey == "" {
		return nil, nil
	}
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workDir, dbPath)
	}

	cfg := &memory.Config{
		Enabled:   true,
		Backend:   "sqlite-vec",
		Dimension: 1536,
		SQLiteVec: memory.SQLiteVecConfig{Path: dbPath},
		Embeddings: memory.EmbeddingsConfig{
			Provider: "openai",
			APIKey:   apiKey,
		},
	}
	manager, err := memory.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("init memory manager: %w", err)
	}
	return manager, nil
}

// registerMemoryTools wires memory_search and memory_remember into the Tool
// Gateway when a Memory Manager is configured, returning the tools so the
// caller can rebind their user scope per turn. Both read and write go
// through the Manager's I6 enforcement (empty UserID is rejected), so they
// are registered ungated like read: there is no separate side-effect risk
// here beyond what the Manager itself already refuses.
func registerMemoryTools(runtime *agent.Runtime, manager *memory.Manager) []memoryUserScoped {
	if manager == nil {
		return nil
	}
	search := memorytool.NewSearchTool(manager, "")
	remember := memorytool.NewIndexTool(manager, "")
	runtime.RegisterTool(search)
	runtime.RegisterTool(remember)
	return []memoryUserScoped{search, remember}
}

// setMemoryUserID rebinds every registered memory tool to userID ahead of
// the turn it is about to serve.
func setMemoryUserID(tools []memoryUserScoped, userID string) {
	for _, t := range tools {
		t.SetUserID(userID)
	}
}

// localOperatorID identifies the human running the interactive CLI for
// memory scoping purposes: there is exactly one operator per terminal
// session, unlike a channel's many distinct senders, so the OS login name
// stands in for a user id.
func localOperatorID() string {
	if u := os.Getenv("USER"); u != "" {
		return "local:" + u
	}
	return "local:operator"
}
