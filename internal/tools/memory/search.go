// Package memory exposes the semantic Memory Manager (internal/memory) as
// Tool Gateway tools, so model turns can store and recall prior context the
// same way they read and write files.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/labels"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/pkg/models"
)

// SearchTool runs a semantic memory query through memory.Manager. Every
// call is scoped to a fixed user, set once at construction by the caller
// (cmd/meao threads the channel/session identity in) rather than trusted
// from the model's own parameters — a model-controlled user_id would let one
// tenant's turn read another tenant's memories just by naming their id, the
// exact cross-tenant leak I6 exists to prevent.
type SearchTool struct {
	manager *memory.Manager
	userID  string
}

// NewSearchTool builds a memory_search tool bound to userID for the
// lifetime of the session it is registered against.
func NewSearchTool(m *memory.Manager, userID string) *SearchTool {
	return &SearchTool{manager: m, userID: userID}
}

// SetUserID rebinds the tool to a new user scope. The Tool Gateway registers
// one long-lived tool instance; the host (cmd/meao) calls this once per
// inbound turn with the identity of whoever is actually speaking (the local
// operator, or a channel's own per-sender id), the same way it threads
// sessionID into guardedTool.
func (t *SearchTool) SetUserID(userID string) { t.userID = userID }

func (t *SearchTool) Name() string { return "memory_search" }

func (t *SearchTool) Description() string {
	return "Search prior conversation memory for content semantically related to a query."
}

// DeclaredLabel implements agent.DeclaredLabeler (§4.2 step 6d): recalled
// memories are the user's own prior turns, not external content, so they
// carry the same trust as a verified workspace read.
func (t *SearchTool) DeclaredLabel() (labels.TrustLevel, labels.DataClass) {
	return labels.TrustVerified, labels.ClassInternal
}

func (t *SearchTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Natural language text to search for in memory.",
			},
			"scope": map[string]interface{}{
				"type":        "string",
				"description": "Memory granularity to search: session, channel, agent, or global.",
				"enum":        []string{"session", "channel", "agent", "global"},
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return.",
				"minimum":     1,
			},
		},
		"required": []string{"query"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Query string `json:"query"`
		Scope string `json:"scope"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Query) == "" {
		return toolError("query is required"), nil
	}
	if t.userID == "" {
		// Defense in depth: memory.Manager.Search rejects this too, but
		// failing here avoids an embedding call for a request that can
		// never succeed (I6).
		return toolError("memory search requires a non-empty user scope"), nil
	}

	resp, err := t.manager.Search(ctx, &models.SearchRequest{
		Query:  input.Query,
		UserID: t.userID,
		Scope:  models.MemoryScope(input.Scope),
		Limit:  input.Limit,
	})
	if err != nil {
		return toolError(fmt.Sprintf("memory search failed: %v", err)), nil
	}

	payload, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return toolError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// IndexTool stores a piece of conversation content as a future memory
// candidate, scoped to the same fixed user as SearchTool.
type IndexTool struct {
	manager *memory.Manager
	userID  string
}

// NewIndexTool builds a memory_remember tool bound to userID.
func NewIndexTool(m *memory.Manager, userID string) *IndexTool {
	return &IndexTool{manager: m, userID: userID}
}

// SetUserID rebinds the tool to a new user scope; see SearchTool.SetUserID.
func (t *IndexTool) SetUserID(userID string) { t.userID = userID }

func (t *IndexTool) Name() string { return "memory_remember" }

func (t *IndexTool) Description() string {
	return "Save a fact or piece of context to long-term memory for later semantic recall."
}

func (t *IndexTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "The text to remember.",
			},
		},
		"required": []string{"content"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *IndexTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Content) == "" {
		return toolError("content is required"), nil
	}
	if t.userID == "" {
		return toolError("memory indexing requires a non-empty user scope"), nil
	}

	now := time.Now()
	entry := &models.MemoryEntry{
		ID:        uuid.NewString(),
		UserID:    t.userID,
		Content:   input.Content,
		Metadata:  models.MemoryMetadata{Source: "message", Role: "assistant"},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.manager.Index(ctx, []*models.MemoryEntry{entry}); err != nil {
		return toolError(fmt.Sprintf("memory index failed: %v", err)), nil
	}
	return &agent.ToolResult{Content: fmt.Sprintf(`{"id":%q,"stored":true}`, entry.ID)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return &agent.ToolResult{Content: message, IsError: true}
	}
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
