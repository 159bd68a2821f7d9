package memory

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSearchTool_RejectsEmptyQuery(t *testing.T) {
	tool := NewSearchTool(nil, "user-a")

	params, _ := json.Marshal(map[string]interface{}{"query": "   "})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for empty query")
	}
}

func TestSearchTool_RejectsEmptyUserScope(t *testing.T) {
	tool := NewSearchTool(nil, "")

	params, _ := json.Marshal(map[string]interface{}{"query": "what did we discuss"})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when no user scope is bound")
	}
	if !strings.Contains(result.Content, "user scope") {
		t.Errorf("expected error to mention user scope, got %q", result.Content)
	}
}

func TestSearchTool_SetUserIDRebinds(t *testing.T) {
	tool := NewSearchTool(nil, "")
	tool.SetUserID("user-b")

	if tool.userID != "user-b" {
		t.Errorf("userID = %q, want %q", tool.userID, "user-b")
	}
}

func TestIndexTool_RejectsEmptyContent(t *testing.T) {
	tool := NewIndexTool(nil, "user-a")

	params, _ := json.Marshal(map[string]interface{}{"content": ""})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for empty content")
	}
}

func TestIndexTool_RejectsEmptyUserScope(t *testing.T) {
	tool := NewIndexTool(nil, "")

	params, _ := json.Marshal(map[string]interface{}{"content": "remember this"})
	result, err := tool.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result when no user scope is bound")
	}
}

func TestSearchTool_Schema(t *testing.T) {
	tool := NewSearchTool(nil, "user-a")
	if tool.Name() != "memory_search" {
		t.Errorf("Name() = %q, want memory_search", tool.Name())
	}
	var schema map[string]interface{}
	if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
}
