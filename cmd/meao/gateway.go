package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/approvals"
	"github.com/haasonsaas/nexus/pkg/models"
)

// guardedTool wraps a Tool with the interactive half of the Tool Gateway
// (§4.2): canonical approval resolution against the Approval Manager, with
// a terminal prompt when no standing grant covers the call. Sandbox
// dispatch, network egress and output redaction are handled inside the
// wrapped tool and the ToolResultGuard the runtime applies afterward; this
// wrapper only owns the approval step.
type guardedTool struct {
	agent.Tool
	checker   *agent.ApprovalChecker
	sessionID string
	action    string
	target    func(params json.RawMessage) string
	in        *bufio.Reader
}

func (g *guardedTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	target := g.target(params)
	toolCall := models.ToolCall{Name: g.Tool.Name(), Input: params}

	decision, reason, approvalID, err := g.checker.CheckTarget(ctx, "meao", g.sessionID, toolCall, g.action, target)
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("approval error: %v", err), IsError: true}, nil
	}

	switch decision {
	case agent.ApprovalDenied:
		return &agent.ToolResult{Content: fmt.Sprintf("denied: %s", reason), IsError: true}, nil
	case agent.ApprovalPending:
		scope, granted := g.prompt(approvalID, reason)
		if !granted {
			return &agent.ToolResult{Content: "denied by user", IsError: true}, nil
		}
		if err := g.checker.RememberGrant(g.sessionID, approvalID, scope); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("approval error: %v", err), IsError: true}, nil
		}
	}

	return g.Tool.Execute(ctx, params)
}

// prompt implements the synchronous CLI half of the approval_request /
// approval_response channel contract (§6): it blocks on stdin rather than
// emitting a typed channel event, since the interactive CLI is its own
// channel implementation.
func (g *guardedTool) prompt(approvalID, reason string) (approvals.Scope, bool) {
	fmt.Printf("\napproval requested: %s\n", approvalID)
	if reason != "" {
		fmt.Printf("  reason: %s\n", reason)
	}
	fmt.Print("allow this call? [y]es/[n]o/[s]ession/[a]lways: ")
	answer := readAnswerKey(g.in)
	fmt.Println(answer)
	switch answer {
	case "y", "yes":
		return approvals.ScopeOnce, true
	case "s", "session":
		return approvals.ScopeSession, true
	case "a", "always":
		return approvals.ScopeAlways, true
	default:
		return approvals.ScopeOnce, false
	}
}

// readAnswerKey reads the approval answer as a single, unechoed keypress
// when stdin is an interactive terminal (raw mode via golang.org/x/term),
// so an approval decision never lands in shell history or a terminal
// scrollback buffer the way a typed line would. When stdin isn't a
// terminal — piped input, tests, the demo harness — it falls back to a
// normal line read from the shared reader.
func readAnswerKey(in *bufio.Reader) string {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, _ := in.ReadString('\n')
		return strings.ToLower(strings.TrimSpace(line))
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		line, _ := in.ReadString('\n')
		return strings.ToLower(strings.TrimSpace(line))
	}
	defer term.Restore(fd, oldState)

	b, err := in.ReadByte()
	if err != nil {
		return ""
	}
	return strings.ToLower(string(b))
}

var stdinReader = bufio.NewReader(os.Stdin)

// jsonStringField reads a single string field out of raw tool-call params,
// used to extract the normalization target (a path, a URL, a command) for
// the Approval Manager without each tool needing to know about approvals.
func jsonStringField(params json.RawMessage, keys ...string) string {
	var raw map[string]any
	if err := json.Unmarshal(params, &raw); err != nil {
		return ""
	}
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
