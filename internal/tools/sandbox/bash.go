package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/audit"
	"github.com/haasonsaas/nexus/internal/labels"
)

// BashTool runs a shell command through the tiered executor (§4.5): none,
// process (minimized env, resource limits), or container (no network, all
// capabilities dropped, read-only root, falls back to process on a missing
// runtime). Unlike internal/tools/exec's ExecTool, which dispatches via a
// plain os/exec Manager with no isolation tier, BashTool is the spec's
// sandboxed command-execution surface.
type BashTool struct {
	name        string
	tier        Tier
	workDir     string
	timeout     time.Duration
	cpuLimit    int
	memLimitMB  int
	auditLogger *audit.Logger
}

// NewBashTool creates a tiered bash tool rooted at workDir.
func NewBashTool(name string, tier Tier, workDir string, auditLogger *audit.Logger) *BashTool {
	if name == "" {
		name = "bash"
	}
	return &BashTool{
		name:        name,
		tier:        tier,
		workDir:     workDir,
		timeout:     120 * time.Second, // §5 default bash timeout
		cpuLimit:    1000,
		memLimitMB:  512,
		auditLogger: auditLogger,
	}
}

func (t *BashTool) Name() string { return t.name }

// DeclaredLabel implements agent.DeclaredLabeler (§4.2 step 6d): a shell
// command's output reflects whatever the command touched — it isn't
// user-authored content, so it gets the conservative untrusted/internal
// baseline rather than ReadTool's verified one.
func (t *BashTool) DeclaredLabel() (labels.TrustLevel, labels.DataClass) {
	return labels.TrustUntrusted, labels.ClassInternal
}

func (t *BashTool) Description() string {
	return fmt.Sprintf("Run a shell command in a %s-tier sandbox rooted at the workspace directory.", t.tier)
}

func (t *BashTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {"type": "string", "description": "Shell command to execute."},
			"timeout_seconds": {"type": "integer", "description": "Timeout in seconds (0 = tool default).", "minimum": 0}
		},
		"required": ["command"]
	}`)
}

func (t *BashTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var input struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if input.Command == "" {
		return &agent.ToolResult{Content: "command is required", IsError: true}, nil
	}

	timeout := t.timeout
	if input.TimeoutSeconds > 0 {
		timeout = time.Duration(input.TimeoutSeconds) * time.Second
	}

	result, err := Run(ctx, RunOptions{
		Tier:        t.tier,
		Command:     []string{"/bin/sh", "-c", input.Command},
		ToolName:    t.name,
		WorkDir:     t.workDir,
		Timeout:     timeout,
		CPULimit:    t.cpuLimit,
		MemLimitMB:  t.memLimitMB,
		AuditLogger: t.auditLogger,
	})
	if err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("sandbox execution error: %v", err), IsError: true}, nil
	}

	content := result.Stdout
	if result.Stderr != "" {
		content += "\n[stderr]\n" + result.Stderr
	}
	if result.Truncated {
		content += "\n[output truncated]"
	}
	if result.TimedOut {
		content += "\n[command timed out]"
	}

	return &agent.ToolResult{
		Content: content,
		IsError: result.ExitCode != 0 || result.TimedOut,
	}, nil
}
