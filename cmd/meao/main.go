// Package main provides the CLI entry point for meao, a local AI agent
// orchestrator that executes model-driven tool calls against the
// filesystem, shell, and network behind an approval-gated, SSRF-resistant,
// secret-redacting security core.
//
// # Basic usage
//
// Start an interactive session:
//
//	meao
//
// Resume a prior session:
//
//	meao session resume <id>
//
// List known sessions:
//
//	meao sessions list
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/agent/providers"
	"github.com/haasonsaas/nexus/internal/approvals"
	"github.com/haasonsaas/nexus/internal/audit"
	"github.com/haasonsaas/nexus/internal/memory"
	"github.com/haasonsaas/nexus/internal/net/guard"
	"github.com/haasonsaas/nexus/internal/sessions"
	"github.com/haasonsaas/nexus/internal/tools/files"
	"github.com/haasonsaas/nexus/internal/tools/sandbox"
	"github.com/haasonsaas/nexus/internal/tools/websearch"
	"github.com/haasonsaas/nexus/pkg/models"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagModel   string
	flagWorkDir string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "meao",
		Short:   "Local AI agent orchestrator",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), "")
		},
	}
	root.PersistentFlags().StringVar(&flagModel, "model", "", "model identifier to use for this session")
	root.PersistentFlags().StringVar(&flagWorkDir, "work-dir", ".", "workspace directory tools operate against")

	sessionCmd := &cobra.Command{Use: "session", Short: "Manage the current session"}
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Start a new interactive session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), "")
		},
	})
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "resume <id>",
		Short: "Resume an existing session by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), args[0])
		},
	})
	root.AddCommand(sessionCmd)

	sessionsCmd := &cobra.Command{Use: "sessions", Short: "Inspect known sessions"}
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd.Context())
		},
	})
	root.AddCommand(sessionsCmd)

	root.AddCommand(newDemoCmd())
	root.AddCommand(newChannelCmd())

	return root
}

// app bundles the wired-up security core and runtime shared across the
// interactive loop and the demo command: the Orchestrator (Runtime), the
// Approval Manager, the Network Guard, and the audit sink.
type app struct {
	runtime      *agent.Runtime
	store        sessions.Store
	auditLog     *audit.Logger
	checker      *agent.ApprovalChecker
	grants       *approvals.Manager
	guard        *guard.Guard
	workDir      string
	guardedTools []*guardedTool
	memory       *memory.Manager
	memoryTools  []memoryUserScoped
}

func buildApp() (*app, error) {
	workDir, err := filepath.Abs(flagWorkDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work-dir: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	auditCfg := audit.DefaultConfig()
	auditCfg.Enabled = true
	auditLog, err := audit.NewLogger(auditCfg)
	if err != nil {
		return nil, fmt.Errorf("init audit logger: %w", err)
	}

	store := sessions.NewMemoryStore()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	provider, err := providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("init model provider: %w", err)
	}

	runtime := agent.NewRuntime(provider, store)
	if flagModel != "" {
		runtime.SetDefaultModel(flagModel)
	} else {
		runtime.SetDefaultModel("claude-sonnet-4-5")
	}
	runtime.SetSystemPrompt("You are meao, a careful local coding and operations assistant. Tool calls you make are subject to approval, sandboxing, and network policy; explain tool failures to the user rather than retrying blindly.")

	grants, err := approvals.NewManager(nil)
	if err != nil {
		return nil, fmt.Errorf("init approval manager: %w", err)
	}
	checker := agent.NewApprovalChecker(agent.DefaultApprovalPolicy())
	checker.SetGrantManager(grants)

	netGuard := guard.New(guard.NewAllowlist(nil), 300)

	guardedTools := registerTools(runtime, checker, netGuard, workDir, auditLog)

	memManager, err := buildMemoryManager(workDir)
	if err != nil {
		return nil, err
	}
	memTools := registerMemoryTools(runtime, memManager)

	return &app{
		runtime:      runtime,
		store:        store,
		auditLog:     auditLog,
		checker:      checker,
		grants:       grants,
		guard:        netGuard,
		workDir:      workDir,
		guardedTools: guardedTools,
		memory:       memManager,
		memoryTools:  memTools,
	}, nil
}

// registerTools wires the built-in tools (read, write, bash, web_fetch)
// through the Tool Gateway's approval step (§4.2 step 1). Network egress for
// web_fetch routes exclusively through the Network Guard (I2); no other
// built-in tool opens a socket. bash runs through the Sandbox Executor's
// container tier (§4.5), falling back to the process tier with an audited
// warning if no container runtime is available.
func registerTools(runtime *agent.Runtime, checker *agent.ApprovalChecker, netGuard *guard.Guard, workDir string, auditLog *audit.Logger) []*guardedTool {
	fileCfg := files.Config{Workspace: workDir, MaxReadBytes: 200000}
	readTool := files.NewReadTool(fileCfg)
	writeTool := files.NewWriteTool(fileCfg)
	editTool := files.NewEditTool(fileCfg)

	bashTool := sandbox.NewBashTool("bash", sandbox.TierContainer, workDir, auditLog)

	fetchTool := websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: 10000}, websearch.WithFetchNetworkGuard(netGuard, nil))

	guarded := []*guardedTool{
		{
			Tool: writeTool, checker: checker, in: stdinReader, action: "write",
			target: func(params []byte) string { return jsonStringField(params, "path", "file_path") },
		},
		{
			Tool: editTool, checker: checker, in: stdinReader, action: "write",
			target: func(params []byte) string { return jsonStringField(params, "path", "file_path") },
		},
		{
			Tool: bashTool, checker: checker, in: stdinReader, action: "execute",
			target: func(params []byte) string { return jsonStringField(params, "command") },
		},
		{
			Tool: fetchTool, checker: checker, in: stdinReader, action: "get",
			target: func(params []byte) string { return jsonStringField(params, "url") },
		},
	}

	// read is deliberately ungated: §4.2's approval step targets actions
	// with side effects or exfiltration risk, and plain workspace reads
	// have neither.
	runtime.RegisterTool(readTool)
	for _, gt := range guarded {
		runtime.RegisterTool(gt)
	}
	return guarded
}

func runInteractive(ctx context.Context, resumeID string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	var session *models.Session
	if resumeID != "" {
		session, err = a.store.Get(ctx, resumeID)
		if err != nil {
			return fmt.Errorf("resume session %s: %w", resumeID, err)
		}
	} else {
		session, err = a.store.GetOrCreate(ctx, uuid.NewString(), "meao", "", "")
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
	}
	setSessionID(a, session.ID)
	setMemoryUserID(a.memoryTools, localOperatorID())

	fmt.Printf("meao %s — session %s (work-dir %s)\n", version, session.ID, a.workDir)
	fmt.Println("Type /help for interactive commands, or just start chatting.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := handleSlashCommand(ctx, a, session, line)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
			}
			if done {
				return nil
			}
			continue
		}

		if err := sendTurn(ctx, a, session, line); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
	return nil
}

// close releases the audit sink and, if configured, the memory manager's
// backend connection.
func (a *app) close() {
	a.auditLog.Close()
	if a.memory != nil {
		a.memory.Close()
	}
}

// setSessionID threads the active session id into every registered
// guardedTool so approval grants are scoped correctly (I4, §4.8). The
// runtime's tool registry doesn't expose per-call session context to Tool
// implementations directly, so the CLI (standing in for a channel) injects
// it once per session the same way it would thread a channel's own
// conversation id.
func setSessionID(a *app, sessionID string) {
	for _, gt := range a.guardedTools {
		gt.sessionID = sessionID
	}
}

func sendTurn(ctx context.Context, a *app, session *models.Session, text string) error {
	msg := &models.Message{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	}

	chunks, err := a.runtime.Process(ctx, session, msg)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		if chunk.Error != nil {
			fmt.Fprintln(os.Stderr, "error:", chunk.Error)
			continue
		}
		if chunk.Text != "" {
			fmt.Print(chunk.Text)
		}
		if chunk.ToolEvent != nil {
			fmt.Printf("\n[tool] %s %s\n", chunk.ToolEvent.ToolName, chunk.ToolEvent.Stage)
		}
	}
	fmt.Println()
	return nil
}

func handleSlashCommand(ctx context.Context, a *app, session *models.Session, line string) (exit bool, err error) {
	switch strings.Fields(line)[0] {
	case "/help":
		fmt.Println("/help            show this message")
		fmt.Println("/session         show the current session id")
		fmt.Println("/clear           start a fresh session in this work-dir")
		fmt.Println("/audit           show recent audit entries are written to the audit log output")
		fmt.Println("/quit, /exit     end the session")
	case "/session":
		fmt.Printf("session: %s\n", session.ID)
	case "/clear":
		fresh, cerr := a.store.GetOrCreate(ctx, uuid.NewString(), "meao", "", "")
		if cerr != nil {
			return false, cerr
		}
		*session = *fresh
		setSessionID(a, session.ID)
		fmt.Println("started a new session:", session.ID)
	case "/audit":
		fmt.Println("audit entries are being written to the configured audit output (stdout by default); this build does not buffer a separate tail.")
	case "/quit", "/exit":
		return true, nil
	default:
		fmt.Println("unknown command, try /help")
	}
	return false, nil
}

func runSessionsList(ctx context.Context) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	list, err := a.store.List(ctx, "meao", sessions.ListOptions{Limit: 100})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no sessions yet (the in-memory session store does not persist across process restarts)")
		return nil
	}
	for _, s := range list {
		fmt.Printf("%s\t%s\t%s\n", s.ID, s.CreatedAt.Format(time.RFC3339), s.Title)
	}
	return nil
}
