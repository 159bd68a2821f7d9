package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/approvals"
	"github.com/haasonsaas/nexus/internal/net/guard"
	"github.com/haasonsaas/nexus/internal/secrets"
)

// demo is a small, self-contained scenario that exercises one security
// property of the core directly, without needing a live model provider.
// These back `meao demo list|show|run` (§6) and double as documentation of
// what the security substrate actually does.
type demo struct {
	name        string
	description string
	run         func() string
}

func demos() []demo {
	return []demo{
		{
			name:        "ssrf-block",
			description: "Network Guard rejects a request to a cloud metadata endpoint before any socket opens",
			run:         runSSRFDemo,
		},
		{
			name:        "secret-redact",
			description: "Secret Detector finds and redacts an API key before it would reach audit or session storage",
			run:         runRedactDemo,
		},
		{
			name:        "approval-specificity",
			description: "An approval granted for one URL does not authorize a different URL on the same host (I4)",
			run:         runApprovalDemo,
		},
	}
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "demo", Short: "Run self-contained demonstrations of the security core"}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available demos",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range demos() {
				fmt.Printf("%-24s %s\n", d.name, d.description)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show what a demo does without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := findDemo(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s\n\n%s\n", d.name, d.description)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run a demo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := findDemo(args[0])
			if err != nil {
				return err
			}
			fmt.Println(d.run())
			return nil
		},
	})

	return cmd
}

func findDemo(name string) (demo, error) {
	for _, d := range demos() {
		if d.name == name {
			return d, nil
		}
	}
	return demo{}, fmt.Errorf("unknown demo %q (see `meao demo list`)", name)
}

func runSSRFDemo() string {
	g := guard.New(guard.NewAllowlist(nil), 300)
	result := g.CheckURL("http://169.254.169.254/latest/meta-data/", "GET", nil)
	if result.Allowed {
		return "UNEXPECTED: metadata endpoint was allowed"
	}
	return fmt.Sprintf("blocked as expected: %s", result.Reason)
}

func runRedactDemo() string {
	d := secrets.New()
	raw := "deploying with key sk-ant-REDACTED set in the environment"
	redacted := d.Redact(raw, secrets.Probable, "[REDACTED]")
	return fmt.Sprintf("before: %s\nafter:  %s", raw, redacted)
}

func runApprovalDemo() string {
	idA, _ := approvals.ComputeID("web_fetch", "get", "https://example.com/users?id=1")
	idB, _ := approvals.ComputeID("web_fetch", "get", "https://example.com/users?id=2")
	if idA == idB {
		return "UNEXPECTED: distinct targets produced the same approval id"
	}
	return fmt.Sprintf("approval id for id=1: %s\napproval id for id=2: %s\n(a grant for one never authorizes the other)", idA, idB)
}
