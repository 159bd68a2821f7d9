package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/nexus/internal/channels"
	"github.com/haasonsaas/nexus/internal/channels/slack"
	"github.com/haasonsaas/nexus/pkg/models"
)

// newChannelCmd adds `meao channel slack`, the one real Channel-contract
// frontend wired into the CLI (spec §6's "channel" surface, consumed
// outside the core through channels.Registry). The other two teacher
// adapters (discord, telegram) stay unwired reference material; wiring all
// three would just be three copies of the same loop below against
// different SDKs, without exercising anything the spec doesn't already
// cover once.
func newChannelCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "channel", Short: "Run meao against a messaging channel instead of the terminal"}
	cmd.AddCommand(&cobra.Command{
		Use:   "slack",
		Short: "Listen for Slack messages and reply through the same security core as the interactive CLI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlackChannel(cmd.Context())
		},
	})
	return cmd
}

// runSlackChannel wires internal/channels/slack.Adapter through
// channels.Registry into the same Runtime/guardedTool stack `meao`'s
// interactive REPL uses: every inbound Slack message becomes a turn through
// the Tool Gateway exactly as a typed terminal line would, and every
// response chunk becomes an outbound, typed channel message (§6) sent back
// through the adapter.
func runSlackChannel(ctx context.Context) error {
	botToken := os.Getenv("SLACK_BOT_TOKEN")
	appToken := os.Getenv("SLACK_APP_TOKEN")
	if botToken == "" || appToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_APP_TOKEN must be set to run the slack channel")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	adapter := slack.NewAdapter(slack.Config{BotToken: botToken, AppToken: appToken})
	registry := channels.NewRegistry()
	registry.Register(adapter)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := registry.StartAll(ctx); err != nil {
		return fmt.Errorf("start slack adapter: %w", err)
	}
	defer registry.StopAll(context.Background())

	fmt.Println("meao channel slack: listening (Ctrl-C to stop)")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-adapter.Messages():
			if !ok {
				return nil
			}
			if err := handleChannelMessage(ctx, a, registry, msg); err != nil {
				fmt.Fprintln(os.Stderr, "error handling channel message:", err)
			}
		}
	}
}

// handleChannelMessage runs one inbound channel message through the
// Orchestrator and relays the response back out through the same
// OutboundAdapter, carrying msg.Metadata along so the adapter can address
// its reply (e.g. Slack's channel id / thread timestamp) without the core
// needing to know about Slack at all.
func handleChannelMessage(ctx context.Context, a *app, registry *channels.Registry, msg *models.Message) error {
	session, err := a.store.GetOrCreate(ctx, "meao:"+msg.SessionID, "meao", msg.Channel, msg.ChannelID)
	if err != nil {
		return fmt.Errorf("get or create session: %w", err)
	}
	setSessionID(a, session.ID)
	setMemoryUserID(a.memoryTools, channelUserID(msg))

	chunks, err := a.runtime.Process(ctx, session, msg)
	if err != nil {
		return err
	}

	out, ok := registry.GetOutbound(msg.Channel)
	if !ok {
		return fmt.Errorf("no outbound adapter registered for channel %s", msg.Channel)
	}

	var reply string
	for chunk := range chunks {
		if chunk.Error != nil {
			return sendChannelReply(ctx, out, msg, models.KindError, chunk.Error.Error())
		}
		reply += chunk.Text
		if chunk.ToolEvent != nil {
			_ = sendChannelReply(ctx, out, msg, models.KindToolUse,
				fmt.Sprintf("%s (%s)", chunk.ToolEvent.ToolName, chunk.ToolEvent.Stage))
		}
	}
	if reply == "" {
		return nil
	}
	return sendChannelReply(ctx, out, msg, models.KindAssistantMessage, reply)
}

// channelUserID extracts the per-sender identity Slack attaches to every
// inbound message (see internal/channels/slack.convertSlackMessage) for
// memory scoping (I6): each Slack user's memories stay isolated from every
// other Slack user's, not pooled under one shared channel identity.
func channelUserID(msg *models.Message) string {
	if msg.Metadata != nil {
		if uid, ok := msg.Metadata["slack_user_id"].(string); ok && uid != "" {
			return string(msg.Channel) + ":" + uid
		}
	}
	return string(msg.Channel) + ":" + msg.ChannelID
}

func sendChannelReply(ctx context.Context, out channels.OutboundAdapter, in *models.Message, kind models.MessageKind, content string) error {
	reply := &models.Message{
		ID:        uuid.NewString(),
		SessionID: in.SessionID,
		Channel:   in.Channel,
		ChannelID: in.ChannelID,
		Direction: models.DirectionOutbound,
		Role:      models.RoleAssistant,
		Kind:      kind,
		Content:   content,
		Metadata:  in.Metadata,
	}
	return out.Send(ctx, reply)
}
