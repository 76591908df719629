package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/bedrockagent"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/config"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/correlator"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/exporter"
	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

var (
	flagAgentID      string
	flagAgentAliasID string
	flagSessionID    string
	flagRegion       string
	flagExporter     string
	flagUserID       string
	flagShowTraces   bool
	flagReplay       string
)

func main() {
	root := &cobra.Command{
		Use:   "invoke [input text]",
		Short: "Invoke a Bedrock agent and trace the run to LangSmith",
		Args:  cobra.ArbitraryArgs,
		RunE:  run,
	}
	root.Flags().StringVar(&flagAgentID, "agent-id", "", "Bedrock agent id")
	root.Flags().StringVar(&flagAgentAliasID, "agent-alias-id", "", "Bedrock agent alias id")
	root.Flags().StringVar(&flagSessionID, "session-id", "", "session id (random when empty)")
	root.Flags().StringVar(&flagRegion, "region", "", "AWS region")
	root.Flags().StringVar(&flagExporter, "exporter", "", "export format: otlp or multipart")
	root.Flags().StringVar(&flagUserID, "user-id", "", "user id recorded on the trace")
	root.Flags().BoolVar(&flagShowTraces, "show-traces", false, "print raw trace events while streaming")
	root.Flags().StringVar(&flagReplay, "replay", "", "replay a recorded stream file instead of calling AWS")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAgentID != "" {
		cfg.AgentID = flagAgentID
	}
	if flagAgentAliasID != "" {
		cfg.AgentAliasID = flagAgentAliasID
	}
	if flagRegion != "" {
		cfg.Region = flagRegion
	}
	if flagExporter != "" {
		cfg.Exporter = strings.ToLower(flagExporter)
	}
	sessionID := flagSessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	inputText := strings.Join(args, " ")
	if flagReplay == "" && inputText == "" {
		return fmt.Errorf("input text is required for a live invocation")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	exp := exporter.Build(cfg)
	defer exp.Stop()

	var (
		stream correlator.EventStream
		inv    correlator.Invocation
	)
	if flagReplay != "" {
		stream, inv, err = replayStream(flagReplay)
		if err != nil {
			return err
		}
		inv.InputText = inputText
	} else {
		client, err := bedrockagent.New(ctx, cfg.Region)
		if err != nil {
			return err
		}
		live, err := client.Invoke(ctx, cfg.AgentID, cfg.AgentAliasID, sessionID, inputText)
		if err != nil {
			return err
		}
		defer live.Close()
		stream = live
		inv = correlator.Invocation{
			AgentID:      cfg.AgentID,
			AgentAliasID: cfg.AgentAliasID,
			SessionID:    sessionID,
			InputText:    inputText,
		}
	}
	inv.UserID = flagUserID

	if flagShowTraces {
		stream = &teeStream{inner: stream, out: make(chan model.StreamEvent, 16)}
	}

	c := correlator.New(exp)
	output, err := c.Consume(ctx, inv, stream)

	flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if ferr := exp.Flush(flushCtx); ferr != nil {
		log.Printf("failed to flush spans: %v", ferr)
	}
	if err != nil {
		return err
	}

	fmt.Println(output)
	return nil
}

func replayStream(path string) (correlator.EventStream, correlator.Invocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, correlator.Invocation{}, err
	}
	events, err := model.DecodeStreamEvents(data)
	if err != nil {
		return nil, correlator.Invocation{}, fmt.Errorf("parse %s: %w", path, err)
	}
	for _, ev := range events {
		if ev.Trace == nil {
			continue
		}
		inv := correlator.Invocation{
			AgentID:      ev.Trace.AgentID,
			AgentAliasID: ev.Trace.AgentAliasID,
			SessionID:    ev.Trace.SessionID,
		}
		return correlator.NewReplay(events), inv, nil
	}
	return nil, correlator.Invocation{}, fmt.Errorf("%s contains no trace events", path)
}

// teeStream prints trace events to stderr while passing everything through.
type teeStream struct {
	inner   correlator.EventStream
	out     chan model.StreamEvent
	started bool
}

func (t *teeStream) Events() <-chan model.StreamEvent {
	if !t.started {
		t.started = true
		go func() {
			defer close(t.out)
			for ev := range t.inner.Events() {
				if ev.Trace != nil {
					if j, err := json.Marshal(ev.Trace); err == nil {
						fmt.Fprintln(os.Stderr, string(j))
					}
				}
				t.out <- ev
			}
		}()
	}
	return t.out
}

func (t *teeStream) Err() error { return t.inner.Err() }
