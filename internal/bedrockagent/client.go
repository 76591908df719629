// Package bedrockagent wraps the agent-runtime InvokeAgent API behind the
// event stream the correlator consumes.
package bedrockagent

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

type Client struct {
	api *bedrockagentruntime.Client
}

// New builds a client for region. Static credentials from the environment
// take precedence over the default provider chain so containerized runs
// need nothing but the two variables.
func New(ctx context.Context, region string) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if key := os.Getenv("AWS_ACCESS_KEY_ID"); key != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				key,
				os.Getenv("AWS_SECRET_ACCESS_KEY"),
				os.Getenv("AWS_SESSION_TOKEN"),
			)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{api: bedrockagentruntime.NewFromConfig(awsCfg)}, nil
}

// Invoke starts an agent invocation with tracing enabled and returns the
// live completion stream.
func (c *Client) Invoke(ctx context.Context, agentID, agentAliasID, sessionID, inputText string) (*Stream, error) {
	out, err := c.api.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(agentID),
		AgentAliasId: aws.String(agentAliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(inputText),
		EnableTrace:  aws.Bool(true),
		StreamingConfigurations: &types.StreamingConfigurations{
			StreamFinalResponse:    false,
			ApplyGuardrailInterval: aws.Int32(10),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("invoke agent: %w", err)
	}
	return newStream(out.GetStream()), nil
}

// Stream adapts the SDK event stream to the correlator's contract. Events
// are pumped on a dedicated goroutine; Err is valid once the channel closes.
type Stream struct {
	inner *bedrockagentruntime.InvokeAgentEventStream
	ch    chan model.StreamEvent
	err   error
}

func newStream(inner *bedrockagentruntime.InvokeAgentEventStream) *Stream {
	s := &Stream{
		inner: inner,
		ch:    make(chan model.StreamEvent, 16),
	}
	go s.pump()
	return s
}

func (s *Stream) pump() {
	defer close(s.ch)
	for ev := range s.inner.Events() {
		switch t := ev.(type) {
		case *types.ResponseStreamMemberChunk:
			if len(t.Value.Bytes) > 0 {
				s.ch <- model.StreamEvent{Chunk: &model.Chunk{Bytes: t.Value.Bytes}}
			}
		case *types.ResponseStreamMemberTrace:
			if part := convertTracePart(&t.Value); part != nil {
				s.ch <- model.StreamEvent{Trace: part}
			}
		}
	}
	s.err = s.inner.Err()
}

func (s *Stream) Events() <-chan model.StreamEvent { return s.ch }

// Err reports the stream's terminal error. Only meaningful after Events()
// has been drained.
func (s *Stream) Err() error { return s.err }

func (s *Stream) Close() error { return s.inner.Close() }
