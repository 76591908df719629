package correlator

import "github.com/PeriniM/langsmith-bedrock-agents/internal/model"

// EventStream is the boundary to the network client: an ordered sequence of
// completion-stream elements. Events must be consumed until the channel
// closes; Err reports the stream's terminal error, if any, afterwards.
type EventStream interface {
	Events() <-chan model.StreamEvent
	Err() error
}

// ReplayStream serves a recorded event slice. Used by the replay daemon, the
// CLI's replay mode, and tests.
type ReplayStream struct {
	ch  chan model.StreamEvent
	err error
}

func NewReplay(events []model.StreamEvent) *ReplayStream {
	return NewReplayErr(events, nil)
}

// NewReplayErr replays events and then fails with err, simulating a stream
// that breaks mid-invocation.
func NewReplayErr(events []model.StreamEvent, err error) *ReplayStream {
	ch := make(chan model.StreamEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &ReplayStream{ch: ch, err: err}
}

func (r *ReplayStream) Events() <-chan model.StreamEvent { return r.ch }

func (r *ReplayStream) Err() error { return r.err }
