package engine

import (
	"context"
	"time"

	"github.com/brojonat/hopscotch/service/trade"
)

// TradeSink receives the engine's streaming output: one event per
// assembled trade, one per dropped transaction, and a final completion
// event. Implementations must tolerate being called sequentially from a
// single goroutine.
type TradeSink interface {
	PublishTrade(ctx context.Context, wallet string, t *trade.FormattedTrade) error
	PublishError(ctx context.Context, wallet, signature string, err error) error
	PublishComplete(ctx context.Context, wallet string, summary CompletionSummary) error
}

// CompletionSummary closes out one retrieval run.
type CompletionSummary struct {
	Wallet       string        `json:"wallet"`
	Trades       int           `json:"trades"`
	Transactions int           `json:"transactions"`
	Duration     time.Duration `json:"duration"`
}

// EventType discriminates channel sink events.
type EventType string

const (
	EventTypeTrade    EventType = "trade"
	EventTypeError    EventType = "error"
	EventTypeComplete EventType = "complete"
)

// Event is one typed sink event. Exactly one of Trade, Err, or Summary
// is set, according to Type.
type Event struct {
	Type      EventType
	Wallet    string
	Signature string
	Trade     *trade.FormattedTrade
	Err       error
	Summary   *CompletionSummary
}

// ChannelSink delivers engine events over a typed channel, for callers
// that consume the stream in-process (the CLI does this).
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a sink with the given channel buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Close closes the event channel. Call only after the engine run that
// feeds this sink has returned.
func (s *ChannelSink) Close() {
	close(s.events)
}

func (s *ChannelSink) PublishTrade(ctx context.Context, wallet string, t *trade.FormattedTrade) error {
	return s.send(ctx, Event{Type: EventTypeTrade, Wallet: wallet, Signature: t.Signature, Trade: t})
}

func (s *ChannelSink) PublishError(ctx context.Context, wallet, signature string, err error) error {
	return s.send(ctx, Event{Type: EventTypeError, Wallet: wallet, Signature: signature, Err: err})
}

func (s *ChannelSink) PublishComplete(ctx context.Context, wallet string, summary CompletionSummary) error {
	return s.send(ctx, Event{Type: EventTypeComplete, Wallet: wallet, Summary: &summary})
}

func (s *ChannelSink) send(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
