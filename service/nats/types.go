package nats

import (
	"time"

	"github.com/brojonat/hopscotch/service/engine"
	"github.com/brojonat/hopscotch/service/trade"
)

// EventKind discriminates the events published to a wallet's subject.
type EventKind string

const (
	EventKindTrade    EventKind = "trade"
	EventKindError    EventKind = "error"
	EventKindComplete EventKind = "complete"
)

// TradeEvent represents an event published to NATS.
// This is published to the subject "trades.{wallet_address}" in JetStream.
type TradeEvent struct {
	Kind          EventKind `json:"kind"`
	WalletAddress string    `json:"wallet_address"`

	// Set when Kind is "trade".
	Trade *trade.FormattedTrade `json:"trade,omitempty"`

	// Set when Kind is "error".
	Signature string `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`

	// Set when Kind is "complete".
	Summary *engine.CompletionSummary `json:"summary,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}
