package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/hopscotch/service/engine"
	"github.com/brojonat/hopscotch/service/metrics"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the name of the JetStream stream for trade events.
	StreamName = "TRADES"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "trades.*"

	// StreamRetention is how long messages are retained (30 days by default).
	StreamRetention = 30 * 24 * time.Hour
)

// JetStreamPublisher publishes trade events to NATS JetStream. It is the
// engine's TradeSink for background runs: downstream consumers subscribe
// to "trades.{wallet}" instead of holding an open HTTP stream.
type JetStreamPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewPublisher creates a new JetStream publisher.
// It connects to NATS and ensures the stream exists. m may be nil.
func NewPublisher(natsURL string, m *metrics.Metrics, logger *slog.Logger) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("hopscotch-publisher"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	publisher := &JetStreamPublisher{
		nc:      nc,
		js:      js,
		logger:  logger,
		metrics: m,
	}

	if err := publisher.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS publisher initialized",
		"url", natsURL,
		"stream", StreamName,
	)

	return publisher, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (p *JetStreamPublisher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stream, err := p.js.Stream(ctx, StreamName)
	if err == nil {
		info, err := stream.Info(ctx)
		if err == nil {
			p.logger.Debug("JetStream stream already exists",
				"stream", StreamName,
				"messages", info.State.Msgs,
			)
		}
		return nil
	}

	p.logger.Info("creating JetStream stream", "stream", StreamName)

	streamConfig := jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Reconstructed swap trades per wallet",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	}

	if _, err := p.js.CreateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	p.logger.Info("JetStream stream created successfully", "stream", StreamName)
	return nil
}

// PublishTrade publishes one assembled trade to the wallet's subject.
func (p *JetStreamPublisher) PublishTrade(ctx context.Context, wallet string, t *trade.FormattedTrade) error {
	return p.publish(ctx, wallet, &TradeEvent{
		Kind:          EventKindTrade,
		WalletAddress: wallet,
		Trade:         t,
		Signature:     t.Signature,
	})
}

// PublishError publishes a per-transaction failure event.
func (p *JetStreamPublisher) PublishError(ctx context.Context, wallet, signature string, cause error) error {
	return p.publish(ctx, wallet, &TradeEvent{
		Kind:          EventKindError,
		WalletAddress: wallet,
		Signature:     signature,
		Error:         cause.Error(),
	})
}

// PublishComplete publishes the completion event that closes a run.
func (p *JetStreamPublisher) PublishComplete(ctx context.Context, wallet string, summary engine.CompletionSummary) error {
	return p.publish(ctx, wallet, &TradeEvent{
		Kind:          EventKindComplete,
		WalletAddress: wallet,
		Summary:       &summary,
	})
}

func (p *JetStreamPublisher) publish(ctx context.Context, wallet string, event *TradeEvent) error {
	event.PublishedAt = time.Now().UTC()
	subject := fmt.Sprintf("trades.%s", wallet)

	data, err := json.Marshal(event)
	if err != nil {
		p.recordPublish("marshal_error")
		return fmt.Errorf("failed to marshal trade event: %w", err)
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.recordPublish("error")
		return fmt.Errorf("failed to publish trade event: %w", err)
	}
	p.recordPublish("success")

	p.logger.Debug("published trade event",
		"subject", subject,
		"kind", event.Kind,
		"signature", event.Signature,
	)
	return nil
}

func (p *JetStreamPublisher) recordPublish(status string) {
	if p.metrics != nil {
		p.metrics.RecordNATSPublish(status)
	}
}

// Close closes the connection to NATS.
func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
		p.logger.Info("NATS publisher closed")
	}
	return nil
}
