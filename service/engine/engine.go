package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/hopscotch/service/metrics"
	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/brojonat/hopscotch/service/token"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/gagliardetto/solana-go"
)

// TransactionSource lists a wallet's signatures and fetches the
// transactions behind them.
type TransactionSource interface {
	ListSignatures(ctx context.Context, wallet string, limit int, before string) ([]solanasvc.SignatureInfo, error)
	FetchParsedBatch(ctx context.Context, signatures []string) ([]*solanasvc.RawTransaction, error)
}

// TokenResolver resolves mint addresses to display metadata.
type TokenResolver interface {
	Resolve(ctx context.Context, mints []string) (map[string]token.Resolution, error)
}

// Params bound a retrieval run. Zero values take the defaults.
type Params struct {
	BatchSize       int           // transactions fetched per batch
	Limit           int           // maximum signatures considered
	Until           string        // only list signatures older than this one
	BatchPause      time.Duration // pause between consecutive batches
	BackoffBase     time.Duration // first retry delay after a rate limit
	BackoffCeiling  time.Duration // retry delays never exceed this
	MaxBatchRetries int           // retries per batch before degrading
}

const (
	defaultBatchSize        = 100
	defaultLimit            = 1000
	defaultBatchPause       = 500 * time.Millisecond
	defaultBackoffBase      = time.Second
	defaultBackoffCeiling   = 10 * time.Second
	defaultMaxBatchRetries  = 5
	signatureListingPageMax = 1000
)

func (p Params) withDefaults() Params {
	if p.BatchSize <= 0 {
		p.BatchSize = defaultBatchSize
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.BatchPause <= 0 {
		p.BatchPause = defaultBatchPause
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = defaultBackoffBase
	}
	if p.BackoffCeiling <= 0 {
		p.BackoffCeiling = defaultBackoffCeiling
	}
	if p.MaxBatchRetries <= 0 {
		p.MaxBatchRetries = defaultMaxBatchRetries
	}
	return p
}

// Engine drives the trade-history pipeline for one wallet at a time:
// list signatures, fetch transactions in sequential batches, interpret
// each into a trade, resolve its tokens, format, and emit. Batches and
// transactions are strictly sequential so the RPC endpoint sees a
// predictable request rate.
type Engine struct {
	source       TransactionSource
	resolver     TokenResolver
	interpreters []trade.Interpreter
	formatter    *trade.Formatter
	sink         TradeSink
	params       Params
	logger       *slog.Logger
	metrics      *metrics.Metrics

	// sleep is swapped out in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine. Interpreters are tried in the given order
// per transaction; the first non-nil interpretation wins. sink may be
// nil (no streaming emission); m may be nil (no metrics).
func NewEngine(
	source TransactionSource,
	resolver TokenResolver,
	interpreters []trade.Interpreter,
	formatter *trade.Formatter,
	sink TradeSink,
	params Params,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		source:       source,
		resolver:     resolver,
		interpreters: interpreters,
		formatter:    formatter,
		sink:         sink,
		params:       params.withDefaults(),
		logger:       logger,
		metrics:      m,
		sleep:        sleepContext,
	}
}

// GetTradeHistory retrieves and formats the wallet's trade history,
// newest first. Trades are emitted to the sink as they are assembled and
// also collected into the returned slice. The signature listing is the
// only hard failure; everything downstream degrades per transaction.
func (e *Engine) GetTradeHistory(ctx context.Context, wallet string) ([]*trade.FormattedTrade, error) {
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	start := time.Now()

	signatures, err := e.listSignatures(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	e.logger.InfoContext(ctx, "retrieving trade history",
		"wallet", wallet,
		"signatures", len(signatures),
	)

	var (
		trades       []*trade.FormattedTrade
		transactions int
	)
	for batchStart := 0; batchStart < len(signatures); batchStart += e.params.BatchSize {
		if batchStart > 0 {
			if err := e.sleep(ctx, e.params.BatchPause); err != nil {
				return trades, err
			}
		}

		end := min(batchStart+e.params.BatchSize, len(signatures))
		batch := signatures[batchStart:end]

		raws, err := e.fetchBatch(ctx, batch)
		if err != nil {
			return trades, err
		}
		if e.metrics != nil {
			e.metrics.RecordBatchProcessed()
		}

		for i, raw := range raws {
			transactions++
			formatted := e.processTransaction(ctx, wallet, batch[i], raw)
			if formatted != nil {
				trades = append(trades, formatted)
			}
		}
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.RecordHistoryDuration(elapsed.Seconds())
	}
	e.emitComplete(ctx, wallet, CompletionSummary{
		Wallet:       wallet,
		Trades:       len(trades),
		Transactions: transactions,
		Duration:     elapsed,
	})

	e.logger.InfoContext(ctx, "trade history complete",
		"wallet", wallet,
		"trades", len(trades),
		"transactions", transactions,
		"duration", elapsed,
	)
	return trades, nil
}

// listSignatures pages through the wallet's signature listing up to the
// configured limit and deduplicates, preserving first occurrence. The
// Until cursor, when set, seeds the first page so the listing resumes
// before a signature the caller already has.
func (e *Engine) listSignatures(ctx context.Context, wallet string) ([]string, error) {
	var (
		out  []string
		seen = make(map[string]struct{})
	)
	before := e.params.Until
	remaining := e.params.Limit
	for remaining > 0 {
		pageLimit := min(remaining, signatureListingPageMax)
		page, err := e.source.ListSignatures(ctx, wallet, pageLimit, before)
		if err != nil {
			return nil, err
		}
		for _, info := range page {
			if _, ok := seen[info.Signature]; ok {
				continue
			}
			seen[info.Signature] = struct{}{}
			out = append(out, info.Signature)
		}
		if len(page) < pageLimit {
			break
		}
		before = page[len(page)-1].Signature
		remaining -= len(page)
	}
	return out, nil
}

// fetchBatch fetches one batch, backing off and retrying on rate limits.
// Delays double from the base up to the ceiling. After the retry budget
// is spent the batch degrades to all-nil entries instead of failing the
// whole history.
func (e *Engine) fetchBatch(ctx context.Context, signatures []string) ([]*solanasvc.RawTransaction, error) {
	delay := e.params.BackoffBase
	for attempt := 0; ; attempt++ {
		raws, err := e.source.FetchParsedBatch(ctx, signatures)
		if err == nil {
			return raws, nil
		}
		if !errors.Is(err, solanasvc.ErrRateLimited) {
			e.logger.WarnContext(ctx, "batch fetch failed, degrading to empty batch", "error", err)
			return make([]*solanasvc.RawTransaction, len(signatures)), nil
		}
		if attempt >= e.params.MaxBatchRetries {
			e.logger.WarnContext(ctx, "retry budget exhausted, degrading to empty batch",
				"attempts", attempt,
				"signatures", len(signatures),
			)
			return make([]*solanasvc.RawTransaction, len(signatures)), nil
		}

		if e.metrics != nil {
			e.metrics.RecordBatchRetry()
		}
		e.logger.DebugContext(ctx, "rate limited, backing off",
			"attempt", attempt+1,
			"delay", delay,
		)
		if err := e.sleep(ctx, delay); err != nil {
			return nil, err
		}
		delay = min(delay*2, e.params.BackoffCeiling)
	}
}

// processTransaction interprets, resolves, formats, and emits one
// transaction. Returns nil when the transaction yields no emitted trade.
func (e *Engine) processTransaction(ctx context.Context, wallet, signature string, raw *solanasvc.RawTransaction) *trade.FormattedTrade {
	if raw == nil {
		e.recordParsed("missing")
		return nil
	}
	if raw.Failed {
		e.recordParsed("failed_tx")
		return nil
	}

	var parsed *trade.ParsedTransaction
	for _, interpreter := range e.interpreters {
		if parsed = interpreter.Interpret(raw); parsed != nil {
			break
		}
	}
	if parsed == nil {
		e.recordParsed("no_trade")
		return nil
	}
	e.recordParsed("trade")

	mints := make([]string, 0, 2*len(parsed.Swaps))
	for _, swap := range parsed.Swaps {
		mints = append(mints, swap.InputMint, swap.OutputMint)
	}
	resolutions, err := e.resolver.Resolve(ctx, mints)
	if err != nil {
		e.logger.WarnContext(ctx, "token resolution failed", "signature", signature, "error", err)
		e.dropTrade(ctx, wallet, signature, "resolution", err)
		return nil
	}

	formatted, err := e.formatter.Format(parsed, signature, token.TokenInfos(resolutions))
	if err != nil {
		e.logger.WarnContext(ctx, "trade assembly failed", "signature", signature, "error", err)
		e.dropTrade(ctx, wallet, signature, "assembly", err)
		return nil
	}

	if e.metrics != nil {
		e.metrics.RecordTradeEmitted()
	}
	if e.sink != nil {
		if err := e.sink.PublishTrade(ctx, wallet, formatted); err != nil {
			e.logger.WarnContext(ctx, "failed to emit trade", "signature", signature, "error", err)
		}
	}
	return formatted
}

func (e *Engine) dropTrade(ctx context.Context, wallet, signature, reason string, err error) {
	if e.metrics != nil {
		e.metrics.RecordTradeDropped(reason)
	}
	if e.sink != nil {
		if sinkErr := e.sink.PublishError(ctx, wallet, signature, err); sinkErr != nil {
			e.logger.WarnContext(ctx, "failed to emit error event", "signature", signature, "error", sinkErr)
		}
	}
}

func (e *Engine) emitComplete(ctx context.Context, wallet string, summary CompletionSummary) {
	if e.sink == nil {
		return
	}
	if err := e.sink.PublishComplete(ctx, wallet, summary); err != nil {
		e.logger.WarnContext(ctx, "failed to emit completion event", "wallet", wallet, "error", err)
	}
}

func (e *Engine) recordParsed(outcome string) {
	if e.metrics != nil {
		e.metrics.RecordTransactionParsed(outcome)
	}
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
