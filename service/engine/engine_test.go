package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	solanasvc "github.com/brojonat/hopscotch/service/solana"
	"github.com/brojonat/hopscotch/service/token"
	"github.com/brojonat/hopscotch/service/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWallet = "11111111111111111111111111111111"
	solMint    = "So11111111111111111111111111111111111111112"
	usdcMint   = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// mockSource implements TransactionSource with injectable behavior.
type mockSource struct {
	signatures []solanasvc.SignatureInfo
	listErr    error

	befores   []string
	batches   [][]string
	fetch     func(call int, signatures []string) ([]*solanasvc.RawTransaction, error)
	fetchCall int
}

func (m *mockSource) ListSignatures(ctx context.Context, wallet string, limit int, before string) ([]solanasvc.SignatureInfo, error) {
	m.befores = append(m.befores, before)
	if m.listErr != nil {
		return nil, m.listErr
	}
	// Only the first page carries signatures.
	if len(m.befores) > 1 {
		return nil, nil
	}
	if limit < len(m.signatures) {
		return m.signatures[:limit], nil
	}
	return m.signatures, nil
}

func (m *mockSource) FetchParsedBatch(ctx context.Context, signatures []string) ([]*solanasvc.RawTransaction, error) {
	m.batches = append(m.batches, signatures)
	call := m.fetchCall
	m.fetchCall++
	if m.fetch != nil {
		return m.fetch(call, signatures)
	}
	out := make([]*solanasvc.RawTransaction, len(signatures))
	for i, sig := range signatures {
		out[i] = &solanasvc.RawTransaction{Signature: sig}
	}
	return out, nil
}

// stubInterpreter returns canned interpretations keyed by signature.
type stubInterpreter struct {
	trades map[string]*trade.ParsedTransaction
}

func (s *stubInterpreter) Name() string { return "stub" }

func (s *stubInterpreter) Interpret(tx *solanasvc.RawTransaction) *trade.ParsedTransaction {
	return s.trades[tx.Signature]
}

// fakeResolver resolves from a fixed token set.
type fakeResolver struct {
	tokens map[string]token.TokenInfo
}

func (r *fakeResolver) Resolve(ctx context.Context, mints []string) (map[string]token.Resolution, error) {
	out := make(map[string]token.Resolution)
	for _, mint := range mints {
		if info, ok := r.tokens[mint]; ok {
			out[mint] = token.Resolution{TokenInfo: info, Source: "memory", Persisted: true}
		}
	}
	return out, nil
}

// spySink records every event it receives.
type spySink struct {
	trades    []*trade.FormattedTrade
	errors    []string
	summaries []CompletionSummary
}

func (s *spySink) PublishTrade(ctx context.Context, wallet string, t *trade.FormattedTrade) error {
	s.trades = append(s.trades, t)
	return nil
}

func (s *spySink) PublishError(ctx context.Context, wallet, signature string, err error) error {
	s.errors = append(s.errors, signature)
	return nil
}

func (s *spySink) PublishComplete(ctx context.Context, wallet string, summary CompletionSummary) error {
	s.summaries = append(s.summaries, summary)
	return nil
}

func sigInfos(sigs ...string) []solanasvc.SignatureInfo {
	out := make([]solanasvc.SignatureInfo, len(sigs))
	for i, sig := range sigs {
		out[i] = solanasvc.SignatureInfo{Signature: sig, Slot: uint64(1000 - i)}
	}
	return out
}

func swapParsed() *trade.ParsedTransaction {
	return &trade.ParsedTransaction{
		Swaps: []trade.ParsedSwap{
			{Amm: "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc", InputMint: solMint, InputAmount: "1000000000", OutputMint: usdcMint, OutputAmount: "150000000"},
		},
		ActualOutAmount: "150000000",
	}
}

func resolverWithTokens() *fakeResolver {
	return &fakeResolver{tokens: map[string]token.TokenInfo{
		solMint:  {Address: solMint, Name: "Wrapped SOL", Symbol: "SOL", Decimals: 9},
		usdcMint: {Address: usdcMint, Name: "USD Coin", Symbol: "USDC", Decimals: 6},
	}}
}

func newTestEngine(source *mockSource, resolver TokenResolver, interp trade.Interpreter, sink TradeSink, params Params) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(source, resolver, []trade.Interpreter{interp}, trade.NewFormatter(logger), sink, params, nil, logger)
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return e
}

func TestGetTradeHistory_DedupesAndPreservesOrder(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA", "sigB", "sigA", "sigC")}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{
		"sigA": swapParsed(),
		"sigC": swapParsed(),
	}}

	eng := newTestEngine(source, resolverWithTokens(), interp, nil, Params{})
	trades, err := eng.GetTradeHistory(context.Background(), testWallet)

	require.NoError(t, err)
	require.Len(t, source.batches, 1)
	assert.Equal(t, []string{"sigA", "sigB", "sigC"}, source.batches[0])

	require.Len(t, trades, 2)
	assert.Equal(t, "sigA", trades[0].Signature)
	assert.Equal(t, "sigC", trades[1].Signature)
}

func TestGetTradeHistory_BackoffDelaysAndDegrade(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA")}
	source.fetch = func(call int, signatures []string) ([]*solanasvc.RawTransaction, error) {
		return nil, solanasvc.ErrRateLimited
	}

	eng := newTestEngine(source, resolverWithTokens(), &stubInterpreter{}, nil, Params{
		BackoffBase:     time.Second,
		BackoffCeiling:  10 * time.Second,
		MaxBatchRetries: 5,
	})

	var delays []time.Duration
	eng.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	trades, err := eng.GetTradeHistory(context.Background(), testWallet)
	require.NoError(t, err)
	assert.Empty(t, trades)

	// Doubling from the base, capped at the ceiling.
	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
	}
	assert.Equal(t, want, delays)
	assert.Equal(t, 6, source.fetchCall)
}

func TestGetTradeHistory_RecoversAfterRateLimit(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA")}
	source.fetch = func(call int, signatures []string) ([]*solanasvc.RawTransaction, error) {
		if call == 0 {
			return nil, solanasvc.ErrRateLimited
		}
		return []*solanasvc.RawTransaction{{Signature: "sigA"}}, nil
	}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{"sigA": swapParsed()}}

	eng := newTestEngine(source, resolverWithTokens(), interp, nil, Params{})
	trades, err := eng.GetTradeHistory(context.Background(), testWallet)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 2, source.fetchCall)
}

func TestGetTradeHistory_SkipsFailedAndMissingTransactions(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA", "sigB", "sigC")}
	source.fetch = func(call int, signatures []string) ([]*solanasvc.RawTransaction, error) {
		return []*solanasvc.RawTransaction{
			nil,
			{Signature: "sigB", Failed: true},
			{Signature: "sigC"},
		}, nil
	}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{
		"sigB": swapParsed(),
		"sigC": swapParsed(),
	}}

	eng := newTestEngine(source, resolverWithTokens(), interp, nil, Params{})
	trades, err := eng.GetTradeHistory(context.Background(), testWallet)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "sigC", trades[0].Signature)
}

func TestGetTradeHistory_SinkReceivesEvents(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA", "sigB")}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{
		"sigA": swapParsed(),
		"sigB": swapParsed(),
	}}
	sink := &spySink{}

	eng := newTestEngine(source, resolverWithTokens(), interp, sink, Params{})

	trades, err := eng.GetTradeHistory(context.Background(), testWallet)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Len(t, sink.trades, 2)
	require.Len(t, sink.summaries, 1)
	assert.Equal(t, 2, sink.summaries[0].Trades)
	assert.Equal(t, 2, sink.summaries[0].Transactions)
	assert.Equal(t, testWallet, sink.summaries[0].Wallet)
}

func TestGetTradeHistory_AssemblyFailureEmitsErrorEvent(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA")}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{"sigA": swapParsed()}}
	sink := &spySink{}

	eng := newTestEngine(source, &fakeResolver{tokens: nil}, interp, sink, Params{})
	trades, err := eng.GetTradeHistory(context.Background(), testWallet)

	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Empty(t, sink.trades)
	assert.Equal(t, []string{"sigA"}, sink.errors)
}

func TestGetTradeHistory_PausesBetweenBatches(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigA", "sigB", "sigC")}

	eng := newTestEngine(source, resolverWithTokens(), &stubInterpreter{}, nil, Params{
		BatchSize:  2,
		BatchPause: 500 * time.Millisecond,
	})

	var delays []time.Duration
	eng.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := eng.GetTradeHistory(context.Background(), testWallet)
	require.NoError(t, err)

	require.Len(t, source.batches, 2)
	assert.Equal(t, []string{"sigA", "sigB"}, source.batches[0])
	assert.Equal(t, []string{"sigC"}, source.batches[1])
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, delays)
}

func TestGetTradeHistory_UntilSeedsListingCursor(t *testing.T) {
	source := &mockSource{signatures: sigInfos("sigB", "sigC")}
	interp := &stubInterpreter{trades: map[string]*trade.ParsedTransaction{
		"sigB": swapParsed(),
	}}

	eng := newTestEngine(source, resolverWithTokens(), interp, nil, Params{
		Until: "sigA",
	})
	trades, err := eng.GetTradeHistory(context.Background(), testWallet)

	require.NoError(t, err)
	require.Len(t, trades, 1)

	// The cursor reaches the very first listing call.
	require.NotEmpty(t, source.befores)
	assert.Equal(t, "sigA", source.befores[0])
}

func TestGetTradeHistory_InvalidWallet(t *testing.T) {
	eng := newTestEngine(&mockSource{}, resolverWithTokens(), &stubInterpreter{}, nil, Params{})
	_, err := eng.GetTradeHistory(context.Background(), "not-a-wallet")
	assert.Error(t, err)
}
