package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/hopscotch/service/metrics"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrRateLimited signals that the upstream RPC endpoint is throttling us.
// Callers are expected to back off and retry; see the retrieval engine.
var ErrRateLimited = errors.New("rpc rate limited")

// getMultipleAccounts is capped server-side; chunk requests accordingly.
const maxAccountsPerFetch = 100

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real nodes.
type RPCClient interface {
	GetSignaturesForAddress(
		ctx context.Context,
		address solana.PublicKey,
		opts *rpc.GetSignaturesForAddressOpts,
	) ([]*rpc.TransactionSignature, error)

	GetTransaction(
		ctx context.Context,
		signature solana.Signature,
		opts *rpc.GetTransactionOpts,
	) (*rpc.GetTransactionResult, error)

	GetMultipleAccounts(
		ctx context.Context,
		accounts []solana.PublicKey,
		opts *rpc.GetMultipleAccountsOpts,
	) (*rpc.GetMultipleAccountsResult, error)
}

// Client wraps the RPC client with the transaction-source and chain
// metadata operations the trade pipeline needs.
type Client struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a new Solana client. If m is nil, no metrics are recorded.
func NewClient(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
	}
}

// ListSignatures returns up to limit signatures for the wallet, newest
// first, optionally starting strictly before a known signature.
func (c *Client) ListSignatures(ctx context.Context, wallet string, limit int, before string) ([]SignatureInfo, error) {
	address, err := solana.PublicKeyFromBase58(wallet)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address %q: %w", wallet, err)
	}

	opts := &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	}
	if before != "" {
		sig, err := solana.SignatureFromBase58(before)
		if err != nil {
			return nil, fmt.Errorf("invalid before signature %q: %w", before, err)
		}
		opts.Before = sig
	}

	start := time.Now()
	signatures, err := c.rpc.GetSignaturesForAddress(ctx, address, opts)
	c.recordRPC("GetSignaturesForAddress", err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("list signatures for %s: %w", wallet, wrapRateLimit(err))
	}

	c.logger.DebugContext(ctx, "fetched signature listing",
		"wallet", wallet,
		"count", len(signatures),
	)

	out := make([]SignatureInfo, 0, len(signatures))
	for _, sig := range signatures {
		out = append(out, SignatureInfo{
			Signature: sig.Signature.String(),
			Slot:      sig.Slot,
		})
	}
	return out, nil
}

// FetchParsedBatch fetches full transactions for the given signatures.
// The result is aligned index-for-index with the input; entries that could
// not be fetched or decoded are nil. A rate-limit response aborts the whole
// batch with ErrRateLimited so the caller can back off and retry it.
func (c *Client) FetchParsedBatch(ctx context.Context, signatures []string) ([]*RawTransaction, error) {
	maxVersion := uint64(0)
	opts := &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	}

	out := make([]*RawTransaction, len(signatures))
	for i, sigStr := range signatures {
		sig, err := solana.SignatureFromBase58(sigStr)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed signature", "signature", sigStr, "error", err)
			continue
		}

		start := time.Now()
		result, err := c.rpc.GetTransaction(ctx, sig, opts)
		c.recordRPC("GetTransaction", err, time.Since(start))
		if err != nil {
			if isRateLimited(err) {
				return nil, fmt.Errorf("fetch transaction %s: %w", sigStr, ErrRateLimited)
			}
			c.logger.WarnContext(ctx, "failed to fetch transaction", "signature", sigStr, "error", err)
			continue
		}
		if result == nil {
			continue
		}

		raw, err := rawTransactionFromResult(sigStr, result)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to decode transaction", "signature", sigStr, "error", err)
			continue
		}
		out[i] = raw
	}
	return out, nil
}

// FetchMintDecimals fetches the decimals field of the given mint accounts.
// The result is a partial map: mints whose account is missing or not a
// valid mint are absent. A one-byte data slice at the decimals offset
// (COption mint authority 36 bytes + supply 8 bytes) keeps responses small.
func (c *Client) FetchMintDecimals(ctx context.Context, mints []string) (map[string]uint8, error) {
	keys := make([]solana.PublicKey, 0, len(mints))
	ordered := make([]string, 0, len(mints))
	for _, mint := range mints {
		key, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			c.logger.WarnContext(ctx, "skipping malformed mint address", "mint", mint, "error", err)
			continue
		}
		keys = append(keys, key)
		ordered = append(ordered, mint)
	}

	offset := uint64(44)
	length := uint64(1)
	opts := &rpc.GetMultipleAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		DataSlice:  &rpc.DataSlice{Offset: &offset, Length: &length},
	}

	decimals := make(map[string]uint8, len(ordered))
	for start := 0; start < len(keys); start += maxAccountsPerFetch {
		end := min(start+maxAccountsPerFetch, len(keys))

		callStart := time.Now()
		result, err := c.rpc.GetMultipleAccounts(ctx, keys[start:end], opts)
		c.recordRPC("GetMultipleAccounts", err, time.Since(callStart))
		if err != nil {
			return nil, fmt.Errorf("fetch mint decimals: %w", wrapRateLimit(err))
		}

		for i, account := range result.Value {
			if account == nil || account.Data == nil {
				continue
			}
			data := account.Data.GetBinary()
			if len(data) < 1 {
				continue
			}
			decimals[ordered[start+i]] = data[0]
		}
	}
	return decimals, nil
}

func (c *Client) recordRPC(method string, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		if isRateLimited(err) {
			c.metrics.RecordRateLimitHit(method)
		}
	}
	c.metrics.RecordRPCCall(method, status, elapsed.Seconds())
}

// isRateLimited reports whether the RPC error is an HTTP 429 throttle.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrRateLimited) || strings.Contains(err.Error(), "429")
}

func wrapRateLimit(err error) error {
	if isRateLimited(err) && !errors.Is(err, ErrRateLimited) {
		return fmt.Errorf("%v: %w", err, ErrRateLimited)
	}
	return err
}
