package solana

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/hopscotch/service/metrics"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TokenMetadata is the descriptive (non-financial) metadata of a mint,
// read from its Metaplex token metadata account.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// metadataAccount is the borsh prefix of a Metaplex token metadata
// account. Fields after URI (fees, creators, flags) are not decoded.
type metadataAccount struct {
	Key             uint8
	UpdateAuthority solana.PublicKey
	Mint            solana.PublicKey
	Name            string
	Symbol          string
	URI             string
}

// MetadataSource fetches descriptive metadata for mints from their
// Metaplex metadata PDAs. Separate from Client so the resolver can be
// given a different metadata backend without touching the RPC wrapper.
type MetadataSource struct {
	rpc     RPCClient
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewMetadataSource creates a chain-backed metadata source sharing the
// given RPC client. If m is nil, no metrics are recorded.
func NewMetadataSource(rpcClient RPCClient, m *metrics.Metrics, logger *slog.Logger) *MetadataSource {
	return &MetadataSource{
		rpc:     rpcClient,
		logger:  logger,
		metrics: m,
	}
}

// FetchDescriptiveMetadata resolves name/symbol/URI for the given mints.
// The result is a partial map: mints without a metadata account, or whose
// account does not decode, are simply absent.
func (s *MetadataSource) FetchDescriptiveMetadata(ctx context.Context, mints []string) (map[string]TokenMetadata, error) {
	pdas := make([]solana.PublicKey, 0, len(mints))
	ordered := make([]string, 0, len(mints))
	for _, mint := range mints {
		key, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping malformed mint address", "mint", mint, "error", err)
			continue
		}
		pda, _, err := solana.FindTokenMetadataAddress(key)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to derive metadata address", "mint", mint, "error", err)
			continue
		}
		pdas = append(pdas, pda)
		ordered = append(ordered, mint)
	}

	opts := &rpc.GetMultipleAccountsOpts{Commitment: rpc.CommitmentConfirmed}

	out := make(map[string]TokenMetadata, len(ordered))
	for start := 0; start < len(pdas); start += maxAccountsPerFetch {
		end := min(start+maxAccountsPerFetch, len(pdas))

		callStart := time.Now()
		result, err := s.rpc.GetMultipleAccounts(ctx, pdas[start:end], opts)
		if s.metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			s.metrics.RecordRPCCall("GetMultipleAccounts", status, time.Since(callStart).Seconds())
		}
		if err != nil {
			return nil, fmt.Errorf("fetch token metadata accounts: %w", wrapRateLimit(err))
		}

		for i, account := range result.Value {
			if account == nil || account.Data == nil {
				continue
			}
			meta, err := decodeMetadataAccount(account.Data.GetBinary())
			if err != nil {
				s.logger.DebugContext(ctx, "undecodable metadata account",
					"mint", ordered[start+i],
					"error", err,
				)
				continue
			}
			out[ordered[start+i]] = meta
		}
	}
	return out, nil
}

// decodeMetadataAccount decodes the leading fields of a Metaplex metadata
// account. Strings are fixed-capacity on chain and NUL padded.
func decodeMetadataAccount(data []byte) (TokenMetadata, error) {
	var account metadataAccount
	if err := bin.NewBorshDecoder(data).Decode(&account); err != nil {
		return TokenMetadata{}, err
	}
	return TokenMetadata{
		Name:   strings.TrimRight(account.Name, "\x00"),
		Symbol: strings.TrimRight(account.Symbol, "\x00"),
		URI:    strings.TrimRight(account.URI, "\x00"),
	}, nil
}
