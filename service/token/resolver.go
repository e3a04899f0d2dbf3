package token

import (
	"context"
	"log/slog"

	"github.com/brojonat/hopscotch/service/metrics"
	solanasvc "github.com/brojonat/hopscotch/service/solana"
)

// Store is the persistent tier of token resolution.
type Store interface {
	// FindMany returns the stored tokens among the given addresses;
	// unknown addresses are simply absent from the result.
	FindMany(ctx context.Context, addresses []string) ([]TokenInfo, error)

	// Create persists a token. It is idempotent per address: storing a
	// mint twice is a no-op, never an error worth failing a batch over.
	Create(ctx context.Context, info TokenInfo) error
}

// DecimalsSource fetches on-chain mint decimals in bulk.
type DecimalsSource interface {
	FetchMintDecimals(ctx context.Context, mints []string) (map[string]uint8, error)
}

// MetadataSource fetches descriptive metadata (name/symbol/URI) in bulk.
type MetadataSource interface {
	FetchDescriptiveMetadata(ctx context.Context, mints []string) (map[string]solanasvc.TokenMetadata, error)
}

// Resolution is one resolved token plus where it came from and whether
// it made it into the persistent store. Callers that care about
// durability can distinguish resolved-and-persisted from
// resolved-but-unpersisted instead of losing that outcome.
type Resolution struct {
	TokenInfo
	Source    string // "memory", "store", "chain", or "fallback"
	Persisted bool
}

// Resolver resolves mint addresses to display metadata through three
// tiers: the injected memory cache, the persistent store, and the chain.
// Fallback tokens (decimals known, no descriptive metadata) are returned
// but never persisted; they may gain real metadata later.
type Resolver struct {
	cache    *Cache
	store    Store
	chain    DecimalsSource
	metadata MetadataSource
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewResolver creates a resolver. store may be nil (no persistent tier);
// m may be nil (no metrics).
func NewResolver(cache *Cache, store Store, chain DecimalsSource, metadata MetadataSource, m *metrics.Metrics, logger *slog.Logger) *Resolver {
	return &Resolver{
		cache:    cache,
		store:    store,
		chain:    chain,
		metadata: metadata,
		logger:   logger,
		metrics:  m,
	}
}

// Resolve returns a Resolution for every requested mint whose decimals
// could be determined; mints without decodable decimals are absent.
// Lookups short-circuit per mint: memory, then one batched store query,
// then a bulk chain fetch for whatever remains.
func (r *Resolver) Resolve(ctx context.Context, mints []string) (map[string]Resolution, error) {
	result := make(map[string]Resolution, len(mints))

	unique := dedupe(mints)
	var missing []string
	for _, mint := range unique {
		if res, ok := r.cache.Get(mint); ok {
			res.Source = "memory"
			result[mint] = res
			continue
		}
		missing = append(missing, mint)
	}
	r.record("memory", len(unique)-len(missing))
	if len(missing) == 0 {
		return result, nil
	}

	missing = r.resolveFromStore(ctx, missing, result)
	if len(missing) == 0 {
		return result, nil
	}

	r.resolveFromChain(ctx, missing, result)
	return result, nil
}

// resolveFromStore fills result from the persistent store and returns the
// addresses still unresolved.
func (r *Resolver) resolveFromStore(ctx context.Context, addresses []string, result map[string]Resolution) []string {
	if r.store == nil {
		return addresses
	}

	stored, err := r.store.FindMany(ctx, addresses)
	if err != nil {
		r.logger.WarnContext(ctx, "token store lookup failed", "count", len(addresses), "error", err)
		return addresses
	}
	for _, info := range stored {
		res := Resolution{TokenInfo: info, Source: "store", Persisted: true}
		result[info.Address] = res
		r.cache.Put(res)
	}
	r.record("store", len(stored))

	var missing []string
	for _, addr := range addresses {
		if _, ok := result[addr]; !ok {
			missing = append(missing, addr)
		}
	}
	return missing
}

// resolveFromChain fetches decimals and descriptive metadata for the
// given mints. Mints without decodable decimals are dropped entirely:
// defaulting their precision would silently misrepresent every amount.
func (r *Resolver) resolveFromChain(ctx context.Context, addresses []string, result map[string]Resolution) {
	decimals, err := r.chain.FetchMintDecimals(ctx, addresses)
	if err != nil {
		r.logger.WarnContext(ctx, "chain decimals fetch failed", "count", len(addresses), "error", err)
		return
	}

	withDecimals := make([]string, 0, len(decimals))
	for _, addr := range addresses {
		if _, ok := decimals[addr]; ok {
			withDecimals = append(withDecimals, addr)
		} else {
			r.logger.WarnContext(ctx, "no decimals for mint, dropping", "mint", addr)
		}
	}
	r.record("dropped", len(addresses)-len(withDecimals))
	if len(withDecimals) == 0 {
		return
	}

	descriptive, err := r.metadata.FetchDescriptiveMetadata(ctx, withDecimals)
	if err != nil {
		r.logger.WarnContext(ctx, "descriptive metadata fetch failed", "count", len(withDecimals), "error", err)
		descriptive = nil
	}

	var resolved, fallbacks int
	for _, addr := range withDecimals {
		meta, ok := descriptive[addr]
		if !ok {
			// Decimals but no metadata account: synthesize a display-only
			// token. Not persisted, so it can gain real metadata later.
			result[addr] = Resolution{
				TokenInfo: TokenInfo{
					Address:  addr,
					Name:     "Unknown Token",
					Symbol:   shortAddress(addr),
					Decimals: decimals[addr],
				},
				Source: "fallback",
			}
			fallbacks++
			continue
		}

		info := TokenInfo{
			Address:     addr,
			Name:        meta.Name,
			Symbol:      meta.Symbol,
			Decimals:    decimals[addr],
			MetadataURI: meta.URI,
		}
		resolution := Resolution{TokenInfo: info, Source: "chain"}
		if r.store != nil {
			if err := r.store.Create(ctx, info); err != nil {
				r.logger.WarnContext(ctx, "failed to persist token", "mint", addr, "error", err)
			} else {
				resolution.Persisted = true
			}
		}
		result[addr] = resolution
		r.cache.Put(resolution)
		resolved++
	}
	r.record("chain", resolved)
	r.record("fallback", fallbacks)

	r.logger.DebugContext(ctx, "resolved tokens from chain",
		"resolved", resolved,
		"fallbacks", fallbacks,
	)
}

func (r *Resolver) record(source string, count int) {
	if r.metrics != nil && count > 0 {
		r.metrics.RecordTokenResolution(source, count)
	}
}

// TokenInfos strips resolution provenance, leaving just the display data.
func TokenInfos(resolutions map[string]Resolution) map[string]TokenInfo {
	out := make(map[string]TokenInfo, len(resolutions))
	for addr, res := range resolutions {
		out[addr] = res.TokenInfo
	}
	return out
}

func dedupe(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// shortAddress renders a mint as its first and last four characters,
// the synthetic symbol for tokens without metadata.
func shortAddress(address string) string {
	if len(address) <= 8 {
		return address
	}
	return address[:4] + "..." + address[len(address)-4:]
}
