package db

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/hopscotch/service/token"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the service. Tokens are the
// persistent tier of mint resolution: once a mint's metadata has been
// fetched from the chain it is kept here so later runs skip the RPC.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Token represents a resolved token in our system.
type Token struct {
	Address     string
	Name        string
	Symbol      string
	Decimals    uint8
	Image       *string
	MetadataURI *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FindMany retrieves the stored tokens among the given addresses.
// Addresses with no stored token are simply absent from the result.
func (s *Store) FindMany(ctx context.Context, addresses []string) ([]token.TokenInfo, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT address, name, symbol, decimals, image, metadata_uri
		FROM tokens
		WHERE address = ANY($1)`,
		addresses,
	)
	if err != nil {
		return nil, fmt.Errorf("query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []token.TokenInfo
	for rows.Next() {
		var (
			info               token.TokenInfo
			image, metadataURI *string
		)
		if err := rows.Scan(&info.Address, &info.Name, &info.Symbol, &info.Decimals, &image, &metadataURI); err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		if image != nil {
			info.Image = *image
		}
		if metadataURI != nil {
			info.MetadataURI = *metadataURI
		}
		tokens = append(tokens, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}
	return tokens, nil
}

// Create persists a token. Idempotent per address: re-storing a known
// mint refreshes its descriptive fields instead of erroring, so repeated
// resolution of the same mint is always safe.
func (s *Store) Create(ctx context.Context, info token.TokenInfo) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tokens (address, name, symbol, decimals, image, metadata_uri)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		ON CONFLICT (address) DO UPDATE SET
			name = EXCLUDED.name,
			symbol = EXCLUDED.symbol,
			decimals = EXCLUDED.decimals,
			image = EXCLUDED.image,
			metadata_uri = EXCLUDED.metadata_uri,
			updated_at = now()`,
		info.Address, info.Name, info.Symbol, info.Decimals, info.Image, info.MetadataURI,
	)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// GetToken retrieves a single token by its mint address.
func (s *Store) GetToken(ctx context.Context, address string) (*Token, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT address, name, symbol, decimals, image, metadata_uri, created_at, updated_at
		FROM tokens
		WHERE address = $1`,
		address,
	)

	var t Token
	err := row.Scan(&t.Address, &t.Name, &t.Symbol, &t.Decimals, &t.Image, &t.MetadataURI, &t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("token %s not found: %w", address, err)
	}
	if err != nil {
		return nil, fmt.Errorf("get token: %w", err)
	}
	return &t, nil
}

// CountTokens counts the stored tokens.
func (s *Store) CountTokens(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM tokens`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tokens: %w", err)
	}
	return count, nil
}

// DeleteToken removes a token by its mint address.
func (s *Store) DeleteToken(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tokens WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
