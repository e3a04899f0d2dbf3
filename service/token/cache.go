package token

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TokenInfo is the display metadata of a mint. Decimals is load-bearing:
// without it raw amounts cannot be scaled, so a TokenInfo never exists
// for a mint whose decimals could not be determined.
type TokenInfo struct {
	Address     string `json:"address"`
	Name        string `json:"name,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	Decimals    uint8  `json:"decimals"`
	Image       string `json:"image,omitempty"`
	MetadataURI string `json:"metadata_uri,omitempty"`
}

// Cache is the process-memory tier of token resolution. It is an
// explicit component injected into the resolver so its lifecycle and
// capacity are visible, with LRU eviction keyed by mint address. It
// holds whole resolutions, not bare token info, so the persisted flag
// survives the memory tier.
type Cache struct {
	entries *lru.Cache[string, Resolution]
}

// NewCache creates a cache bounded to the given number of tokens.
func NewCache(capacity int) (*Cache, error) {
	entries, err := lru.New[string, Resolution](capacity)
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the cached resolution for a mint address, if present.
func (c *Cache) Get(address string) (Resolution, bool) {
	return c.entries.Get(address)
}

// Put stores a resolution under its mint address. Concurrent puts for
// the same mint race safely: the data is immutable-by-convention once
// fetched, so last-writer-wins is fine.
func (c *Cache) Put(res Resolution) {
	c.entries.Add(res.Address, res)
}

// Len returns the number of cached tokens.
func (c *Cache) Len() int {
	return c.entries.Len()
}
