package accounts

import (
	"encoding/binary"
	"strings"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// derivationCache memoises DeriveAddress. Derivation is a pure function of
// (seeds, program) so entries never expire.
type derivationCache struct {
	mu      sync.RWMutex
	entries map[string]DerivedAccount
}

func newDerivationCache() *derivationCache {
	return &derivationCache{entries: make(map[string]DerivedAccount)}
}

func cacheKey(seeds [][]byte, program solana.PublicKey) string {
	var b strings.Builder
	b.Write(program[:])
	var n [4]byte
	for _, seed := range seeds {
		binary.LittleEndian.PutUint32(n[:], uint32(len(seed)))
		b.Write(n[:])
		b.Write(seed)
	}
	return b.String()
}

func (c *derivationCache) get(key string) (DerivedAccount, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[key]
	return d, ok
}

func (c *derivationCache) put(key string, d DerivedAccount) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = d
}

func (c *derivationCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
