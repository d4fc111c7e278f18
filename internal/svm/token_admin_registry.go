package svm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"CCIP-Bridge/internal/ccip/accounts"
	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/web3"
)

const tokenAdminRegistrySeed = "token_admin_registry"

// TokenAdminRegistry is the router account that links a mint to its pool
// lookup table.
type TokenAdminRegistry struct {
	Version              uint8
	Administrator        solana.PublicKey
	PendingAdministrator solana.PublicKey
	LookupTable          solana.PublicKey
	WritableIndexes      [2][16]byte
	Mint                 solana.PublicKey
}

// DecodeTokenAdminRegistry parses the account data, skipping the 8-byte
// account discriminator.
func DecodeTokenAdminRegistry(data []byte) (*TokenAdminRegistry, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("token admin registry is %d bytes", len(data))
	}
	dec := bin.NewBorshDecoder(data[8:])
	var out TokenAdminRegistry
	var err error
	if out.Version, err = dec.ReadUint8(); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	for _, field := range []*solana.PublicKey{&out.Administrator, &out.PendingAdministrator, &out.LookupTable} {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, fmt.Errorf("read token admin registry: %w", err)
		}
		*field = solana.PublicKeyFromBytes(raw)
	}
	for i := range out.WritableIndexes {
		raw, err := dec.ReadNBytes(16)
		if err != nil {
			return nil, fmt.Errorf("read writable indexes: %w", err)
		}
		copy(out.WritableIndexes[i][:], raw)
	}
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, fmt.Errorf("read mint: %w", err)
	}
	out.Mint = solana.PublicKeyFromBytes(raw)
	return &out, nil
}

// LookupTableReader resolves a token's pool lookup table from the router's
// token admin registry. Results are cached per router and mint.
type LookupTableReader struct {
	rpc      RPC
	resolver *accounts.Resolver
	mu       sync.RWMutex
	cache    map[[2]solana.PublicKey]solana.PublicKey
}

// NewLookupTableReader returns a reader backed by client.
func NewLookupTableReader(client RPC, resolver *accounts.Resolver) *LookupTableReader {
	return &LookupTableReader{rpc: client, resolver: resolver, cache: make(map[[2]solana.PublicKey]solana.PublicKey)}
}

// LookupTable implements transfer.LookupTableSource.
func (r *LookupTableReader) LookupTable(ctx context.Context, chain *web3.Chain, mint solana.PublicKey) (solana.PublicKey, error) {
	if chain == nil || chain.Programs == nil {
		return solana.PublicKey{}, xerrors.New(xerrors.CodeInvalidArgument, "chain has no ccip programs")
	}
	key := [2]solana.PublicKey{chain.Programs.Router, mint}
	r.mu.RLock()
	table, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	pda, err := r.resolver.Derive([][]byte{[]byte(tokenAdminRegistrySeed), mint[:]}, chain.Programs.Router)
	if err != nil {
		return solana.PublicKey{}, err
	}
	data, err := r.rpc.AccountData(ctx, pda.Address)
	if errors.Is(err, ErrAccountNotFound) {
		return solana.PublicKey{}, xerrors.Newf(accounts.CodeMissingAccount, "token %s is not registered with router %s", mint, chain.Programs.Router)
	}
	if err != nil {
		return solana.PublicKey{}, err
	}
	registry, err := DecodeTokenAdminRegistry(data)
	if err != nil {
		return solana.PublicKey{}, xerrors.Wrap(accounts.CodeMissingAccount, err, "decode token admin registry")
	}
	if registry.LookupTable.IsZero() {
		return solana.PublicKey{}, xerrors.Newf(accounts.CodeMissingAccount, "token %s has no lookup table", mint)
	}

	r.mu.Lock()
	r.cache[key] = registry.LookupTable
	r.mu.Unlock()
	return registry.LookupTable, nil
}
