package accounts

import (
	"math"

	"github.com/gagliardetto/solana-go"

	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
)

// TokenAccounts describes one transferred token.
type TokenAccounts struct {
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	PoolProgram  solana.PublicKey
	LookupTable  solana.PublicKey
}

// Context carries everything a schema may consume. Accounts is keyed by role
// (see the Role constants).
type Context struct {
	Selector uint64
	Accounts map[string]solana.PublicKey
	Tokens   []TokenAccounts
}

// AccountList is the ordered output of BuildAccountList.
type AccountList struct {
	Method       codec.Method
	Program      solana.PublicKey
	Accounts     []codec.AccountRef
	TokenIndexes []byte
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithCacheObserver installs a hook invoked on every derivation lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(r *Resolver) { r.observe = fn }
}

// Resolver builds ordered account lists from declared schemas. It is safe for
// concurrent use.
type Resolver struct {
	schemas map[codec.Method]Schema
	cache   *derivationCache
	create  createFunc
	observe func(hit bool)
}

// NewResolver constructs a resolver over the built-in schemas.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		schemas: Schemas(),
		cache:   newDerivationCache(),
		create:  solana.CreateProgramAddress,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Derive returns the program derived address for seeds, memoised.
func (r *Resolver) Derive(seeds [][]byte, program solana.PublicKey) (DerivedAccount, error) {
	key := cacheKey(seeds, program)
	if d, ok := r.cache.get(key); ok {
		r.notify(true)
		return d, nil
	}
	r.notify(false)

	addr, bump, err := deriveWith(r.create, seeds, program)
	if err != nil {
		return DerivedAccount{}, err
	}
	copied := make([][]byte, len(seeds))
	for i, seed := range seeds {
		copied[i] = append([]byte(nil), seed...)
	}
	d := DerivedAccount{Seeds: copied, Program: program, Address: addr, Bump: bump}
	r.cache.put(key, d)
	return d, nil
}

// AssociatedTokenAddress derives the associated token account of wallet for
// mint under tokenProgram.
func (r *Resolver) AssociatedTokenAddress(wallet, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	d, err := r.Derive([][]byte{wallet[:], tokenProgram[:], mint[:]}, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return d.Address, nil
}

// CacheSize reports the number of memoised derivations.
func (r *Resolver) CacheSize() int { return r.cache.len() }

func (r *Resolver) notify(hit bool) {
	if r.observe != nil {
		r.observe(hit)
	}
}

// BuildAccountList resolves the schema of method against ctx. Fixed accounts
// come first in declared order, followed by the token block repeated per
// token; TokenIndexes holds each block's offset within the remaining
// accounts.
func (r *Resolver) BuildAccountList(method codec.Method, ctx Context) (*AccountList, error) {
	schema, ok := r.schemas[method]
	if !ok {
		return nil, xerrors.Newf(codec.CodeUnknownMethod, "no account schema for method %q", method)
	}

	res := &resolution{r: r, ctx: ctx, resolved: map[string]solana.PublicKey{}}
	program, err := res.supplied(schema.Program)
	if err != nil {
		return nil, err
	}

	list := &AccountList{Method: method, Program: program}
	list.Accounts = make([]codec.AccountRef, 0, len(schema.Fixed)+len(schema.Token)*len(ctx.Tokens))
	for _, spec := range schema.Fixed {
		ref, err := res.resolveSpec(spec)
		if err != nil {
			return nil, err
		}
		list.Accounts = append(list.Accounts, ref)
	}

	if len(schema.Token) == 0 {
		return list, nil
	}
	if len(ctx.Tokens)*len(schema.Token) > math.MaxUint8 {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "%d tokens exceed the addressable remaining accounts", len(ctx.Tokens))
	}
	list.TokenIndexes = make([]byte, 0, len(ctx.Tokens))
	for i := range ctx.Tokens {
		if ctx.Tokens[i].Mint.IsZero() {
			return nil, missingAccount("mint")
		}
		list.TokenIndexes = append(list.TokenIndexes, byte(i*len(schema.Token)))
		tokenRes := res.forToken(&ctx.Tokens[i])
		for _, spec := range schema.Token {
			ref, err := tokenRes.resolveSpec(spec)
			if err != nil {
				return nil, err
			}
			list.Accounts = append(list.Accounts, ref)
		}
	}
	return list, nil
}

// resolution is the per-call state of BuildAccountList.
type resolution struct {
	r        *Resolver
	ctx      Context
	resolved map[string]solana.PublicKey
	token    *TokenAccounts
}

func (s *resolution) forToken(t *TokenAccounts) *resolution {
	return &resolution{r: s.r, ctx: s.ctx, resolved: map[string]solana.PublicKey{}, token: t}
}

func (s *resolution) resolveSpec(spec AccountSpec) (codec.AccountRef, error) {
	addr, err := s.lookup(spec)
	if err != nil {
		return codec.AccountRef{}, err
	}
	return codec.AccountRef{Name: spec.Name, Address: addr, IsSigner: spec.Signer, IsWritable: spec.Writable}, nil
}

func (s *resolution) lookup(spec AccountSpec) (solana.PublicKey, error) {
	if addr, ok := s.resolved[spec.Name]; ok {
		return addr, nil
	}
	addr, err := spec.resolve(s)
	if err != nil {
		return solana.PublicKey{}, err
	}
	s.resolved[spec.Name] = addr
	return addr, nil
}

func (s *resolution) supplied(role string) (solana.PublicKey, error) {
	addr, ok := s.ctx.Accounts[role]
	if !ok || addr.IsZero() {
		return solana.PublicKey{}, missingAccount(role)
	}
	return addr, nil
}

func (s *resolution) pda(programRole string, seeds ...[]byte) (solana.PublicKey, error) {
	program, err := s.supplied(programRole)
	if err != nil {
		return solana.PublicKey{}, err
	}
	d, err := s.r.Derive(seeds, program)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return d.Address, nil
}

func (s *resolution) associated(wallet solana.PublicKey, mintRole, programRole string) (solana.PublicKey, error) {
	mint, err := s.supplied(mintRole)
	if err != nil {
		return solana.PublicKey{}, err
	}
	program, err := s.supplied(programRole)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return s.r.AssociatedTokenAddress(wallet, mint, program)
}

func (s *resolution) tokenField(name string, value solana.PublicKey) (solana.PublicKey, error) {
	if value.IsZero() {
		return solana.PublicKey{}, missingAccount(name)
	}
	return value, nil
}

func (s *resolution) tokenPDA(seeds ...[]byte) (solana.PublicKey, error) {
	program, err := s.tokenField("pool_program", s.token.PoolProgram)
	if err != nil {
		return solana.PublicKey{}, err
	}
	d, err := s.r.Derive(seeds, program)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return d.Address, nil
}

func (s *resolution) tokenAssociated(wallet solana.PublicKey) (solana.PublicKey, error) {
	mint, err := s.tokenField("mint", s.token.Mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	program, err := s.tokenField("token_program", s.token.TokenProgram)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return s.r.AssociatedTokenAddress(wallet, mint, program)
}
