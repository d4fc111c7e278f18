package web3

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/gagliardetto/solana-go"
)

// Chain is a validated entry of the selector table.
type Chain struct {
	Key         string
	Name        string
	Aliases     []string
	Family      Family
	Selector    uint64
	ChainID     string
	RPCURLs     []string
	ExplorerURL string
	Cluster     string
	Programs    *Programs
	Tokens      []Token
}

// Programs holds parsed CCIP program addresses for an SVM chain.
type Programs struct {
	Router    solana.PublicKey
	FeeQuoter solana.PublicKey
	RMNRemote solana.PublicKey
	LinkMint  solana.PublicKey
}

// Token is a parsed token table entry.
type Token struct {
	Symbol       string
	Mint         solana.PublicKey
	TokenProgram solana.PublicKey
	PoolProgram  solana.PublicKey
	LookupTable  solana.PublicKey
	Decimals     uint8
}

// RPCURL returns the primary endpoint.
func (c *Chain) RPCURL() string {
	if c == nil || len(c.RPCURLs) == 0 {
		return ""
	}
	return c.RPCURLs[0]
}

// Token resolves a token by symbol (case insensitive) or mint address.
func (c *Chain) Token(identifier string) (Token, bool) {
	if c == nil {
		return Token{}, false
	}
	identifier = strings.TrimSpace(identifier)
	for _, t := range c.Tokens {
		if strings.EqualFold(t.Symbol, identifier) || t.Mint.String() == identifier {
			return t, true
		}
	}
	return Token{}, false
}

// Registry resolves logical chain names to table entries.
type Registry struct {
	chains  map[string]*Chain
	aliases map[string]string
}

// LoadRegistry reads the chain table at path (empty for the built-in one).
func LoadRegistry(path string) (*Registry, error) {
	defs, err := LoadChainDefinitions(path)
	if err != nil {
		return nil, err
	}
	return NewRegistry(defs)
}

// NewRegistry validates definitions and indexes them by key, display name and
// aliases.
func NewRegistry(defs ChainDefinitions) (*Registry, error) {
	if len(defs.Chains) == 0 {
		return nil, errors.New("未配置任何链")
	}

	r := &Registry{chains: make(map[string]*Chain), aliases: make(map[string]string)}
	selectors := make(map[uint64]string)

	keys := make([]string, 0, len(defs.Chains))
	for key := range defs.Chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		chain, err := buildChain(key, defs.Chains[key])
		if err != nil {
			return nil, fmt.Errorf("初始化链 %s 失败: %w", key, err)
		}
		if other, ok := selectors[chain.Selector]; ok {
			return nil, fmt.Errorf("链 %s 与 %s 使用了相同的 selector %d", key, other, chain.Selector)
		}
		selectors[chain.Selector] = key
		r.chains[key] = chain

		for _, name := range append([]string{key, chain.Name}, chain.Aliases...) {
			norm := normalizeName(name)
			if norm == "" {
				continue
			}
			if existing, ok := r.aliases[norm]; ok && existing != key {
				return nil, fmt.Errorf("链名称 %s 同时指向 %s 与 %s", name, existing, key)
			}
			r.aliases[norm] = key
		}
	}
	return r, nil
}

func buildChain(key string, def ChainDefinition) (*Chain, error) {
	family, err := ParseFamily(def.Family)
	if err != nil {
		return nil, err
	}
	if def.Selector == 0 {
		return nil, errors.New("selector 不能为空")
	}
	chain := &Chain{
		Key:         key,
		Name:        strings.TrimSpace(def.Name),
		Aliases:     def.Aliases,
		Family:      family,
		Selector:    def.Selector,
		ChainID:     def.ChainID,
		ExplorerURL: strings.TrimRight(def.ExplorerURL, "/"),
		Cluster:     def.Cluster,
	}
	if chain.Name == "" {
		chain.Name = key
	}
	if url := strings.TrimSpace(def.RPCURL); url != "" {
		chain.RPCURLs = append(chain.RPCURLs, url)
	}
	for _, url := range def.RPCURLs {
		if url = strings.TrimSpace(url); url != "" {
			chain.RPCURLs = append(chain.RPCURLs, url)
		}
	}

	if family != FamilySVM {
		if len(def.Tokens) > 0 {
			return nil, errors.New("仅 SVM 链支持配置 tokens")
		}
		return chain, nil
	}

	programs := &Programs{}
	fields := []struct {
		name  string
		value string
		dst   *solana.PublicKey
	}{
		{"ccip.router", def.CCIP.Router, &programs.Router},
		{"ccip.fee_quoter", def.CCIP.FeeQuoter, &programs.FeeQuoter},
		{"ccip.rmn_remote", def.CCIP.RMNRemote, &programs.RMNRemote},
		{"ccip.link_mint", def.CCIP.LinkMint, &programs.LinkMint},
	}
	for _, f := range fields {
		if err := parseKey(f.name, f.value, f.dst, true); err != nil {
			return nil, err
		}
	}
	chain.Programs = programs

	symbols := make([]string, 0, len(def.Tokens))
	for symbol := range def.Tokens {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		td := def.Tokens[symbol]
		token := Token{Symbol: symbol, Decimals: td.Decimals}
		if err := parseKey(symbol+".mint", td.Mint, &token.Mint, true); err != nil {
			return nil, err
		}
		if err := parseKey(symbol+".token_program", td.TokenProgram, &token.TokenProgram, false); err != nil {
			return nil, err
		}
		if token.TokenProgram.IsZero() {
			token.TokenProgram = solana.TokenProgramID
		}
		if err := parseKey(symbol+".pool_program", td.PoolProgram, &token.PoolProgram, true); err != nil {
			return nil, err
		}
		if err := parseKey(symbol+".lookup_table", td.LookupTable, &token.LookupTable, false); err != nil {
			return nil, err
		}
		chain.Tokens = append(chain.Tokens, token)
	}
	return chain, nil
}

func parseKey(name, value string, dst *solana.PublicKey, required bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return fmt.Errorf("%s 不能为空", name)
		}
		return nil
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return fmt.Errorf("%s 不是合法的地址: %w", name, err)
	}
	*dst = key
	return nil
}

// normalizeName folds case and drops separators so "Ethereum Sepolia",
// "ethereum-sepolia" and "EthereumSepolia" resolve identically.
func normalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Lookup returns the chain registered under name or one of its aliases.
func (r *Registry) Lookup(name string) (*Chain, bool) {
	if r == nil {
		return nil, false
	}
	key, ok := r.aliases[normalizeName(name)]
	if !ok {
		return nil, false
	}
	return r.chains[key], true
}

// BySelector returns the chain with the given selector.
func (r *Registry) BySelector(selector uint64) (*Chain, bool) {
	if r == nil {
		return nil, false
	}
	for _, chain := range r.chains {
		if chain.Selector == selector {
			return chain, true
		}
	}
	return nil, false
}

// Chains returns every registered chain ordered by key.
func (r *Registry) Chains() []*Chain {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.chains))
	for key := range r.chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make([]*Chain, 0, len(keys))
	for _, key := range keys {
		out = append(out, r.chains[key])
	}
	return out
}
