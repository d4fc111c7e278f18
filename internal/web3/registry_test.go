package web3

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	reg, err := LoadRegistry("")
	require.NoError(t, err)

	for _, name := range []string{"EthereumSepolia", "Ethereum Sepolia", "ethereum-sepolia", "sepolia"} {
		chain, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, uint64(16015286601757825753), chain.Selector)
		assert.Equal(t, FamilyEVM, chain.Family)
	}

	solanaChain, ok := reg.Lookup("Solana")
	require.True(t, ok)
	assert.Equal(t, uint64(16423721717087811551), solanaChain.Selector)
	assert.Equal(t, FamilySVM, solanaChain.Family)
	assert.Equal(t, "https://api.devnet.solana.com", solanaChain.RPCURL())
	require.NotNil(t, solanaChain.Programs)
	assert.Equal(t, "Ccip842gzYHhvdDkSyi2YVCoAWPbYJoApMFzSxQroE9C", solanaChain.Programs.Router.String())

	token, ok := solanaChain.Token("bnm")
	require.True(t, ok)
	assert.Equal(t, "BnM", token.Symbol)
	byMint, ok := solanaChain.Token(token.Mint.String())
	require.True(t, ok)
	assert.Equal(t, token, byMint)

	_, ok = reg.Lookup("Polygon Amoy")
	assert.False(t, ok)

	bySelector, ok := reg.BySelector(16015286601757825753)
	require.True(t, ok)
	assert.Equal(t, "ethereum-sepolia", bySelector.Key)
	assert.Len(t, reg.Chains(), 2)
}

func TestLoadRegistryFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	content := `chains:
  local-svm:
    family: svm
    selector: 42
    rpc_url: http://127.0.0.1:8899
    fallback_rpc_urls: [http://127.0.0.1:8900]
    ccip:
      router: Ccip842gzYHhvdDkSyi2YVCoAWPbYJoApMFzSxQroE9C
      fee_quoter: FeeQPGkKDeRV1MgoYfMH6L8o3KeuYjwUZrgn4LRKfjHi
      rmn_remote: RmnXLft1mSEwDgMKu2okYuHkiazxntFFcZFrrcXxYg7
      link_mint: LinkhB3afbBKb2EQQu7s7umdZceV3wcvAUJhQAfQ23L
    tokens:
      TKN:
        mint: So11111111111111111111111111111111111111112
        pool_program: 41FGToCmdaWa1dgZLKFAjvmx6e6AjVTX7SVRibvsMGVB
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	chain, ok := reg.Lookup("local_svm")
	require.True(t, ok)
	assert.Equal(t, "local-svm", chain.Name)
	assert.Equal(t, []string{"http://127.0.0.1:8899", "http://127.0.0.1:8900"}, chain.RPCURLs)
	token, ok := chain.Token("TKN")
	require.True(t, ok)
	assert.Equal(t, solana.TokenProgramID, token.TokenProgram)
	assert.True(t, token.LookupTable.IsZero())
}

func TestNewRegistryRejectsInvalidTables(t *testing.T) {
	cases := map[string]ChainDefinitions{
		"empty": {},
		"zero selector": {Chains: map[string]ChainDefinition{
			"a": {Family: "evm"},
		}},
		"duplicate selector": {Chains: map[string]ChainDefinition{
			"a": {Family: "evm", Selector: 1},
			"b": {Family: "evm", Selector: 1},
		}},
		"alias collision": {Chains: map[string]ChainDefinition{
			"a": {Family: "evm", Selector: 1, Aliases: []string{"shared"}},
			"b": {Family: "evm", Selector: 2, Aliases: []string{"Shared"}},
		}},
		"unknown family": {Chains: map[string]ChainDefinition{
			"a": {Family: "move", Selector: 1},
		}},
		"svm without router": {Chains: map[string]ChainDefinition{
			"a": {Family: "svm", Selector: 1},
		}},
	}
	for name, defs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegistry(defs)
			assert.Error(t, err)
		})
	}
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(FamilyEVM, "0x4aEe2a3F2E2B5cD8B51C0fF5A6d3D5d3B6b4cABb"))
	assert.Error(t, ValidateAddress(FamilyEVM, "0x1234"))
	assert.Error(t, ValidateAddress(FamilyEVM, ""))
	assert.NoError(t, ValidateAddress(FamilySVM, "So11111111111111111111111111111111111111112"))
	assert.Error(t, ValidateAddress(FamilySVM, "0x4aEe2a3F2E2B5cD8B51C0fF5A6d3D5d3B6b4cABb"))
}

func TestEncodeReceiver(t *testing.T) {
	out, err := EncodeReceiver(FamilyEVM, "0x4aEe2a3F2E2B5cD8B51C0fF5A6d3D5d3B6b4cABb")
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, make([]byte, 12), out[:12])
	assert.Equal(t, byte(0x4a), out[12])
	assert.Equal(t, byte(0xbb), out[31])

	_, err = EncodeReceiver(FamilyEVM, "not-an-address")
	assert.Error(t, err)
}
