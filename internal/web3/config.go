package web3

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed chains.yaml
var defaultChainsYAML []byte

// ChainDefinitions models the structure of configs/chains.yaml.
type ChainDefinitions struct {
	Chains map[string]ChainDefinition `yaml:"chains"`
}

// ChainDefinition describes a single chain of the selector table.
type ChainDefinition struct {
	Name        string                     `yaml:"name"`
	Aliases     []string                   `yaml:"aliases"`
	Family      string                     `yaml:"family"`
	Selector    uint64                     `yaml:"selector"`
	ChainID     string                     `yaml:"chain_id"`
	RPCURL      string                     `yaml:"rpc_url"`
	RPCURLs     []string                   `yaml:"fallback_rpc_urls"`
	ExplorerURL string                     `yaml:"explorer_url"`
	Cluster     string                     `yaml:"cluster"`
	CCIP        CCIPDefinition             `yaml:"ccip"`
	Tokens      map[string]TokenDefinition `yaml:"tokens"`
	Description string                     `yaml:"description"`
}

// CCIPDefinition lists the protocol programs deployed on a chain.
type CCIPDefinition struct {
	Router    string `yaml:"router"`
	FeeQuoter string `yaml:"fee_quoter"`
	RMNRemote string `yaml:"rmn_remote"`
	LinkMint  string `yaml:"link_mint"`
}

// TokenDefinition describes a transferable token on its source chain.
type TokenDefinition struct {
	Mint         string `yaml:"mint"`
	TokenProgram string `yaml:"token_program"`
	PoolProgram  string `yaml:"pool_program"`
	LookupTable  string `yaml:"lookup_table"`
	Decimals     uint8  `yaml:"decimals"`
}

// DefaultChainDefinitions returns the built-in testnet table.
func DefaultChainDefinitions() (ChainDefinitions, error) {
	return parseChainDefinitions(defaultChainsYAML)
}

// LoadChainDefinitions parses the YAML file containing chain metadata. An
// empty path selects the built-in table.
func LoadChainDefinitions(path string) (ChainDefinitions, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultChainDefinitions()
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return ChainDefinitions{}, fmt.Errorf("读取链配置失败: %w", err)
	}
	return parseChainDefinitions(content)
}

func parseChainDefinitions(content []byte) (ChainDefinitions, error) {
	var defs ChainDefinitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return ChainDefinitions{}, fmt.Errorf("解析链配置失败: %w", err)
	}
	if defs.Chains == nil {
		defs.Chains = map[string]ChainDefinition{}
	}
	return defs, nil
}
