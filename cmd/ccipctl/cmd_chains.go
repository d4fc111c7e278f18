package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"CCIP-Bridge/internal/api"
	"CCIP-Bridge/internal/web3"
	"CCIP-Bridge/sdk/go/ccip"
)

func init() {
	var offline bool
	chainsCmd := &cobra.Command{
		Use:   "chains",
		Short: "List supported chains and transferable tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if offline {
				cfg, err := loadCfg()
				if err != nil {
					return err
				}
				registry, err := web3.LoadRegistry(cfg.Chains.Path)
				if err != nil {
					return err
				}
				chains := offlineChains(registry)
				if flagOutput == "json" {
					return printJSON(out, chains)
				}
				printChains(out, chains)
				return nil
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			chains, err := client.ListChains(cmd.Context())
			if err != nil {
				return err
			}
			if flagOutput == "json" {
				return printJSON(out, chains)
			}
			printChains(out, chains)
			return nil
		},
	}
	chainsCmd.Flags().BoolVar(&offline, "offline", false, "Read the local chain table instead of querying ccipd")
	rootCmd.AddCommand(chainsCmd)
}

func printChains(w io.Writer, chains []ccip.Chain) {
	for _, c := range chains {
		fmt.Fprintf(w, "%-20s %-4s %-22d %s\n", c.Key, c.Family, c.Selector, c.Name)
		for _, t := range c.Tokens {
			fmt.Fprintf(w, "    %-8s %s (%d decimals)\n", t.Symbol, t.Mint, t.Decimals)
		}
	}
}

// offlineChains converts the local chain table into the shape ccipd serves.
func offlineChains(registry *web3.Registry) []ccip.Chain {
	views := api.ChainViews(registry)
	chains := make([]ccip.Chain, 0, len(views))
	for _, v := range views {
		c := ccip.Chain{
			Key:      v.Key,
			Name:     v.Name,
			Aliases:  v.Aliases,
			Family:   v.Family,
			Selector: v.Selector,
			ChainID:  v.ChainID,
		}
		for _, t := range v.Tokens {
			c.Tokens = append(c.Tokens, ccip.Token(t))
		}
		chains = append(chains, c)
	}
	return chains
}
