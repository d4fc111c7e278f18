// Package web3 holds the chain-selector table: chain definitions loaded from
// YAML, a registry that resolves logical chain names and aliases, the token
// table of each chain, and per-family address validation. Selector values
// must match what the deployed cross-chain programs were configured with.
package web3
