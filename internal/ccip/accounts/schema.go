package accounts

import (
	"github.com/gagliardetto/solana-go"

	"CCIP-Bridge/internal/ccip/codec"
)

// AccountSpec declares one slot of an instruction's account list.
type AccountSpec struct {
	Name     string
	Signer   bool
	Writable bool
	resolve  func(*resolution) (solana.PublicKey, error)
}

// Schema is the declared account layout of one method. Token entries are
// repeated for every token in the context and appended after the fixed ones.
type Schema struct {
	Method  codec.Method
	Program string
	Fixed   []AccountSpec
	Token   []AccountSpec
}

func supplied(role string) func(*resolution) (solana.PublicKey, error) {
	return func(r *resolution) (solana.PublicKey, error) { return r.supplied(role) }
}

func constant(key solana.PublicKey) func(*resolution) (solana.PublicKey, error) {
	return func(*resolution) (solana.PublicKey, error) { return key, nil }
}

var routerConfig = AccountSpec{Name: "config", resolve: func(r *resolution) (solana.PublicKey, error) {
	return r.pda(RoleRouter, []byte(seedConfig))
}}

var destChainState = AccountSpec{Name: "dest_chain_state", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
	return r.pda(RoleRouter, []byte(seedDestChainState), SelectorSeed(r.ctx.Selector))
}}

var feeQuoterAccounts = []AccountSpec{
	{Name: "fee_quoter", resolve: supplied(RoleFeeQuoter)},
	{Name: "fee_quoter_config", resolve: func(r *resolution) (solana.PublicKey, error) {
		return r.pda(RoleFeeQuoter, []byte(seedConfig))
	}},
	{Name: "fee_quoter_dest_chain", resolve: func(r *resolution) (solana.PublicKey, error) {
		return r.pda(RoleFeeQuoter, []byte(seedDestChain), SelectorSeed(r.ctx.Selector))
	}},
	{Name: "fee_quoter_billing_token_config", resolve: func(r *resolution) (solana.PublicKey, error) {
		mint, err := r.supplied(RoleFeeTokenMint)
		if err != nil {
			return solana.PublicKey{}, err
		}
		return r.pda(RoleFeeQuoter, []byte(seedFeeBillingTokenConfig), mint[:])
	}},
	{Name: "fee_quoter_link_token_config", resolve: func(r *resolution) (solana.PublicKey, error) {
		mint, err := r.supplied(RoleLinkMint)
		if err != nil {
			return solana.PublicKey{}, err
		}
		return r.pda(RoleFeeQuoter, []byte(seedFeeBillingTokenConfig), mint[:])
	}},
}

func ccipSendSchema() Schema {
	fixed := []AccountSpec{
		routerConfig,
		destChainState,
		{Name: "nonce", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			authority, err := r.supplied(RoleAuthority)
			if err != nil {
				return solana.PublicKey{}, err
			}
			return r.pda(RoleRouter, []byte(seedNonce), SelectorSeed(r.ctx.Selector), authority[:])
		}},
		{Name: "authority", Signer: true, Writable: true, resolve: supplied(RoleAuthority)},
		{Name: "system_program", resolve: constant(solana.SystemProgramID)},
		{Name: "fee_token_program", resolve: supplied(RoleFeeTokenProgram)},
		{Name: "fee_token_mint", resolve: supplied(RoleFeeTokenMint)},
		{Name: "fee_token_user_associated_account", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			authority, err := r.supplied(RoleAuthority)
			if err != nil {
				return solana.PublicKey{}, err
			}
			return r.associated(authority, RoleFeeTokenMint, RoleFeeTokenProgram)
		}},
		{Name: "fee_token_receiver", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			signer, err := r.pda(RoleRouter, []byte(seedFeeBillingSigner))
			if err != nil {
				return solana.PublicKey{}, err
			}
			return r.associated(signer, RoleFeeTokenMint, RoleFeeTokenProgram)
		}},
		{Name: "fee_billing_signer", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleRouter, []byte(seedFeeBillingSigner))
		}},
	}
	fixed = append(fixed, feeQuoterAccounts...)
	fixed = append(fixed,
		AccountSpec{Name: "rmn_remote", resolve: supplied(RoleRMNRemote)},
		AccountSpec{Name: "rmn_remote_curses", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleRMNRemote, []byte(seedCurses))
		}},
		AccountSpec{Name: "rmn_remote_config", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleRMNRemote, []byte(seedConfig))
		}},
	)

	token := []AccountSpec{
		{Name: "user_token_account", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			authority, err := r.supplied(RoleAuthority)
			if err != nil {
				return solana.PublicKey{}, err
			}
			return r.tokenAssociated(authority)
		}},
		{Name: "token_billing_config", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleFeeQuoter, []byte(seedPerChainPerTokenConfig), SelectorSeed(r.ctx.Selector), r.token.Mint[:])
		}},
		{Name: "pool_chain_config", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenPDA([]byte(seedTokenPoolChainConfig), SelectorSeed(r.ctx.Selector), r.token.Mint[:])
		}},
		{Name: "lookup_table", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenField("lookup_table", r.token.LookupTable)
		}},
		{Name: "token_admin_registry", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleRouter, []byte(seedTokenAdminRegistry), r.token.Mint[:])
		}},
		{Name: "pool_program", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenField("pool_program", r.token.PoolProgram)
		}},
		{Name: "pool_config", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenPDA([]byte(seedTokenPoolConfig), r.token.Mint[:])
		}},
		{Name: "pool_token_account", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			signer, err := r.tokenPDA([]byte(seedTokenPoolSigner), r.token.Mint[:])
			if err != nil {
				return solana.PublicKey{}, err
			}
			return r.tokenAssociated(signer)
		}},
		{Name: "pool_signer", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenPDA([]byte(seedTokenPoolSigner), r.token.Mint[:])
		}},
		{Name: "token_program", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenField("token_program", r.token.TokenProgram)
		}},
		{Name: "mint", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.tokenField("mint", r.token.Mint)
		}},
	}

	return Schema{Method: codec.MethodCCIPSend, Program: RoleRouter, Fixed: fixed, Token: token}
}

func getFeeSchema() Schema {
	fixed := []AccountSpec{routerConfig, destChainState}
	fixed = append(fixed, feeQuoterAccounts...)
	token := []AccountSpec{
		{Name: "token_billing_config", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleFeeQuoter, []byte(seedFeeBillingTokenConfig), r.token.Mint[:])
		}},
		{Name: "per_chain_per_token_config", resolve: func(r *resolution) (solana.PublicKey, error) {
			return r.pda(RoleFeeQuoter, []byte(seedPerChainPerTokenConfig), SelectorSeed(r.ctx.Selector), r.token.Mint[:])
		}},
	}
	return Schema{Method: codec.MethodGetFee, Program: RoleRouter, Fixed: fixed, Token: token}
}

func initChainRemoteConfigSchema() Schema {
	return Schema{
		Method:  codec.MethodInitChainRemoteConfig,
		Program: RolePoolProgram,
		Fixed: []AccountSpec{
			{Name: "state", resolve: func(r *resolution) (solana.PublicKey, error) {
				mint, err := r.supplied(RoleMint)
				if err != nil {
					return solana.PublicKey{}, err
				}
				return r.pda(RolePoolProgram, []byte(seedTokenPoolConfig), mint[:])
			}},
			{Name: "chain_config", Writable: true, resolve: func(r *resolution) (solana.PublicKey, error) {
				mint, err := r.supplied(RoleMint)
				if err != nil {
					return solana.PublicKey{}, err
				}
				return r.pda(RolePoolProgram, []byte(seedTokenPoolChainConfig), SelectorSeed(r.ctx.Selector), mint[:])
			}},
			{Name: "authority", Signer: true, Writable: true, resolve: supplied(RoleAuthority)},
			{Name: "system_program", resolve: constant(solana.SystemProgramID)},
		},
	}
}

// Schemas returns the declared layouts of every supported method.
func Schemas() map[codec.Method]Schema {
	return map[codec.Method]Schema{
		codec.MethodCCIPSend:              ccipSendSchema(),
		codec.MethodGetFee:                getFeeSchema(),
		codec.MethodInitChainRemoteConfig: initChainRemoteConfigSchema(),
	}
}
