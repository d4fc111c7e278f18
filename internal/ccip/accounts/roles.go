package accounts

// Roles name the caller-supplied accounts a Context may carry. Schemas look
// them up by role so the output never depends on map iteration order.
const (
	RoleRouter          = "router"
	RoleFeeQuoter       = "fee_quoter"
	RoleRMNRemote       = "rmn_remote"
	RoleAuthority       = "authority"
	RoleFeeTokenMint    = "fee_token_mint"
	RoleFeeTokenProgram = "fee_token_program"
	RoleLinkMint        = "link_mint"
	RolePoolProgram     = "pool_program"
	RoleMint            = "mint"
)

// Seed prefixes used by the router, fee quoter, RMN remote and token pool
// programs.
const (
	seedConfig                 = "config"
	seedDestChainState         = "dest_chain_state"
	seedNonce                  = "nonce"
	seedFeeBillingSigner       = "fee_billing_signer"
	seedDestChain              = "dest_chain"
	seedFeeBillingTokenConfig  = "fee_billing_token_config"
	seedPerChainPerTokenConfig = "per_chain_per_token_config"
	seedCurses                 = "curses"
	seedTokenAdminRegistry     = "token_admin_registry"
	seedTokenPoolConfig        = "ccip_tokenpool_config"
	seedTokenPoolChainConfig   = "ccip_tokenpool_chainconfig"
	seedTokenPoolSigner        = "ccip_tokenpool_signer"
)
