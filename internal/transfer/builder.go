package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"CCIP-Bridge/internal/ccip/accounts"
	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/web3"
)

// LookupTableSource 在代币表未配置查找表时提供该代币的地址查找表。
type LookupTableSource interface {
	LookupTable(ctx context.Context, chain *web3.Chain, mint solana.PublicKey) (solana.PublicKey, error)
}

// BuilderConfig 汇总 Builder 的可选配置。
type BuilderConfig struct {
	Defaults        Params
	DefaultReceiver string
	// Authority 是签名账户的公钥，参与 nonce 与 ATA 的推导。
	Authority    solana.PublicKey
	LookupTables LookupTableSource
	Now          func() time.Time
}

// Request 是构造完成、等待派发的转账请求。
type Request struct {
	ID          string
	Intent      Intent
	Params      Params
	Route       string
	Source      *web3.Chain
	Destination *web3.Chain
	Token       web3.Token
	Amount      uint64
	Instruction *codec.EncodedInstruction
}

// Job 返回请求对应的派发单元。
func (r *Request) Job() Job {
	return Job{
		ID:          r.ID,
		Intent:      r.Intent,
		Params:      r.Params,
		Route:       r.Route,
		TokenMint:   r.Token.Mint.String(),
		Amount:      r.Amount,
		Instruction: r.Instruction,
	}
}

// Builder 校验转账意图并构造 ccip_send 指令。
type Builder struct {
	chains   *web3.Registry
	codec    *codec.Codec
	resolver *accounts.Resolver
	cfg      BuilderConfig
}

// NewBuilder 构造 Builder。
func NewBuilder(chains *web3.Registry, c *codec.Codec, resolver *accounts.Resolver, cfg BuilderConfig) (*Builder, error) {
	if chains == nil || c == nil || resolver == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "builder 依赖未初始化")
	}
	if cfg.Defaults.FeeToken == "" {
		cfg.Defaults = DefaultParams()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.DefaultReceiver = strings.TrimSpace(cfg.DefaultReceiver)
	return &Builder{chains: chains, codec: c, resolver: resolver, cfg: cfg}, nil
}

// Build 校验意图、合并执行参数、解析账户并编码指令。校验失败返回 INVALID_INTENT，
// 编码与账户解析的错误原样向上传递；任何失败都不会产生副作用。
func (b *Builder) Build(ctx context.Context, intent Intent, opts *Options) (*Request, error) {
	req, err := b.validate(intent)
	if err != nil {
		return nil, err
	}
	if req.Params, err = opts.Resolve(b.cfg.Defaults); err != nil {
		return nil, err
	}

	receiver, err := web3.EncodeReceiver(req.Destination.Family, req.Intent.Receiver)
	if err != nil {
		return nil, invalidIntentf("receiver: %v", err)
	}

	programs := req.Source.Programs
	feeMint, feeProgram, feeToken := solana.SolMint, solana.TokenProgramID, solana.PublicKey{}
	if req.Params.FeeToken == FeeTokenLink {
		feeMint, feeToken = programs.LinkMint, programs.LinkMint
	}

	lookupTable := req.Token.LookupTable
	if lookupTable.IsZero() && b.cfg.LookupTables != nil {
		if lookupTable, err = b.cfg.LookupTables.LookupTable(ctx, req.Source, req.Token.Mint); err != nil {
			return nil, err
		}
	}

	list, err := b.resolver.BuildAccountList(codec.MethodCCIPSend, accounts.Context{
		Selector: req.Destination.Selector,
		Accounts: map[string]solana.PublicKey{
			accounts.RoleRouter:          programs.Router,
			accounts.RoleFeeQuoter:       programs.FeeQuoter,
			accounts.RoleRMNRemote:       programs.RMNRemote,
			accounts.RoleAuthority:       b.cfg.Authority,
			accounts.RoleFeeTokenMint:    feeMint,
			accounts.RoleFeeTokenProgram: feeProgram,
			accounts.RoleLinkMint:        programs.LinkMint,
		},
		Tokens: []accounts.TokenAccounts{{
			Mint:         req.Token.Mint,
			TokenProgram: req.Token.TokenProgram,
			PoolProgram:  req.Token.PoolProgram,
			LookupTable:  lookupTable,
		}},
	})
	if err != nil {
		return nil, err
	}

	extraArgs, err := codec.EVMExtraArgsV2{
		GasLimit:                 req.Params.GasLimit,
		AllowOutOfOrderExecution: req.Params.AllowOutOfOrderExecution,
	}.Bytes()
	if err != nil {
		return nil, xerrors.Wrap(codec.CodeEncoding, err, "encode extra args")
	}

	args := &codec.CCIPSendArgs{
		DestChainSelector: req.Destination.Selector,
		Message: codec.SVM2AnyMessage{
			Receiver:     receiver,
			TokenAmounts: []codec.TokenAmount{{Token: req.Token.Mint, Amount: req.Amount}},
			FeeToken:     feeToken,
			ExtraArgs:    extraArgs,
		},
		TokenIndexes: list.TokenIndexes,
	}
	if req.Instruction, err = b.codec.Instruction(codec.MethodCCIPSend, list.Program, args, list.Accounts); err != nil {
		return nil, err
	}

	req.ID = NewCorrelationID(b.cfg.Now())
	return req, nil
}

func (b *Builder) validate(intent Intent) (*Request, error) {
	source, ok := b.chains.Lookup(intent.SourceChain)
	if !ok {
		return nil, invalidIntentf("unknown source chain %q", intent.SourceChain)
	}
	destination, ok := b.chains.Lookup(intent.DestinationChain)
	if !ok {
		return nil, invalidIntentf("unknown destination chain %q", intent.DestinationChain)
	}
	if source.Selector == destination.Selector {
		return nil, invalidIntentf("source and destination are both %s", source.Name)
	}
	if source.Family != web3.FamilySVM || source.Programs == nil {
		return nil, invalidIntentf("transfers from %s are not supported", source.Name)
	}
	if destination.Family != web3.FamilyEVM {
		return nil, invalidIntentf("transfers to %s are not supported", destination.Name)
	}

	amount, err := ParseAmount(intent.Amount)
	if err != nil {
		return nil, err
	}

	token, ok := source.Token(intent.Token)
	if !ok {
		return nil, invalidIntentf("token %q is not configured on %s", intent.Token, source.Name)
	}

	intent.Receiver = strings.TrimSpace(intent.Receiver)
	if intent.Receiver == "" {
		intent.Receiver = b.cfg.DefaultReceiver
	}
	if intent.Receiver == "" {
		return nil, invalidIntentf("receiver address is required")
	}
	if err := web3.ValidateAddress(destination.Family, intent.Receiver); err != nil {
		return nil, invalidIntentf("receiver: %v", err)
	}

	return &Request{
		Intent:      intent,
		Route:       source.Key + "->" + destination.Key,
		Source:      source,
		Destination: destination,
		Token:       token,
		Amount:      amount,
	}, nil
}
