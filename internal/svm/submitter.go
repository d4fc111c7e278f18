package svm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
	"CCIP-Bridge/pkg/logger"
)

// CCIPExplorerURL is the base of the CCIP message explorer.
const CCIPExplorerURL = "https://ccip.chain.link/msg/"

// SubmitterConfig configures the in-process signer.
type SubmitterConfig struct {
	Chain        *web3.Chain
	Signer       solana.PrivateKey
	ComputeUnits uint32
	// ConfirmTimeout bounds the wait for the transaction to be confirmed.
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
}

// Submitter signs a job's instruction, broadcasts it and waits for
// confirmation. It never retries a broadcast.
type Submitter struct {
	rpc    RPC
	cfg    SubmitterConfig
	logger *slog.Logger
}

// NewSubmitter validates cfg and returns a Submitter.
func NewSubmitter(client RPC, cfg SubmitterConfig) (*Submitter, error) {
	if client == nil {
		return nil, xerrors.New(xerrors.CodeInitializationFailure, "svm submitter requires an rpc client")
	}
	if cfg.Chain == nil || cfg.Chain.Family != web3.FamilySVM {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "svm submitter requires an svm chain")
	}
	if len(cfg.Signer) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "svm submitter requires a signer")
	}
	if cfg.ComputeUnits == 0 {
		cfg.ComputeUnits = DefaultComputeUnits
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 90 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Submitter{rpc: client, cfg: cfg, logger: logger.Named("svm_submitter")}, nil
}

// Authority is the public key that signs and pays for transfers.
func (s *Submitter) Authority() solana.PublicKey {
	return s.cfg.Signer.PublicKey()
}

// Submit implements transfer.Submitter.
func (s *Submitter) Submit(ctx context.Context, job transfer.Job) (*transfer.Outcome, error) {
	ix := job.Instruction
	if ix == nil {
		return nil, xerrors.Newf(transfer.CodeDispatchFailure, "job %s has no instruction", job.ID)
	}
	authority := s.Authority()
	for _, signer := range ix.Signers() {
		if !signer.Equals(authority) {
			return nil, xerrors.Newf(transfer.CodeDispatchFailure, "instruction requires signer %s, configured signer is %s", signer, authority)
		}
	}

	opts := []solana.TransactionOption{solana.TransactionPayer(authority)}
	tables, err := s.lookupTables(ctx, ix.AccountList)
	if err != nil {
		return nil, err
	}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}

	blockhash, err := s.rpc.LatestBlockhash(ctx)
	if err != nil {
		return nil, dispatchFailure(err, "fetch blockhash")
	}
	tx, err := solana.NewTransaction([]solana.Instruction{SetComputeUnitLimit(s.cfg.ComputeUnits), ix}, blockhash, opts...)
	if err != nil {
		return nil, dispatchFailure(err, "build transaction")
	}
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(authority) {
			return &s.cfg.Signer
		}
		return nil
	}); err != nil {
		return nil, dispatchFailure(err, "sign transaction")
	}

	sig, err := s.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return nil, dispatchFailure(err, "send transaction")
	}
	s.logger.Info("transaction sent", slog.String("transfer_id", job.ID), slog.String("signature", sig.String()))

	outcome := &transfer.Outcome{TxSignature: sig.String(), ExplorerURL: s.transactionURL(sig)}
	if err := s.waitForConfirmation(ctx, sig); err != nil {
		return outcome, err
	}

	result, err := s.rpc.Transaction(ctx, sig)
	if err != nil {
		return outcome, dispatchFailure(err, "fetch confirmed transaction")
	}
	if result != nil && result.Meta != nil {
		outcome.Logs = strings.Join(result.Meta.LogMessages, "\n")
		if result.Meta.Err != nil {
			return outcome, xerrors.Newf(transfer.CodeDispatchFailure, "transaction %s failed: %v", sig, result.Meta.Err)
		}
		if id, ok := ParseMessageID(result.Meta.LogMessages, ix.ProgramID()); ok {
			outcome.MessageID = id
			outcome.ExplorerURL = CCIPExplorerURL + id.Hex()
		}
	}
	if outcome.MessageID == nil {
		s.logger.Warn("router return data missing", slog.String("transfer_id", job.ID), slog.String("signature", sig.String()))
	}
	return outcome, nil
}

func (s *Submitter) lookupTables(ctx context.Context, refs []codec.AccountRef) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	tables := make(map[solana.PublicKey]solana.PublicKeySlice)
	for _, ref := range refs {
		if ref.Name != "lookup_table" || ref.Address.IsZero() {
			continue
		}
		if _, ok := tables[ref.Address]; ok {
			continue
		}
		data, err := s.rpc.AccountData(ctx, ref.Address)
		if err != nil {
			return nil, dispatchFailure(err, "fetch lookup table "+ref.Address.String())
		}
		addresses, err := DecodeLookupTable(data)
		if err != nil {
			return nil, dispatchFailure(err, "decode lookup table "+ref.Address.String())
		}
		tables[ref.Address] = addresses
	}
	return tables, nil
}

func (s *Submitter) waitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := s.rpc.SignatureStatus(ctx, sig)
		switch {
		case err != nil && ctx.Err() == nil:
			s.logger.Debug("signature status unavailable", slog.String("signature", sig.String()), slog.Any("error", err))
		case status != nil && status.Err != nil:
			return xerrors.Newf(transfer.CodeDispatchFailure, "transaction %s failed: %v", sig, status.Err)
		case status != nil && confirmed(status.ConfirmationStatus):
			return nil
		}
		select {
		case <-ctx.Done():
			return dispatchFailure(ctx.Err(), fmt.Sprintf("transaction %s not confirmed within %s", sig, s.cfg.ConfirmTimeout))
		case <-ticker.C:
		}
	}
}

func confirmed(status rpc.ConfirmationStatusType) bool {
	return status == rpc.ConfirmationStatusConfirmed || status == rpc.ConfirmationStatusFinalized
}

func (s *Submitter) transactionURL(sig solana.Signature) string {
	base := s.cfg.Chain.ExplorerURL
	if base == "" {
		base = "https://explorer.solana.com"
	}
	url := base + "/tx/" + sig.String()
	if s.cfg.Chain.Cluster != "" && s.cfg.Chain.Cluster != "mainnet-beta" {
		url += "?cluster=" + s.cfg.Chain.Cluster
	}
	return url
}

func dispatchFailure(err error, msg string) error {
	var coded *xerrors.Error
	if errors.As(err, &coded) && coded.Code() == transfer.CodeDispatchFailure {
		return err
	}
	return xerrors.Wrap(transfer.CodeDispatchFailure, err, msg)
}

var _ transfer.Submitter = (*Submitter)(nil)
