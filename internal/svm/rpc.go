package svm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/pkg/logger"
)

// RPC is the subset of the Solana JSON-RPC API the submitter and the token
// admin registry reader rely on.
type RPC interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error)
	Transaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error)
	AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
}

// ErrAccountNotFound is returned by AccountData for accounts that do not exist.
var ErrAccountNotFound = errors.New("account not found")

// RPCClient round-robins calls over several endpoints and fails over to the
// next one on error.
type RPCClient struct {
	clients    []*rpc.Client
	index      atomic.Uint64
	commitment rpc.CommitmentType
	logger     *slog.Logger
}

// NewRPCClient builds a client over urls. Endpoints are not probed up front;
// unhealthy ones are skipped at call time.
func NewRPCClient(urls []string, commitment rpc.CommitmentType) (*RPCClient, error) {
	clients := make([]*rpc.Client, 0, len(urls))
	for _, url := range urls {
		if url == "" {
			continue
		}
		clients = append(clients, rpc.New(url))
	}
	if len(clients) == 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "no solana rpc urls configured")
	}
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}
	return &RPCClient{
		clients:    clients,
		commitment: commitment,
		logger:     logger.Named("svm_rpc"),
	}, nil
}

func (c *RPCClient) executeWithFailover(ctx context.Context, operation string, fn func(*rpc.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < len(c.clients); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		client := c.clients[(c.index.Add(1)-1)%uint64(len(c.clients))]
		err := fn(client)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrAccountNotFound) {
			return err
		}
		lastErr = err
		c.logger.Warn("rpc call failed, trying next endpoint",
			slog.String("operation", operation),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}
	return xerrors.Wrap(CodeRPCFailure, lastErr, fmt.Sprintf("%s failed on %d endpoints", operation, len(c.clients)))
}

// LatestBlockhash returns a blockhash to build a transaction with.
func (c *RPCClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var hash solana.Hash
	err := c.executeWithFailover(ctx, "get_latest_blockhash", func(client *rpc.Client) error {
		resp, err := client.GetLatestBlockhash(ctx, c.commitment)
		if err != nil {
			return err
		}
		hash = resp.Value.Blockhash
		return nil
	})
	return hash, err
}

// SendTransaction broadcasts a signed transaction with preflight simulation.
func (c *RPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.executeWithFailover(ctx, "send_transaction", func(client *rpc.Client) error {
		var err error
		sig, err = client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: c.commitment,
		})
		return err
	})
	return sig, err
}

// SignatureStatus returns the status of sig, or nil when the cluster has not
// seen it yet.
func (c *RPCClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	var status *rpc.SignatureStatusesResult
	err := c.executeWithFailover(ctx, "get_signature_statuses", func(client *rpc.Client) error {
		resp, err := client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			return err
		}
		if len(resp.Value) > 0 {
			status = resp.Value[0]
		}
		return nil
	})
	return status, err
}

// Transaction fetches a confirmed transaction including its log messages.
func (c *RPCClient) Transaction(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	var tx *rpc.GetTransactionResult
	err := c.executeWithFailover(ctx, "get_transaction", func(client *rpc.Client) error {
		maxVersion := uint64(0)
		var err error
		tx, err = client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     c.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	return tx, err
}

// AccountData returns the raw data of account.
func (c *RPCClient) AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	var data []byte
	err := c.executeWithFailover(ctx, "get_account_info", func(client *rpc.Client) error {
		resp, err := client.GetAccountInfo(ctx, account)
		if errors.Is(err, rpc.ErrNotFound) || (err == nil && (resp == nil || resp.Value == nil)) {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		if err != nil {
			return err
		}
		data = resp.Value.Data.GetBinary()
		return nil
	})
	return data, err
}

var _ RPC = (*RPCClient)(nil)
