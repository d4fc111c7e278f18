package svm

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type fakeRPC struct {
	mu        sync.Mutex
	blockhash solana.Hash
	sent      []*solana.Transaction
	statuses  []*rpc.SignatureStatusesResult
	polls     int
	result    *rpc.GetTransactionResult
	accounts  map[solana.PublicKey][]byte
	reads     int
	sendErr   error
}

func (f *fakeRPC) LatestBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeRPC) SignatureStatus(context.Context, solana.Signature) (*rpc.SignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if len(f.statuses) == 0 {
		return nil, nil
	}
	status := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return status, nil
}

func (f *fakeRPC) Transaction(context.Context, solana.Signature) (*rpc.GetTransactionResult, error) {
	return f.result, nil
}

func (f *fakeRPC) AccountData(_ context.Context, account solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	data, ok := f.accounts[account]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	return data, nil
}

var _ RPC = (*fakeRPC)(nil)
