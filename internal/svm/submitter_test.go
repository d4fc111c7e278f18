package svm

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CCIP-Bridge/internal/ccip/codec"
	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
)

func devnet() *web3.Chain {
	return &web3.Chain{
		Key:         "solana-devnet",
		Name:        "Solana Devnet",
		Family:      web3.FamilySVM,
		Cluster:     "devnet",
		ExplorerURL: "https://explorer.solana.com",
		Programs:    &web3.Programs{Router: router},
	}
}

func sendJob(authority solana.PublicKey) transfer.Job {
	return transfer.Job{
		ID:    "transfer_1712345678901_abcdef123",
		Route: "solana-devnet->ethereum-sepolia",
		Instruction: &codec.EncodedInstruction{
			Method:        codec.MethodCCIPSend,
			Program:       router,
			Discriminator: codec.DefaultDiscriminators()[codec.MethodCCIPSend],
			Payload:       []byte{1, 2, 3},
			AccountList: []codec.AccountRef{
				{Name: "authority", Address: authority, IsSigner: true, IsWritable: true},
				{Name: "system_program", Address: solana.SystemProgramID},
			},
		},
	}
}

func newTestSubmitter(t *testing.T, client RPC) (*Submitter, solana.PrivateKey) {
	t.Helper()
	key := newKey(t)
	s, err := NewSubmitter(client, SubmitterConfig{
		Chain:          devnet(),
		Signer:         key,
		ConfirmTimeout: 200 * time.Millisecond,
		PollInterval:   time.Millisecond,
	})
	require.NoError(t, err)
	return s, key
}

func TestSubmitterConfirmsAndParsesMessageID(t *testing.T) {
	messageID := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	client := &fakeRPC{
		blockhash: solana.Hash{7},
		statuses: []*rpc.SignatureStatusesResult{
			nil,
			{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
			{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
		},
		result: &rpc.GetTransactionResult{Meta: &rpc.TransactionMeta{LogMessages: []string{
			"Program " + router.String() + " invoke [1]",
			"Program return: " + router.String() + " " + base64.StdEncoding.EncodeToString(messageID[:]),
		}}},
	}
	s, key := newTestSubmitter(t, client)

	outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
	require.NoError(t, err)
	require.NotNil(t, outcome.MessageID)
	assert.Equal(t, messageID, *outcome.MessageID)
	assert.Equal(t, CCIPExplorerURL+messageID.Hex(), outcome.ExplorerURL)
	assert.Contains(t, outcome.Logs, "Program return:")
	assert.GreaterOrEqual(t, client.polls, 3)

	require.Len(t, client.sent, 1)
	tx := client.sent[0]
	assert.Equal(t, tx.Signatures[0].String(), outcome.TxSignature)
	assert.Equal(t, solana.Hash{7}, tx.Message.RecentBlockhash)
	assert.Equal(t, key.PublicKey(), tx.Message.AccountKeys[0])
	require.Len(t, tx.Message.Instructions, 2)
	assert.Equal(t, ComputeBudgetProgramID, tx.Message.AccountKeys[tx.Message.Instructions[0].ProgramIDIndex])
	assert.Equal(t, router, tx.Message.AccountKeys[tx.Message.Instructions[1].ProgramIDIndex])
}

func TestSubmitterWithoutReturnDataKeepsTransactionURL(t *testing.T) {
	client := &fakeRPC{
		statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusFinalized}},
		result:   &rpc.GetTransactionResult{Meta: &rpc.TransactionMeta{LogMessages: []string{"Program log: ok"}}},
	}
	s, key := newTestSubmitter(t, client)

	outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
	require.NoError(t, err)
	assert.Nil(t, outcome.MessageID)
	assert.Equal(t, "https://explorer.solana.com/tx/"+outcome.TxSignature+"?cluster=devnet", outcome.ExplorerURL)
}

func TestSubmitterReportsFailures(t *testing.T) {
	t.Run("status error", func(t *testing.T) {
		client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{Err: map[string]any{"InstructionError": []any{1, "Custom"}}}}}
		s, key := newTestSubmitter(t, client)
		outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
		require.Error(t, err)
		assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
		require.NotNil(t, outcome)
		assert.NotEmpty(t, outcome.TxSignature)
	})

	t.Run("execution error", func(t *testing.T) {
		client := &fakeRPC{
			statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
			result: &rpc.GetTransactionResult{Meta: &rpc.TransactionMeta{
				Err:         map[string]any{"InstructionError": []any{1, "Custom"}},
				LogMessages: []string{"Program log: insufficient funds"},
			}},
		}
		s, key := newTestSubmitter(t, client)
		outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
		require.Error(t, err)
		assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
		assert.Contains(t, outcome.Logs, "insufficient funds")
	})

	t.Run("confirmation timeout", func(t *testing.T) {
		client := &fakeRPC{statuses: []*rpc.SignatureStatusesResult{{ConfirmationStatus: rpc.ConfirmationStatusProcessed}}}
		s, key := newTestSubmitter(t, client)
		outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
		require.Error(t, err)
		assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
		assert.NotEmpty(t, outcome.TxSignature)
	})

	t.Run("signer mismatch", func(t *testing.T) {
		client := &fakeRPC{}
		s, _ := newTestSubmitter(t, client)
		_, err := s.Submit(context.Background(), sendJob(newKey(t).PublicKey()))
		require.Error(t, err)
		assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
		assert.Empty(t, client.sent)
	})

	t.Run("send error", func(t *testing.T) {
		client := &fakeRPC{sendErr: xerrors.New(CodeRPCFailure, "node unavailable")}
		s, key := newTestSubmitter(t, client)
		outcome, err := s.Submit(context.Background(), sendJob(key.PublicKey()))
		require.Error(t, err)
		assert.Nil(t, outcome)
		assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
	})
}

func TestSubmitterLoadsLookupTablesOnce(t *testing.T) {
	table := newKey(t).PublicKey()
	data := make([]byte, lookupTableMetaSize)
	data = append(data, router[:]...)
	client := &fakeRPC{accounts: map[solana.PublicKey][]byte{table: data}}
	s, _ := newTestSubmitter(t, client)

	tables, err := s.lookupTables(context.Background(), []codec.AccountRef{
		{Name: "lookup_table", Address: table},
		{Name: "lookup_table", Address: table},
		{Name: "pool_program", Address: router},
	})
	require.NoError(t, err)
	assert.Equal(t, map[solana.PublicKey]solana.PublicKeySlice{table: {router}}, tables)
	assert.Equal(t, 1, client.reads)

	_, err = s.lookupTables(context.Background(), []codec.AccountRef{{Name: "lookup_table", Address: solana.SystemProgramID}})
	require.Error(t, err)
	assert.Equal(t, transfer.CodeDispatchFailure, xerrors.CodeOf(err))
}

func TestNewSubmitterValidation(t *testing.T) {
	key := newKey(t)
	_, err := NewSubmitter(nil, SubmitterConfig{Chain: devnet(), Signer: key})
	assert.Error(t, err)
	_, err = NewSubmitter(&fakeRPC{}, SubmitterConfig{Chain: &web3.Chain{Family: web3.FamilyEVM}, Signer: key})
	assert.Error(t, err)
	_, err = NewSubmitter(&fakeRPC{}, SubmitterConfig{Chain: devnet()})
	assert.Error(t, err)

	s, err := NewSubmitter(&fakeRPC{}, SubmitterConfig{Chain: devnet(), Signer: key})
	require.NoError(t, err)
	assert.Equal(t, DefaultComputeUnits, s.cfg.ComputeUnits)
	assert.Equal(t, key.PublicKey(), s.Authority())
}
