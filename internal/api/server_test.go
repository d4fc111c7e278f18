package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "CCIP-Bridge/internal/errors"
	"CCIP-Bridge/internal/transfer"
	"CCIP-Bridge/internal/web3"
)

type fakeTransfers struct {
	submitted []transfer.Intent
	options   []*transfer.Options
	submitErr error
	records   map[string]*transfer.Record
	listOpts  int
}

func (f *fakeTransfers) Submit(_ context.Context, intent transfer.Intent, opts *transfer.Options) (*transfer.Record, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, intent)
	f.options = append(f.options, opts)
	return &transfer.Record{ID: "transfer_1712345678901_abcdef123", Status: transfer.StatusProcessing, Message: "transfer submitted"}, nil
}

func (f *fakeTransfers) Get(_ context.Context, id string) (*transfer.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, xerrors.Newf(transfer.CodeTransferNotFound, "transfer %s not found", id)
	}
	return record, nil
}

func (f *fakeTransfers) List(_ context.Context, opts ...transfer.ListOption) ([]*transfer.Record, error) {
	f.listOpts = len(opts)
	out := make([]*transfer.Record, 0, len(f.records))
	for _, record := range f.records {
		out = append(out, record)
	}
	return out, nil
}

func (f *fakeTransfers) Stats(context.Context, ...transfer.ListOption) (transfer.Stats, error) {
	return transfer.Stats{Total: len(f.records), Success: len(f.records)}, nil
}

func newTestServer(t *testing.T, transfers *fakeTransfers) http.Handler {
	t.Helper()
	chains, err := web3.LoadRegistry("")
	require.NoError(t, err)
	return NewServer(Config{}, transfers, chains).Handler()
}

func do(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestSubmitTransfer(t *testing.T) {
	transfers := &fakeTransfers{}
	handler := newTestServer(t, transfers)

	rec := do(t, handler, http.MethodPost, "/api/v1/transfers", `{
		"sourceChain": "Solana",
		"destinationChain": "EthereumSepolia",
		"tokenIdentifier": "BnM",
		"amount": "10000000",
		"receiverAddress": "0x4aEeE376E7b9F0fAb9883382Bd5f9c8D22764ABb",
		"options": {"feeToken": "LINK", "gasLimit": 0}
	}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "transfer_1712345678901_abcdef123", resp.CorrelationID)
	assert.Equal(t, resp.CorrelationID, resp.TransferID)
	assert.Equal(t, transfer.StatusProcessing, resp.Status)
	assert.Equal(t, "/api/v1/transfers/"+resp.CorrelationID, rec.Header().Get("Location"))

	require.Len(t, transfers.submitted, 1)
	assert.Equal(t, transfer.Intent{
		SourceChain:      "Solana",
		DestinationChain: "EthereumSepolia",
		Token:            "BnM",
		Amount:           "10000000",
		Receiver:         "0x4aEeE376E7b9F0fAb9883382Bd5f9c8D22764ABb",
	}, transfers.submitted[0])
	require.NotNil(t, transfers.options[0])
	assert.Equal(t, "LINK", transfers.options[0].FeeToken)
	require.NotNil(t, transfers.options[0].GasLimit)
	assert.Zero(t, *transfers.options[0].GasLimit)
}

func TestSubmitTransferErrors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		rec := do(t, newTestServer(t, &fakeTransfers{}), http.MethodPost, "/api/v1/transfers", `{"amount": 5`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(transfer.CodeInvalidIntent), decodeError(t, rec).Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, newTestServer(t, &fakeTransfers{}), http.MethodPost, "/api/v1/transfers", `{"amountt": "5"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid intent", func(t *testing.T) {
		transfers := &fakeTransfers{submitErr: xerrors.New(transfer.CodeInvalidIntent, "amount must be greater than 0")}
		rec := do(t, newTestServer(t, transfers), http.MethodPost, "/api/v1/transfers", `{"amount": "0"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		detail := decodeError(t, rec)
		assert.Equal(t, string(transfer.CodeInvalidIntent), detail.Code)
		assert.Contains(t, detail.Message, "greater than 0")
	})

	t.Run("dispatch failure", func(t *testing.T) {
		transfers := &fakeTransfers{submitErr: xerrors.New(transfer.CodeDispatchFailure, "queue unavailable",
			xerrors.WithMetadata(transfer.MetadataTransferID, "transfer_1712345678901_abcdef123"))}
		rec := do(t, newTestServer(t, transfers), http.MethodPost, "/api/v1/transfers", `{"amount": "1"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "transfer_1712345678901_abcdef123", decodeError(t, rec).TransferID)
	})
}

func TestTransferStatus(t *testing.T) {
	record := &transfer.Record{
		ID:          "transfer_1712345678901_abcdef123",
		Status:      transfer.StatusSuccess,
		Message:     "transfer confirmed",
		ExplorerURL: "https://ccip.chain.link/msg/0x01",
		Logs:        "Program log: ok",
	}
	handler := newTestServer(t, &fakeTransfers{records: map[string]*transfer.Record{record.ID: record}})

	for _, target := range []string{
		"/api/v1/transfers/" + record.ID,
		"/api/v1/transfers?transferId=" + record.ID,
	} {
		rec := do(t, handler, http.MethodGet, target, "")
		require.Equal(t, http.StatusOK, rec.Code, target)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "success", body["status"])
		assert.Equal(t, "transfer confirmed", body["message"])
		assert.Equal(t, record.ExplorerURL, body["explorerUrl"])
		assert.Equal(t, "Program log: ok", body["logs"])
	}

	rec := do(t, handler, http.MethodGet, "/api/v1/transfers/transfer_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(transfer.CodeTransferNotFound), decodeError(t, rec).Code)
}

func TestTransferStatusUnescapesID(t *testing.T) {
	record := &transfer.Record{ID: "a b/c", Status: transfer.StatusProcessing}
	handler := newTestServer(t, &fakeTransfers{records: map[string]*transfer.Record{record.ID: record}})

	rec := do(t, handler, http.MethodGet, "/api/v1/transfers/a%20b%2Fc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "a b/c", body["transferId"])
}

func TestListTransfers(t *testing.T) {
	transfers := &fakeTransfers{records: map[string]*transfer.Record{
		"a": {ID: "a", Status: transfer.StatusSuccess},
	}}
	handler := newTestServer(t, transfers)

	rec := do(t, handler, http.MethodGet, "/api/v1/transfers?status=success,error&limit=5&offset=1&q=bnm&order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Transfers, 1)
	assert.Equal(t, 1, body.Stats.Success)
	assert.Equal(t, 5, transfers.listOpts)

	for _, target := range []string{
		"/api/v1/transfers?limit=0",
		"/api/v1/transfers?offset=-1",
		"/api/v1/transfers?status=done",
	} {
		rec := do(t, handler, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestChainsAndHealth(t *testing.T) {
	handler := newTestServer(t, &fakeTransfers{})

	rec := do(t, handler, http.MethodGet, "/api/v1/chains", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Chains []ChainView `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Chains, 2)
	assert.Equal(t, "ethereum-sepolia", body.Chains[0].Key)
	assert.Equal(t, uint64(16015286601757825753), body.Chains[0].Selector)
	assert.Equal(t, "solana-devnet", body.Chains[1].Key)
	require.Len(t, body.Chains[1].Tokens, 1)
	assert.Equal(t, "BnM", body.Chains[1].Tokens[0].Symbol)

	rec = do(t, handler, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, handler, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ccip_http_requests_total")
}
