package ccip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitAndGetTransfer(t *testing.T) {
	var submitted TransferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/transfers":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&submitted))
			w.WriteHeader(http.StatusAccepted)
			_ = json.NewEncoder(w).Encode(SubmitResult{CorrelationID: "transfer_1", TransferID: "transfer_1", Status: StatusProcessing})
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/transfers/transfer_1":
			_ = json.NewEncoder(w).Encode(Transfer{
				ID:               "transfer_1",
				Status:           StatusSuccess,
				Message:          "transfer confirmed",
				OnChainMessageID: "0x11",
				ExplorerURL:      "https://ccip.chain.link/msg/0x11",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":"TRANSFER_NOT_FOUND","message":"transfer missing not found"}}`))
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	gas := uint64(0)
	result, err := client.SubmitTransfer(context.Background(), TransferRequest{
		SourceChain:      "Solana",
		DestinationChain: "EthereumSepolia",
		TokenIdentifier:  "BnM",
		Amount:           "10000000",
		ReceiverAddress:  "0x4aEeE376E7b9F0fAb9883382Bd5f9c8D22764ABb",
		Options:          &TransferOptions{GasLimit: &gas},
	})
	require.NoError(t, err)
	assert.Equal(t, "transfer_1", result.CorrelationID)
	assert.Equal(t, "10000000", submitted.Amount)
	require.NotNil(t, submitted.Options)
	require.NotNil(t, submitted.Options.GasLimit)

	transfer, err := client.GetTransfer(context.Background(), result.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, transfer.Status)
	assert.Equal(t, "0x11", transfer.OnChainMessageID)

	_, err = client.GetTransfer(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "TRANSFER_NOT_FOUND", apiErr.Code)
}

func TestListTransfersAndChains(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/base/api/v1/transfers":
			assert.Equal(t, "success,error", r.URL.Query().Get("status"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			_ = json.NewEncoder(w).Encode(TransferList{Transfers: []Transfer{{ID: "a", Status: StatusSuccess}}, Stats: Stats{Total: 1, Success: 1}})
		case "/base/api/v1/chains":
			_, _ = w.Write([]byte(`{"chains":[{"key":"solana-devnet","name":"Solana Devnet","family":"svm","selector":"16423721717087811551"}]}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/base", nil)
	require.NoError(t, err)

	list, err := client.ListTransfers(context.Background(), ListQuery{Statuses: []Status{StatusSuccess, StatusError}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Transfers, 1)
	assert.Equal(t, 1, list.Stats.Success)

	chains, err := client.ListChains(context.Background())
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, uint64(16423721717087811551), chains[0].Selector)
}

func TestClientErrors(t *testing.T) {
	_, err := NewClient("not a url", nil)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()
	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.GetTransfer(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "upstream down", apiErr.Message)
	assert.False(t, IsNotFound(err))

	_, err = client.GetTransfer(context.Background(), " ")
	assert.Error(t, err)
}

func TestGetTransferEscapesID(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		_ = json.NewEncoder(w).Encode(Transfer{ID: "x", Status: StatusPending})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL+"/gateway/", srv.Client())
	require.NoError(t, err)

	_, err = client.GetTransfer(context.Background(), "../chains")
	require.NoError(t, err)
	_, err = client.GetTransfer(context.Background(), "a b?c")
	require.NoError(t, err)
	_, err = client.ListChains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/gateway/api/v1/transfers/..%2Fchains",
		"/gateway/api/v1/transfers/a%20b%3Fc",
		"/gateway/api/v1/chains",
	}, paths)

	for _, id := range []string{".", ".."} {
		_, err = client.GetTransfer(context.Background(), id)
		assert.Error(t, err, id)
	}
	assert.Len(t, paths, 3)
}

func TestSubmitDispatchFailureCarriesTransferID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":{"code":"DISPATCH_FAILURE","message":"queue unavailable","transferId":"transfer_1"}}`))
	}))
	defer srv.Close()
	client, err := NewClient(srv.URL, srv.Client())
	require.NoError(t, err)

	_, err = client.SubmitTransfer(context.Background(), TransferRequest{Amount: "1"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "DISPATCH_FAILURE", apiErr.Code)
	assert.Equal(t, "transfer_1", apiErr.TransferID)
}
