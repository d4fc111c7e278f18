package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestErrorsTotal.WithLabelValues("/api/v1/transfers", http.MethodPost))
	ObserveHTTPRequest("/api/v1/transfers", http.MethodPost, http.StatusBadGateway, 20*time.Millisecond)
	ObserveHTTPRequest("/api/v1/transfers", http.MethodPost, http.StatusAccepted, 10*time.Millisecond)

	after := testutil.ToFloat64(httpRequestErrorsTotal.WithLabelValues("/api/v1/transfers", http.MethodPost))
	assert.Equal(t, before+1, after)
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/v1/transfers", http.MethodPost, "202")), float64(1))
}

func TestTransferStarted(t *testing.T) {
	done := TransferStarted()
	assert.Equal(t, float64(1), testutil.ToFloat64(transfersInFlight))
	done("success")
	assert.Equal(t, float64(0), testutil.ToFloat64(transfersInFlight))
	assert.GreaterOrEqual(t, testutil.ToFloat64(transfersCompletedTotal.WithLabelValues("success")), float64(1))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ObservePDACache(true)
	ObserveTransferSubmitted("solana-devnet", "ethereum-sepolia")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "ccip_accounts_pda_cache_lookups_total"))
	assert.True(t, strings.Contains(body, `ccip_transfer_submitted_total{destination="ethereum-sepolia",source="solana-devnet"}`))
}
