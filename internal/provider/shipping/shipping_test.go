package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httpclient"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/logger"
)

func newTestAggregator(t *testing.T, baseURL string) *Aggregator {
	t.Helper()

	client := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
	cb := httpclient.NewCircuitBreakerClient(client,
		httpclient.DefaultCircuitBreakerConfig("shipping-test-"+t.Name()),
		logger.New("test", "error"))

	return NewAggregator(Config{BaseURL: baseURL, APIKey: "key-123"}, cb)
}

func TestAggregator_Quote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rates", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))

		var req rateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jakarta", req.Origin)
		assert.Equal(t, "Bandung", req.Destination)
		assert.Equal(t, 2, req.WeightKg)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]rateRow{
			{Courier: "jne", Service: "REG", ServiceName: "Regular", Price: 18000, ETALabel: "2-3"},
			{Courier: "sicepat", Service: "BEST", ServiceName: "Besok Sampai", Price: 24000, ETALabel: "1-1"},
		})
	}))
	defer srv.Close()

	quotes, err := newTestAggregator(t, srv.URL).Quote(context.Background(), "Jakarta", "Bandung", 2)
	require.NoError(t, err)

	require.Len(t, quotes, 2)
	assert.Equal(t, "jne", quotes[0].Courier)
	assert.Equal(t, "REG", quotes[0].Service)
	assert.Equal(t, int64(18000), quotes[0].Cost)
	assert.Equal(t, "1-1", quotes[1].ETD)
}

func TestAggregator_Quote_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestAggregator(t, srv.URL).Quote(context.Background(), "Jakarta", "Bandung", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestMock_Quote_Deterministic(t *testing.T) {
	m := NewMock()

	q1, err := m.Quote(context.Background(), "Jakarta", "Bandung", 2)
	require.NoError(t, err)
	q2, err := m.Quote(context.Background(), "Jakarta", "Bandung", 2)
	require.NoError(t, err)

	assert.Equal(t, q1, q2)
	require.Len(t, q1, 3)

	// Heavier shipments cost more per service.
	q3, err := m.Quote(context.Background(), "Jakarta", "Bandung", 5)
	require.NoError(t, err)
	for i := range q1 {
		assert.Greater(t, q3[i].Cost, q1[i].Cost)
	}

	// A different route prices differently but stays stable.
	q4, err := m.Quote(context.Background(), "Jakarta", "Medan", 2)
	require.NoError(t, err)
	assert.NotEqual(t, q1[0].Cost, q4[0].Cost)
}
