package erp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httpclient"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/logger"
)

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()

	client := httpclient.New(httpclient.Config{
		Timeout:         5 * time.Second,
		MaxRetries:      0,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    time.Millisecond,
		MaxConnsPerHost: 10,
	})
	cb := httpclient.NewCircuitBreakerClient(client,
		httpclient.DefaultCircuitBreakerConfig("erp-test-"+t.Name()),
		logger.New("test", "error"))

	return NewHTTPClient(Config{BaseURL: baseURL, APIKey: "erp-key"}, cb)
}

func TestHTTPClient_PushOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/orders", r.URL.Path)
		assert.Equal(t, "Bearer erp-key", r.Header.Get("Authorization"))

		var req pushOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ORD-20260315-A7K2MQ", req.OrderNumber)
		require.Len(t, req.Items, 1)
		assert.Equal(t, "HJB-SAT-RED", req.Items[0].SKU)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(pushOrderResponse{ERPOrderID: "ERP-SO-991"})
	}))
	defer srv.Close()

	order := &domain.Order{
		OrderNumber: "ORD-20260315-A7K2MQ",
		UserID:      "user-001",
		TotalAmount: 105000,
		Items: []domain.OrderItem{
			{SKU: "HJB-SAT-RED", Quantity: 2, Price: 50000},
		},
	}

	erpID, err := newTestClient(t, srv.URL).PushOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "ERP-SO-991", erpID)
}

func TestHTTPClient_PullVariants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/variants", r.URL.Path)
		json.NewEncoder(w).Encode([]variantRow{
			{ERPID: "ERP-1001", SKU: "HJB-SAT-RED", Name: "Satin Hijab Red", Price: 50000, WeightGrams: 200, Stock: 25, IsActive: true},
			{ERPID: "ERP-1002", SKU: "HJB-CHF-BLK", Name: "Chiffon Hijab Black", Price: 45000, Stock: 0, IsActive: false},
		})
	}))
	defer srv.Close()

	variants, err := newTestClient(t, srv.URL).PullVariants(context.Background())
	require.NoError(t, err)

	require.Len(t, variants, 2)
	assert.Equal(t, "HJB-SAT-RED", variants[0].SKU)
	assert.Equal(t, 25, variants[0].Stock)
	assert.False(t, variants[1].IsActive)
}

func TestHTTPClient_ERPDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)

	_, err := c.PushOrder(context.Background(), &domain.Order{OrderNumber: "ORD-1"})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)

	err = c.PushCustomer(context.Background(), Customer{ID: "user-001"})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestMock_RecordsPushes(t *testing.T) {
	m := NewMock()
	ctx := context.Background()

	erpID, err := m.PushOrder(ctx, &domain.Order{OrderNumber: "ORD-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, erpID)

	erpID2, err := m.PushOrder(ctx, &domain.Order{OrderNumber: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, erpID, erpID2)

	require.NoError(t, m.PushCustomer(ctx, Customer{ID: "user-001", Name: "Siti"}))

	assert.Equal(t, []string{"ORD-1", "ORD-1"}, m.PushedOrders())
	require.Len(t, m.PushedCustomers(), 1)

	variants, err := m.PullVariants(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, variants)
}
