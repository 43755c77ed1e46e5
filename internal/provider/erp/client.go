package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/httpclient"
)

// Config holds ERP endpoint and credentials.
type Config struct {
	BaseURL string
	APIKey  string
}

// HTTPClient is the HTTP ERP adapter.
type HTTPClient struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
}

// NewHTTPClient creates an ERP adapter from config.
func NewHTTPClient(cfg Config, client *httpclient.CircuitBreakerClient) *HTTPClient {
	return &HTTPClient{
		cfg:    cfg,
		client: client,
	}
}

type pushOrderRequest struct {
	OrderNumber string `json:"order_number"`
	CustomerID  string `json:"customer_id"`
	Total       int64  `json:"total"`
	Items       []struct {
		SKU      string `json:"sku"`
		Quantity int    `json:"quantity"`
		Price    int64  `json:"price"`
	} `json:"items"`
}

type pushOrderResponse struct {
	ERPOrderID string `json:"erp_order_id"`
}

type variantRow struct {
	ERPID       string `json:"erp_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	WeightGrams int    `json:"weight_grams"`
	Stock       int    `json:"stock"`
	IsActive    bool   `json:"is_active"`
}

func (c *HTTPClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal erp request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create erp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("erp unreachable")
	}
	return resp, nil
}

// PushOrder sends a paid order to the ERP and returns the ERP order id.
func (c *HTTPClient) PushOrder(ctx context.Context, order *domain.Order) (string, error) {
	req := pushOrderRequest{
		OrderNumber: order.OrderNumber,
		CustomerID:  order.UserID,
		Total:       order.TotalAmount,
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, struct {
			SKU      string `json:"sku"`
			Quantity int    `json:"quantity"`
			Price    int64  `json:"price"`
		}{SKU: item.SKU, Quantity: item.Quantity, Price: item.Price})
	}

	resp, err := c.post(ctx, "/api/orders", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "erp")
	}

	var por pushOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&por); err != nil {
		return "", fmt.Errorf("decode erp order response: %w", err)
	}
	return por.ERPOrderID, nil
}

// PushCustomer creates or updates a customer master record.
func (c *HTTPClient) PushCustomer(ctx context.Context, customer Customer) error {
	resp, err := c.post(ctx, "/api/customers", customer)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return httpclient.ParseResponseError(resp, "erp")
	}
	return nil
}

// PullVariants fetches the full variant stock snapshot.
func (c *HTTPClient) PullVariants(ctx context.Context) ([]domain.Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/variants", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create erp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("erp unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "erp")
	}

	var rows []variantRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode erp variants: %w", err)
	}

	variants := make([]domain.Variant, 0, len(rows))
	for _, row := range rows {
		variants = append(variants, domain.Variant{
			ERPID:       row.ERPID,
			SKU:         row.SKU,
			Name:        row.Name,
			Price:       row.Price,
			WeightGrams: row.WeightGrams,
			Stock:       row.Stock,
			IsActive:    row.IsActive,
		})
	}
	return variants, nil
}
