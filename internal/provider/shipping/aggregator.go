package shipping

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

// Config holds rate aggregator credentials and endpoints.
type Config struct {
	BaseURL string
	APIKey  string
}

// Aggregator is the HTTP rate-quote adapter.
type Aggregator struct {
	cfg    Config
	client *httpclient.CircuitBreakerClient
}

// NewAggregator creates an aggregator adapter from config.
func NewAggregator(cfg Config, client *httpclient.CircuitBreakerClient) *Aggregator {
	return &Aggregator{
		cfg:    cfg,
		client: client,
	}
}

type rateRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	WeightKg    int    `json:"weightKg"`
}

type rateRow struct {
	Courier     string `json:"courier"`
	Service     string `json:"service"`
	ServiceName string `json:"serviceName"`
	Price       int64  `json:"price"`
	ETALabel    string `json:"etaLabel"`
}

// Quote returns the courier options for a shipment.
func (a *Aggregator) Quote(ctx context.Context, origin, city string, weightKg int) ([]domain.RateQuote, error) {
	payload, err := json.Marshal(rateRequest{
		Origin:      origin,
		Destination: city,
		WeightKg:    weightKg,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.cfg.BaseURL+"/v1/rates", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create rate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(ctx, req)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("shipping rate provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "shipping rate provider")
	}

	var rows []rateRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}

	quotes := make([]domain.RateQuote, 0, len(rows))
	for _, row := range rows {
		quotes = append(quotes, domain.RateQuote{
			Courier: row.Courier,
			Service: row.Service,
			Cost:    row.Price,
			ETD:     row.ETALabel,
		})
	}

	return quotes, nil
}
