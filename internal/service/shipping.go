package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/provider/shipping"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// ShippingService quotes courier rates for a cart against a stored address.
// Quotes are cached per origin, destination city, and chargeable weight; a
// cache miss falls through to the rate provider, never the other way round.
type ShippingService struct {
	addresses repository.AddressRepository
	carts     repository.CartRepository
	cache     repository.RateCache
	provider  shipping.RateProvider
	origin    string
	logger    *slog.Logger
}

// NewShippingService creates a new shipping service. origin is the warehouse
// city all shipments depart from.
func NewShippingService(addresses repository.AddressRepository, carts repository.CartRepository, cache repository.RateCache, provider shipping.RateProvider, origin string, logger *slog.Logger) *ShippingService {
	return &ShippingService{
		addresses: addresses,
		carts:     carts,
		cache:     cache,
		provider:  provider,
		origin:    origin,
		logger:    logger,
	}
}

// QuoteForCart returns courier options for the user's cart shipped to the
// given address.
func (s *ShippingService) QuoteForCart(ctx context.Context, userID, addressID string) ([]domain.RateQuote, error) {
	if addressID == "" {
		return nil, apperrors.InvalidInput("address id is required")
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.EmptyCart()
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	address, err := s.addresses.GetByID(ctx, addressID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("address", addressID)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}

	return s.Quote(ctx, address.City, cart.TotalWeightGrams())
}

// Quote returns courier options for a shipment of the given gram weight to
// the destination city, consulting the cache first.
func (s *ShippingService) Quote(ctx context.Context, city string, weightGrams int) ([]domain.RateQuote, error) {
	kg := domain.ChargeableWeightKg(weightGrams)

	quotes, found, err := s.cache.Get(ctx, s.origin, city, kg)
	if err != nil {
		s.logger.WarnContext(ctx, "rate cache read failed",
			slog.String("city", city),
			slog.Int("weight_kg", kg),
			slog.String("error", err.Error()),
		)
	}
	if found {
		return quotes, nil
	}

	quotes, err = s.provider.Quote(ctx, s.origin, city, kg)
	if err != nil {
		return nil, apperrors.ShippingCalculationFailed(err)
	}

	if err := s.cache.Set(ctx, s.origin, city, kg, quotes); err != nil {
		s.logger.WarnContext(ctx, "rate cache write failed",
			slog.String("city", city),
			slog.Int("weight_kg", kg),
			slog.String("error", err.Error()),
		)
	}

	return quotes, nil
}

// SelectQuote re-quotes the shipment and returns the option matching the
// chosen courier and service. Checkout goes through this so the shipping cost
// an order freezes is always a provider-quoted one.
func (s *ShippingService) SelectQuote(ctx context.Context, city string, weightGrams int, courier, svc string) (*domain.RateQuote, error) {
	quotes, err := s.Quote(ctx, city, weightGrams)
	if err != nil {
		return nil, err
	}

	for i := range quotes {
		if quotes[i].Courier == courier && quotes[i].Service == svc {
			return &quotes[i], nil
		}
	}
	return nil, apperrors.InvalidShippingService(courier + "/" + svc)
}
