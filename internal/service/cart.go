// Package service implements the business logic on top of the repositories
// and provider adapters. Services validate input, enforce the domain rules,
// and publish domain events; all persistence happens through the repository
// interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/repository"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// Cart operation upper-bound limits to prevent abuse.
const (
	// MaxQuantityPerItem is the maximum quantity allowed for a single cart line.
	MaxQuantityPerItem = 100
	// MaxItemsPerCart is the maximum number of distinct lines allowed in a cart.
	MaxItemsPerCart = 50
)

// CartService implements the business logic for cart operations. A cart is
// identified by either a user id (authenticated) or a session id (guest),
// never both.
type CartService struct {
	carts    repository.CartRepository
	variants repository.VariantRepository
	vouchers repository.VoucherRepository
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts repository.CartRepository, variants repository.VariantRepository, vouchers repository.VoucherRepository, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		variants: variants,
		vouchers: vouchers,
		logger:   logger,
	}
}

// GetCart retrieves the cart for the given identity, creating an empty one if
// none exists. Expired guest carts are discarded and replaced.
func (s *CartService) GetCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	return s.getOrCreateCart(ctx, userID, sessionID)
}

// AddItem adds quantity of a variant to the cart, merging with an existing
// line for the same variant. The requested total is validated against the
// variant's current stock.
func (s *CartService) AddItem(ctx context.Context, userID, sessionID, variantID string, quantity int) (*domain.Cart, error) {
	if variantID == "" {
		return nil, apperrors.InvalidInput("variant id is required")
	}
	if quantity <= 0 {
		return nil, apperrors.InvalidInput("quantity must be greater than 0")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	variant, err := s.variants.GetByID(ctx, variantID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("variant", variantID)
		}
		return nil, fmt.Errorf("get variant: %w", err)
	}
	if !variant.IsActive {
		return nil, apperrors.InvalidInput("variant is not available for sale")
	}

	cart, err := s.getOrCreateCart(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	requested := quantity
	if line := cart.Item(variantID); line != nil {
		requested += line.Quantity
	} else if len(cart.Items) >= MaxItemsPerCart {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cart must not contain more than %d items", MaxItemsPerCart))
	}
	if requested > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("combined quantity must not exceed %d", MaxQuantityPerItem))
	}
	if requested > variant.Stock {
		return nil, apperrors.InsufficientStock(variant.SKU)
	}

	if err := s.carts.UpsertItem(ctx, cart.ID, variantID, quantity); err != nil {
		return nil, fmt.Errorf("upsert cart item: %w", err)
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("cart_id", cart.ID),
		slog.String("variant_id", variantID),
		slog.Int("quantity", quantity),
	)

	return s.reload(ctx, cart)
}

// UpdateItemQuantity replaces the quantity of a cart line. Quantity 0 removes
// the line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, sessionID, itemID string, quantity int) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}
	if quantity < 0 {
		return nil, apperrors.InvalidInput("quantity must not be negative")
	}
	if quantity > MaxQuantityPerItem {
		return nil, apperrors.InvalidInput(fmt.Sprintf("quantity must not exceed %d", MaxQuantityPerItem))
	}

	cart, err := s.getCart(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	var line *domain.CartItem
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			line = &cart.Items[i]
			break
		}
	}
	if line == nil {
		return nil, apperrors.NotFound("cart item", itemID)
	}

	if quantity == 0 {
		if err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
			return nil, fmt.Errorf("remove cart item: %w", err)
		}
	} else {
		if quantity > line.Stock {
			return nil, apperrors.InsufficientStock(line.SKU)
		}
		if err := s.carts.SetItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
			return nil, fmt.Errorf("set cart item quantity: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("cart_id", cart.ID),
		slog.String("item_id", itemID),
		slog.Int("quantity", quantity),
	)

	return s.reload(ctx, cart)
}

// RemoveItem deletes a cart line.
func (s *CartService) RemoveItem(ctx context.Context, userID, sessionID, itemID string) (*domain.Cart, error) {
	if itemID == "" {
		return nil, apperrors.InvalidInput("item id is required")
	}

	cart, err := s.getCart(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.carts.RemoveItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart item", itemID)
		}
		return nil, fmt.Errorf("remove cart item: %w", err)
	}

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("cart_id", cart.ID),
		slog.String("item_id", itemID),
	)

	return s.reload(ctx, cart)
}

// ClearCart removes all lines and any applied voucher.
func (s *CartService) ClearCart(ctx context.Context, userID, sessionID string) error {
	cart, err := s.getCart(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("cart_id", cart.ID),
	)

	return nil
}

// ApplyVoucher validates and attaches a voucher to the user's cart. Vouchers
// require an authenticated cart because redemption limits are tracked per
// user.
func (s *CartService) ApplyVoucher(ctx context.Context, userID, code string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("sign in to use a voucher")
	}
	if code == "" {
		return nil, apperrors.InvalidInput("voucher code is required")
	}

	cart, err := s.getCart(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperrors.EmptyCart()
	}

	voucher, err := s.vouchers.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("voucher", code)
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}

	usageCount, err := s.vouchers.CountUsagesByUser(ctx, voucher.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("count voucher usages: %w", err)
	}

	subtotal := cart.Totals().Subtotal
	if ok, reason := voucher.Validate(subtotal, usageCount, time.Now().UTC()); !ok {
		return nil, apperrors.InvalidInput(reason)
	}

	if err := s.carts.SetVoucher(ctx, cart.ID, &voucher.ID); err != nil {
		return nil, fmt.Errorf("set cart voucher: %w", err)
	}

	s.logger.InfoContext(ctx, "voucher applied to cart",
		slog.String("cart_id", cart.ID),
		slog.String("voucher_code", voucher.Code),
	)

	return s.reload(ctx, cart)
}

// RemoveVoucher detaches the cart's voucher.
func (s *CartService) RemoveVoucher(ctx context.Context, userID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("sign in to use a voucher")
	}

	cart, err := s.getCart(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	if err := s.carts.SetVoucher(ctx, cart.ID, nil); err != nil {
		return nil, fmt.Errorf("remove cart voucher: %w", err)
	}

	return s.reload(ctx, cart)
}

// MergeGuestCart folds a guest cart into the user's cart after login. A guest
// line whose quantity, combined with the user's existing line, would exceed
// the variant's stock is dropped silently and the user's line is left
// untouched. The guest cart is deleted even when it contributes nothing.
func (s *CartService) MergeGuestCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user id is required")
	}
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	guest, err := s.carts.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return s.getOrCreateCart(ctx, userID, "")
		}
		return nil, fmt.Errorf("get guest cart: %w", err)
	}

	userCart, err := s.getOrCreateCart(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	if guest.IsEmpty() || guest.IsExpired(time.Now().UTC()) {
		if err := s.carts.Delete(ctx, guest.ID); err != nil {
			return nil, fmt.Errorf("delete guest cart: %w", err)
		}
		return userCart, nil
	}

	existing := make(map[string]int, len(userCart.Items))
	for i := range userCart.Items {
		existing[userCart.Items[i].VariantID] = userCart.Items[i].Quantity
	}

	lines := make(map[string]int, len(guest.Items))
	dropped := 0
	for i := range guest.Items {
		item := &guest.Items[i]
		limit := item.Stock
		if limit > MaxQuantityPerItem {
			limit = MaxQuantityPerItem
		}
		combined := existing[item.VariantID] + item.Quantity
		if combined > limit {
			dropped++
			continue
		}
		lines[item.VariantID] = combined
	}

	if err := s.carts.MergeGuestIntoUser(ctx, guest.ID, userCart.ID, lines); err != nil {
		return nil, fmt.Errorf("merge guest cart: %w", err)
	}

	s.logger.InfoContext(ctx, "guest cart merged",
		slog.String("guest_cart_id", guest.ID),
		slog.String("user_cart_id", userCart.ID),
		slog.Int("merged_lines", len(lines)),
		slog.Int("dropped_lines", dropped),
	)

	return s.reload(ctx, userCart)
}

// getCart loads the cart for the identity, failing with ErrNotFound when none
// exists. An expired guest cart is deleted and reads as absent, so mutations
// cannot resurrect it.
func (s *CartService) getCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	var (
		cart *domain.Cart
		key  string
		err  error
	)
	switch {
	case userID != "" && sessionID != "":
		return nil, apperrors.InvalidInput("cart is identified by either user or session, not both")
	case userID != "":
		key = userID
		cart, err = s.carts.GetByUserID(ctx, userID)
	case sessionID != "":
		key = sessionID
		cart, err = s.carts.GetBySessionID(ctx, sessionID)
	default:
		return nil, apperrors.InvalidInput("a user or session is required")
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("cart", key)
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	if cart.IsExpired(time.Now().UTC()) {
		if err := s.carts.Delete(ctx, cart.ID); err != nil {
			return nil, fmt.Errorf("delete expired cart: %w", err)
		}
		return nil, apperrors.NotFound("cart", key)
	}
	return cart, nil
}

// getOrCreateCart loads the identity's cart, creating an empty one when it
// does not exist or has expired.
func (s *CartService) getOrCreateCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	cart, err := s.getCart(ctx, userID, sessionID)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return s.createCart(ctx, userID, sessionID)
	}
	return nil, err
}

func (s *CartService) createCart(ctx context.Context, userID, sessionID string) (*domain.Cart, error) {
	now := time.Now().UTC()
	cart := &domain.Cart{
		ID:        uuid.New().String(),
		UserID:    userID,
		SessionID: sessionID,
		Items:     []domain.CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if sessionID != "" {
		expires := now.Add(domain.GuestCartTTL)
		cart.ExpiresAt = &expires
	}

	if err := s.carts.Create(ctx, cart); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

// reload fetches the cart again so callers always see the post-mutation state
// with current variant rows joined in.
func (s *CartService) reload(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	fresh, err := s.getCart(ctx, cart.UserID, cart.SessionID)
	if err != nil {
		return nil, err
	}
	return fresh, nil
}
