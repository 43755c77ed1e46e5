package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/internal/domain"
	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/database"
	apperrors "github.com/kantiss1998/ansania-ecommerce-sub000/pkg/errors"
)

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	pool database.DBTX
}

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(pool database.DBTX) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// GetByID retrieves an address, scoped to its owning user.
func (r *AddressRepository) GetByID(ctx context.Context, id, userID string) (*domain.Address, error) {
	query := `
		SELECT id, user_id, recipient_name, phone, street, city, province,
			postal_code, is_default, created_at, updated_at
		FROM addresses
		WHERE id = $1 AND user_id = $2`

	var a domain.Address
	err := r.pool.QueryRow(ctx, query, id, userID).Scan(
		&a.ID,
		&a.UserID,
		&a.RecipientName,
		&a.Phone,
		&a.Street,
		&a.City,
		&a.Province,
		&a.PostalCode,
		&a.IsDefault,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return &a, nil
}
