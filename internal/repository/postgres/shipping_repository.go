package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ShippingRepository implements shipping.Repository using PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository creates a new ShippingRepository.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

func (r *ShippingRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// ChargeForCity returns the flat charge for an active city. City matching is
// case-insensitive; a miss means free shipping, not an error.
func (r *ShippingRepository) ChargeForCity(ctx context.Context, city string) (int64, error) {
	var charge int64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT charge_cents FROM shipping_cities
		 WHERE LOWER(name) = LOWER($1) AND is_active = TRUE`,
		city,
	).Scan(&charge)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("query shipping charge: %w", err)
	}
	return charge, nil
}
