package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/product"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductRepository implements product.Repository using PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func (r *ProductRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	var (
		p      product.Product
		status string
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, title, stock_quantity, status,
		        original_price_cents, discount_price_cents, tax_rate, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.Title, &p.StockQuantity, &status,
		&p.OriginalPriceCents, &p.DiscountPriceCents, &p.TaxRate, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrProductNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Status = product.ProductStatus(status)
	return &p, nil
}

// DecrementStock subtracts qty in a single conditional UPDATE. The guard
// stock_quantity >= qty makes the decrement atomic per row and bounds stock
// at zero; the status flip to out-of-stock rides the same statement.
func (r *ProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	var remaining int
	err := r.db(ctx).QueryRow(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2,
		     status = CASE WHEN stock_quantity - $2 <= 0 THEN 'out-of-stock' ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1 AND stock_quantity >= $2
		 RETURNING stock_quantity`,
		id, qty,
	).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the product is unknown or its stock is insufficient.
			var exists bool
			if qErr := r.db(ctx).QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id,
			).Scan(&exists); qErr != nil {
				return 0, fmt.Errorf("check product existence: %w", qErr)
			}
			if !exists {
				return 0, domainErrors.ErrProductNotFound
			}
			return 0, domainErrors.ErrInsufficientStock
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return remaining, nil
}
