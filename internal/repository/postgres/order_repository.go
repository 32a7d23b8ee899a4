package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	shippingInfo, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO orders
		 (id, user_id, items, transaction_uuid, gateway_ref_id,
		  subtotal_cents, shipping_cents, tax_cents, total_cents,
		  status, delivery_status, shipping_info, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.UserID, items, o.TransactionUUID, o.GatewayRefID,
		o.SubtotalCents, o.ShippingCents, o.TaxCents, o.TotalCents,
		string(o.Status), string(o.DeliveryStatus), shippingInfo, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		selectOrderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByTransactionUUID retrieves an order by the gateway join key.
func (r *OrderRepository) GetByTransactionUUID(ctx context.Context, txnUUID string) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		selectOrderColumns+` FROM orders WHERE transaction_uuid = $1`, txnUUID))
}

// CompleteIfPending flips the order to COMPLETED only if it is still PENDING.
// The conditional UPDATE is the single point of serialization for concurrent
// webhook deliveries; the loser of the race sees zero rows affected.
func (r *OrderRepository) CompleteIfPending(ctx context.Context, txnUUID string, gatewayRefID string) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders
		 SET status = 'COMPLETED',
		     gateway_ref_id = COALESCE(gateway_ref_id, $2),
		     updated_at = NOW()
		 WHERE transaction_uuid = $1 AND status = 'PENDING'`,
		txnUUID, nullIfEmpty(gatewayRefID),
	)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "already completed" from "no such order".
		var exists bool
		err := r.db(ctx).QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE transaction_uuid = $1)`, txnUUID,
		).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("check order existence: %w", err)
		}
		if !exists {
			return false, domainErrors.ErrOrderNotFound
		}
		return false, nil
	}
	return true, nil
}

// MarkFailed flips a PENDING order to FAILED.
func (r *OrderRepository) MarkFailed(ctx context.Context, txnUUID string) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET status = 'FAILED', updated_at = NOW()
		 WHERE transaction_uuid = $1 AND status = 'PENDING'`,
		txnUUID,
	)
	if err != nil {
		return fmt.Errorf("mark order failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOptimisticLockFailed
	}
	return nil
}

// UpdateDeliveryStatus updates the fulfillment axis.
func (r *OrderRepository) UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status order.DeliveryStatus) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET delivery_status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

const selectOrderColumns = `SELECT id, user_id, items, transaction_uuid, gateway_ref_id,
       subtotal_cents, shipping_cents, tax_cents, total_cents,
       status, delivery_status, shipping_info, created_at, updated_at`

func (r *OrderRepository) scanOrder(row scanner) (*order.Order, error) {
	var (
		o            order.Order
		status       string
		delivery     string
		items        []byte
		shippingInfo []byte
	)

	err := row.Scan(
		&o.ID, &o.UserID, &items, &o.TransactionUUID, &o.GatewayRefID,
		&o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.TotalCents,
		&status, &delivery, &shippingInfo, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shippingInfo, &o.ShippingInfo); err != nil {
		return nil, fmt.Errorf("unmarshal shipping info: %w", err)
	}
	o.Status = order.OrderStatus(status)
	o.DeliveryStatus = order.DeliveryStatus(delivery)
	return &o, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
