package controller

import (
	"time"

	"github.com/cassiomorais/checkout/internal/domain/dlq"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (float64 for money, string for IDs,
// validation tags). Controllers convert these before calling business logic;
// clients never submit prices, only product references and quantities.

// OrderItemRequest is one requested line item.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=100"`
}

// ShippingInfoRequest is the delivery destination supplied at checkout.
type ShippingInfoRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	UserID       string              `json:"user_id" validate:"required"`
	Items        []OrderItemRequest  `json:"items" validate:"required,min=1,dive"`
	ShippingInfo ShippingInfoRequest `json:"shipping_info" validate:"required"`
}

// WebhookRequest is the gateway's payment callback body.
type WebhookRequest struct {
	TransactionUUID string `json:"transaction_uuid" validate:"required"`
	TransactionCode string `json:"transaction_code"`
	Status          string `json:"status" validate:"required"`
	TotalAmount     string `json:"total_amount" validate:"required"`
	Signature       string `json:"signature"`
	Timestamp       string `json:"timestamp"`
}

// StatusCheckRequest asks for reconciliation through the gateway status API.
type StatusCheckRequest struct {
	TransactionUUID string `json:"transaction_uuid" validate:"required"`
}

// UpdateDeliveryStatusRequest moves an order along the fulfillment axis.
type UpdateDeliveryStatusRequest struct {
	DeliveryStatus string `json:"delivery_status" validate:"required,oneof=PENDING SHIPPED DELIVERED CANCELLED"`
}

// --- Response DTOs ---

// OrderItemResponse represents a line item in API responses.
type OrderItemResponse struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	TransactionUUID string              `json:"transaction_uuid"`
	GatewayRefID    *string             `json:"gateway_ref_id,omitempty"`
	Items           []OrderItemResponse `json:"items"`
	Subtotal        float64             `json:"subtotal"`
	ShippingCharge  float64             `json:"shipping_charge"`
	Tax             float64             `json:"tax"`
	Total           float64             `json:"total"`
	Status          string              `json:"status"`
	DeliveryStatus  string              `json:"delivery_status"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// CheckoutResponse carries the created order plus the signed gateway form the
// storefront renders for the customer redirect.
type CheckoutResponse struct {
	Order      *OrderResponse      `json:"order"`
	FormAction string              `json:"form_action"`
	FormFields *gateway.FormFields `json:"form_fields"`
}

// ReconcileResponse acknowledges a webhook delivery or status check.
type ReconcileResponse struct {
	Result          string `json:"result"`
	TransactionUUID string `json:"transaction_uuid"`
	OrderStatus     string `json:"order_status"`
}

// FailedPaymentResponse represents a DLQ record in API responses.
type FailedPaymentResponse struct {
	ID              string    `json:"id"`
	OrderID         string    `json:"order_id"`
	TransactionUUID string    `json:"transaction_uuid"`
	Amount          float64   `json:"amount"`
	ReportedStatus  string    `json:"reported_status"`
	LastError       string    `json:"last_error"`
	RetryCount      int       `json:"retry_count"`
	MaxRetries      int       `json:"max_retries"`
	Exhausted       bool      `json:"exhausted"`
	NextRetryAt     time.Time `json:"next_retry_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromOrder converts a domain order to API response.
func FromOrder(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID.String(),
			Quantity:  it.Quantity,
			UnitPrice: centsToFloat(it.PriceCents),
		})
	}
	return &OrderResponse{
		ID:              o.ID.String(),
		UserID:          o.UserID,
		TransactionUUID: o.TransactionUUID,
		GatewayRefID:    o.GatewayRefID,
		Items:           items,
		Subtotal:        centsToFloat(o.SubtotalCents),
		ShippingCharge:  centsToFloat(o.ShippingCents),
		Tax:             centsToFloat(o.TaxCents),
		Total:           centsToFloat(o.TotalCents),
		Status:          string(o.Status),
		DeliveryStatus:  string(o.DeliveryStatus),
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// FromFailedPayment converts a DLQ record to API response.
func FromFailedPayment(f *dlq.FailedPayment) *FailedPaymentResponse {
	return &FailedPaymentResponse{
		ID:              f.ID.String(),
		OrderID:         f.OrderID.String(),
		TransactionUUID: f.TransactionUUID,
		Amount:          centsToFloat(f.AmountCents),
		ReportedStatus:  f.ReportedStatus,
		LastError:       f.LastError,
		RetryCount:      f.RetryCount,
		MaxRetries:      f.MaxRetries,
		Exhausted:       f.Exhausted(),
		NextRetryAt:     f.NextRetryAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// centsToFloat converts cents to a float currency amount.
func centsToFloat(cents int64) float64 {
	return float64(cents) / 100.0
}
