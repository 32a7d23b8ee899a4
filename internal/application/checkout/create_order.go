package checkout

import (
	"context"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/cassiomorais/checkout/internal/gateway"
	"github.com/rs/zerolog"
)

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	UserID       string
	Items        []ItemRequest
	ShippingInfo order.ShippingInfo
}

// CreateOrderResponse carries the pending order plus the signed gateway
// redirect form the storefront posts the customer to.
type CreateOrderResponse struct {
	Order      *order.Order
	FormAction string
	FormFields *gateway.FormFields
}

// CreateOrderUseCase validates, prices and persists a PENDING order, then
// signs the gateway form for it.
type CreateOrderUseCase struct {
	validator   *OrderValidator
	orderRepo   order.Repository
	formBuilder *gateway.FormBuilder
	logger      zerolog.Logger
}

func NewCreateOrderUseCase(
	validator *OrderValidator,
	orderRepo order.Repository,
	formBuilder *gateway.FormBuilder,
	logger zerolog.Logger,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		validator:   validator,
		orderRepo:   orderRepo,
		formBuilder: formBuilder,
		logger:      logger.With().Str("component", "create_order").Logger(),
	}
}

// Execute runs checkout for one order.
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if req.UserID == "" {
		return nil, domainErrors.NewValidationError("userId", "cannot be empty")
	}

	validated, err := uc.validator.Validate(ctx, req.Items, req.ShippingInfo.City)
	if err != nil {
		return nil, err
	}

	o, err := order.New(
		req.UserID,
		validated.Items,
		req.ShippingInfo,
		validated.SubtotalCents,
		validated.ShippingCents,
		validated.TaxCents,
	)
	if err != nil {
		return nil, err
	}

	if err := uc.orderRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	fields, err := uc.formBuilder.Build(o.TotalCents, o.TransactionUUID)
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("order_id", o.ID.String()).
		Str("transaction_uuid", o.TransactionUUID).
		Int64("total_cents", o.TotalCents).
		Msg("Order created")

	return &CreateOrderResponse{
		Order:      o,
		FormAction: uc.formBuilder.FormAction(),
		FormFields: fields,
	}, nil
}
