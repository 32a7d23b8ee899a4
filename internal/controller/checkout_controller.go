package controller

import (
	"net/http"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/order"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CheckoutController handles order creation and lookup.
type CheckoutController struct {
	createOrder *checkout.CreateOrderUseCase
	orderRepo   order.Repository
}

// NewCheckoutController creates a new CheckoutController.
func NewCheckoutController(createOrder *checkout.CreateOrderUseCase, orderRepo order.Repository) *CheckoutController {
	return &CheckoutController{
		createOrder: createOrder,
		orderRepo:   orderRepo,
	}
}

// Create handles POST /api/v1/orders
func (h *CheckoutController) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]checkout.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid product_id", Code: "invalid_id"})
			return
		}
		items = append(items, checkout.ItemRequest{ProductID: productID, Quantity: it.Quantity})
	}

	resp, err := h.createOrder.Execute(r.Context(), checkout.CreateOrderRequest{
		UserID: req.UserID,
		Items:  items,
		ShippingInfo: order.ShippingInfo{
			Name:       req.ShippingInfo.Name,
			Email:      req.ShippingInfo.Email,
			Phone:      req.ShippingInfo.Phone,
			Address:    req.ShippingInfo.Address,
			City:       req.ShippingInfo.City,
			Province:   req.ShippingInfo.Province,
			PostalCode: req.ShippingInfo.PostalCode,
		},
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, &CheckoutResponse{
		Order:      FromOrder(resp.Order),
		FormAction: resp.FormAction,
		FormFields: resp.FormFields,
	})
}

// Get handles GET /api/v1/orders/{id}
func (h *CheckoutController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: "invalid_id"})
		return
	}

	o, err := h.orderRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromOrder(o))
}
