package transport

import (
	"net/http"

	"qrmenu/internal/checkout"
	"qrmenu/internal/domain"
	"qrmenu/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckoutRequest carries the customer's checkout input; the table comes
// from the session and the items from the cart store.
type CheckoutRequest struct {
	Name          string `json:"name" validate:"required,min=2,max=100"`
	Phone         string `json:"phone" validate:"required,min=6,max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
	Notes         string `json:"notes" validate:"max=500"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card cash mock"`
}

// CheckoutHandler runs checkout and serves the local order history
type CheckoutHandler struct {
	checkout *checkout.Service
	logger   *zap.Logger
}

func NewCheckoutHandler(checkoutService *checkout.Service, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkoutService, logger: logger}
}

// RegisterRoutes registers the checkout routes behind the session middleware
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Post("/api/checkout", h.Submit)
		r.Get("/api/orders", h.History)
	})
}

// Submit builds the order from the cart and submits it. The response is
// always a terminal OrderResult; an upstream failure shows up as an
// offline-flagged confirmation, never an error status.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Checkout validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tableID, ok := middleware.GetTableID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusUnauthorized, "missing table session")
		return
	}

	order := h.checkout.BuildOrder(tableID, domain.CustomerInfo{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
		Notes: req.Notes,
	}, req.PaymentMethod)

	if len(order.Items) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	result := h.checkout.Submit(r.Context(), order)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// History returns the locally persisted order log
func (h *CheckoutHandler) History(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.checkout.History(r.Context()))
}
