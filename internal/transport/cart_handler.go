package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"qrmenu/internal/cart"
	"qrmenu/internal/domain"
	"qrmenu/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AddItemRequest adds a product to the cart
type AddItemRequest struct {
	Product      domain.Product `json:"product" validate:"required"`
	Quantity     int            `json:"quantity" validate:"gte=0,lte=99"`
	Instructions string         `json:"instructions" validate:"max=500"`
}

// UpdateItemRequest changes a line's quantity; zero removes the line
type UpdateItemRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,lte=99"`
}

// CartResponse is the cart state with derived totals
type CartResponse struct {
	Items     domain.CartState `json:"items"`
	Total     float64          `json:"total"`
	ItemCount int              `json:"item_count"`
}

// CartHandler exposes the cart store over HTTP, including a server-sent
// event stream of cart states for live badges.
type CartHandler struct {
	cart   *cart.Store
	logger *zap.Logger
}

func NewCartHandler(cartStore *cart.Store, logger *zap.Logger) *CartHandler {
	return &CartHandler{cart: cartStore, logger: logger}
}

// RegisterRoutes registers the cart routes behind the session middleware
func (h *CartHandler) RegisterRoutes(r chi.Router, sessionMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(sessionMiddleware)
		r.Get("/", h.Get)
		r.Delete("/", h.Clear)
		r.Get("/stream", h.Stream)
		r.Post("/items", h.AddItem)
		r.Put("/items/{productID}", h.UpdateItem)
		r.Delete("/items/{productID}", h.RemoveItem)
	})
}

// Get returns the current cart state
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.cartResponse())
}

// AddItem merges a product into the cart
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Add item validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	h.cart.Add(req.Product, quantity)
	if req.Instructions != "" {
		h.cart.SetInstructions(req.Product.ID, req.Instructions)
	}

	middleware.RespondWithJSON(w, http.StatusOK, h.cartResponse())
}

// UpdateItem sets a line's quantity; zero or below removes it
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req UpdateItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Update item validation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.cart.SetQuantity(productID, req.Quantity)
	middleware.RespondWithJSON(w, http.StatusOK, h.cartResponse())
}

// RemoveItem drops a line from the cart
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	h.cart.Remove(productID)
	middleware.RespondWithJSON(w, http.StatusOK, h.cartResponse())
}

// Clear empties the cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	middleware.RespondWithJSON(w, http.StatusOK, h.cartResponse())
}

// Stream pushes every published cart state to the client as server-sent
// events until the client disconnects.
func (h *CartHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		middleware.RespondWithError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// The subscriber callback must not block the store's synchronous
	// publication, so states are bridged through a buffered channel and
	// stale intermediate states may be coalesced for slow clients.
	updates := make(chan domain.CartState, 16)
	id := h.cart.Subscribe(func(state domain.CartState) {
		select {
		case updates <- state:
		default:
		}
	})
	defer h.cart.Unsubscribe(id)

	for {
		select {
		case <-r.Context().Done():
			return
		case state := <-updates:
			payload, err := json.Marshal(CartResponse{
				Items:     state,
				Total:     state.Total(),
				ItemCount: state.ItemCount(),
			})
			if err != nil {
				h.logger.Error("Failed to encode cart state", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (h *CartHandler) cartResponse() CartResponse {
	state := h.cart.Lines()
	return CartResponse{
		Items:     state,
		Total:     state.Total(),
		ItemCount: state.ItemCount(),
	}
}
