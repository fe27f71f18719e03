package transport

import (
	"net/http"

	"qrmenu/internal/catalog"
	"qrmenu/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MenuHandler serves the normalized menu. Listing calls always return
// 200 with an array; upstream failures surface as an empty menu.
type MenuHandler struct {
	catalog *catalog.Service
	logger  *zap.Logger
}

func NewMenuHandler(catalogService *catalog.Service, logger *zap.Logger) *MenuHandler {
	return &MenuHandler{catalog: catalogService, logger: logger}
}

// RegisterRoutes registers the menu routes
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/menu", func(r chi.Router) {
		r.Get("/categories", h.Categories)
		r.Get("/products", h.Products)
	})
}

// Categories returns every category with its matched products
func (h *MenuHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories := h.catalog.Categories(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

// Products returns the currently selling products, optionally scoped to
// one category via ?category_uid=
func (h *MenuHandler) Products(w http.ResponseWriter, r *http.Request) {
	categoryUID := r.URL.Query().Get("category_uid")
	products := h.catalog.SellingProducts(r.Context(), categoryUID)
	middleware.RespondWithJSON(w, http.StatusOK, products)
}
