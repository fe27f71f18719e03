package transport

import (
	"net/http"
	"time"

	"qrmenu/internal/config"
	"qrmenu/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StartSessionRequest carries the table identity decoded from the QR code
type StartSessionRequest struct {
	TableID string `json:"table_id" validate:"required,min=1,max=16"`
}

// StartSessionResponse returns the signed table-session token
type StartSessionResponse struct {
	Token     string `json:"token"`
	TableID   string `json:"table_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// SessionHandler issues table-session tokens when a QR code is scanned
type SessionHandler struct {
	cfg    config.SessionConfig
	logger *zap.Logger
}

func NewSessionHandler(cfg config.SessionConfig, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{cfg: cfg, logger: logger}
}

// RegisterRoutes registers the session routes
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/session", h.Start)
}

// Start creates a new table session
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Session request validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sessionID := uuid.New().String()
	expiresAt := time.Now().Add(time.Duration(h.cfg.ExpiryHours) * time.Hour)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid":   sessionID,
		"table": req.TableID,
		"exp":   jwt.NewNumericDate(expiresAt),
		"iat":   jwt.NewNumericDate(time.Now()),
	})

	signed, err := token.SignedString([]byte(h.cfg.Secret))
	if err != nil {
		h.logger.Error("Failed to sign session token", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	h.logger.Info("Table session started",
		zap.String("session_id", sessionID),
		zap.String("table_id", req.TableID),
	)

	middleware.RespondWithJSON(w, http.StatusCreated, StartSessionResponse{
		Token:     signed,
		TableID:   req.TableID,
		ExpiresAt: expiresAt.UnixMilli(),
	})
}
