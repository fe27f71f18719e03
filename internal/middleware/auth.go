package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	SessionIDKey contextKey = "session_id"
	TableIDKey   contextKey = "table_id"
)

// SessionMiddleware validates table-session tokens issued at QR scan and
// extracts the session and table identity into the request context.
func SessionMiddleware(sessionSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Debug("Missing authorization header")
				RespondWithError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Debug("Invalid authorization header format")
				RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			tokenString := parts[1]

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(sessionSecret), nil
			})

			if err != nil {
				logger.Debug("Session token validation failed", zap.Error(err))
				if errors.Is(err, jwt.ErrTokenExpired) {
					RespondWithError(w, http.StatusUnauthorized, "session expired")
				} else {
					RespondWithError(w, http.StatusUnauthorized, "invalid session token")
				}
				return
			}

			if !token.Valid {
				logger.Debug("Invalid session token")
				RespondWithError(w, http.StatusUnauthorized, "invalid session token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				logger.Error("Failed to extract claims from session token")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			sessionID, ok := claims["sid"].(string)
			if !ok {
				logger.Error("Missing sid in session claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			tableID, ok := claims["table"].(string)
			if !ok {
				logger.Error("Missing table in session claims")
				RespondWithError(w, http.StatusUnauthorized, "invalid session claims")
				return
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			ctx = context.WithValue(ctx, TableIDKey, tableID)

			logger.Debug("Session authenticated",
				zap.String("session_id", sessionID),
				zap.String("table_id", tableID),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID extracts the session id from request context
func GetSessionID(ctx context.Context) (string, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(string)
	return sessionID, ok
}

// GetTableID extracts the table id from request context
func GetTableID(ctx context.Context) (string, bool) {
	tableID, ok := ctx.Value(TableIDKey).(string)
	return tableID, ok
}
