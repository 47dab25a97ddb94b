package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/daho-labs/payflow/internal/port"
)

type contextKey string

const buyerIDKey contextKey = "buyer_id"

// BuyerID returns the authenticated buyer from the request context, or ""
// when the request carried no valid session.
func BuyerID(ctx context.Context) string {
	id, _ := ctx.Value(buyerIDKey).(string)
	return id
}

// Auth resolves the Bearer token to a buyer id and injects it into the
// request context. Requests without a valid session get a 401.
func Auth(sessions port.SessionStore, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
				return
			}

			buyerID, err := sessions.BuyerID(r.Context(), token)
			if err != nil {
				if errors.Is(err, port.ErrSessionNotFound) {
					writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired session"})
					return
				}
				logger.Error().Err(err).Msg("session lookup failed")
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
				return
			}

			ctx := context.WithValue(r.Context(), buyerIDKey, buyerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS sets permissive headers on every response and answers OPTIONS
// preflights with 200, matching what browser callers expect.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return after
	}
	return ""
}
