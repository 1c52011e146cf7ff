package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/oakmart/orderd/internal/domain/auth"
)

type ctxKey int

const userIDKey ctxKey = iota

// UserID returns the authenticated user for the request, established by the
// authenticate middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// authenticate resolves the X-API-Key header to a user. On success the user
// ID is placed in the request context; otherwise the request is rejected
// with 401.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		if key == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "missing api key")
			return
		}

		hash := auth.HashKey(h.pepper, key)
		info, err := h.apikeys.FindByHash(r.Context(), hash)
		if err != nil {
			zctx.From(r.Context()).Debug("api key rejected", zap.Error(err))
			writeErrorMessage(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		// Constant-time comparison guards against a repository returning a
		// stale row with a different hash.
		if subtle.ConstantTimeCompare([]byte(hash), []byte(info.KeyHash)) != 1 {
			writeErrorMessage(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, info.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
