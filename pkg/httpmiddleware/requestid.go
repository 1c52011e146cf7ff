package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is the header used to propagate request identifiers.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext extracts the request ID stored by RequestID.
// It returns an empty string if none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID returns a middleware that tags every request with an identifier.
// An incoming X-Request-ID header is reused when it is a well-formed UUID;
// anything else is replaced with a fresh UUID v4.
//
// The identifier is set on the response X-Request-ID header and stored in
// the request context (retrieve with RequestIDFromContext).
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if uuid.Validate(id) != nil {
				id = uuid.New().String()
			}

			w.Header().Set(HeaderRequestID, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
