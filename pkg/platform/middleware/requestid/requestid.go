// Package requestid assigns every request a correlation ID carried through
// logs, events and the response.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"infrastat/pkg/requestcontext"
)

// Header is the wire name of the correlation ID.
const Header = "X-Request-ID"

// Middleware adopts the caller's X-Request-ID or mints one, stores it in the
// context and echoes it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(Header, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
