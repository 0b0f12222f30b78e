package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout gives every request context a deadline of d. It never
// writes a response itself: storage calls return context.DeadlineExceeded
// and the handler answers, so the status line is written exactly once.
func RequestTimeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(fn)
	}
}
