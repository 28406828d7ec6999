package middleware

import (
	"net/http"

	"github.com/rs/xid"

	"github.com/darmiel/idtoken/internal/correlation"
)

func CorrelationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(correlation.Header)
		if id == "" {
			id = xid.New().String()
		}
		w.Header().Set(correlation.Header, id)

		next.ServeHTTP(w, r.WithContext(correlation.WithID(r.Context(), id)))
	})
}
