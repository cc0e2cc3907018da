package web

import (
	"net/http"

	"github.com/JonMunkholm/serialyear/internal/history"
	mw "github.com/JonMunkholm/serialyear/internal/web/middleware"
)

// withClientMetadata stores the client address and User-Agent on the
// request context so history entries can be stamped with them.
// It must run after TrustedRealIP.
func withClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := history.ContextWithClient(r.Context(), mw.ClientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
