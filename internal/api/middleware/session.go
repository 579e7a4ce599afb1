package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/example/nazareth-shop/internal/auth"
)

const CartSessionTTL = 30 * 24 * time.Hour

type cartSessionKey struct{}

// CartSession makes sure every request carries a browsing session id. The
// id names the cart and the recently-viewed list.
func CartSession(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(auth.CartCookieName); err == nil {
				if _, perr := uuid.Parse(c.Value); perr == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     auth.CartCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(CartSessionTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cartSessionKey{}, id)))
		})
	}
}

// CartSessionID returns the session id set by CartSession.
func CartSessionID(ctx context.Context) string {
	id, _ := ctx.Value(cartSessionKey{}).(string)
	return id
}
