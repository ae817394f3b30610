package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie names the cookie carrying the cart id of a browser.
const SessionCookie = "cart_id"

const sessionMaxAge = 30 * 24 * time.Hour

type sessionKey struct{}

// Session makes sure every request carries a cart id. Missing or malformed cookies
// are replaced with a fresh uuid.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			if uid, err := uuid.Parse(c.Value); err == nil {
				id = uid.String()
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(sessionMaxAge / time.Second),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// SessionID returns the cart id stored by Session, or "" outside of it.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
