package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	HeaderDeviceID = "X-Device-Id"

	deviceSessionName = "vendo-device"
	deviceSessionKey  = "device_id"
)

// NewDeviceStore returns the cookie store that remembers a browser's device id.
func NewDeviceStore(secret string) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 365,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Device resolves the calling device and stores its id in the request context.
// An explicit X-Device-Id header wins; otherwise the id lives in a signed
// session cookie and is minted on first contact. Reservations are scoped to it
// the same way browser local storage is scoped to one browser.
func Device(store sessions.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := strings.TrimSpace(r.Header.Get(HeaderDeviceID)); id != "" {
				next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
				return
			}

			// A cookie that fails to decode yields a fresh session.
			sess, _ := store.Get(r, deviceSessionName)
			id, _ := sess.Values[deviceSessionKey].(string)
			if id == "" {
				id = uuid.NewString()
				sess.Values[deviceSessionKey] = id
				if err := sess.Save(r, w); err != nil {
					WriteError(w, r, http.StatusInternalServerError, "failed to persist device session")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id)))
		})
	}
}

func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxDeviceID, id)
}

func GetDeviceID(ctx context.Context) string {
	if v := ctx.Value(ctxDeviceID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
