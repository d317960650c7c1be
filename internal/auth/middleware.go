package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Valtis/videosite/internal/apperror"
	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "user_id"

// SessionCookieName is the fallback carrier when a caller has no
// Authorization header, mirroring how browser-facing clients attach the
// identity token.
const SessionCookieName = "session"

// Middleware authenticates every request behind it, preferring a Bearer
// token in the Authorization header and falling back to the session cookie.
func Middleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				apperror.WriteJSON(w, r, apperror.ErrAuthMissing)
				return
			}

			userID, err := v.VerifyUserID(tokenString)
			if err != nil {
				apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrAuthMissing))
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimPrefix(header, prefix)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// UserID returns the caller id set by Middleware.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// OptionalMiddleware attaches the caller's id when a valid bearer token or
// session cookie is present, but never rejects the request for its absence
// or invalidity — for routes where a public resource is reachable
// anonymously and an owned one requires the id to check against.
func OptionalMiddleware(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := v.VerifyUserID(tokenString)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
