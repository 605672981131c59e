package middleware

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/castle/internal/auth"
)

const adminRealm = `Basic realm="castle admin", charset="UTF-8"`

// RequireAdmin checks HTTP basic credentials against the configured admin
// username and bcrypt password hash, and populates AuthContext on success.
func RequireAdmin(username, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !checkAdmin(username, passwordHash, user, pass) {
				w.Header().Set("WWW-Authenticate", adminRealm)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := auth.WithAuth(r.Context(), auth.AuthContext{Username: user, Role: "admin"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func checkAdmin(wantUser, hash, user, pass string) bool {
	if hash == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass))
	return userOK && passErr == nil
}
