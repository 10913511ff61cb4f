// Package auth guards routes with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/ignite/blacklist-api/internal/pkg/httputil"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
)

// Rejection messages returned in the 401 envelope.
const (
	MsgMissingToken  = "Token de autorización requerido"
	MsgInvalidFormat = "Formato de autorización inválido"
	MsgInvalidToken  = "Token inválido"
)

// BearerGuard rejects requests whose Authorization header does not carry the
// configured token. An empty token rejects every request.
type BearerGuard struct {
	token []byte
}

// NewBearerGuard creates a guard for the given shared secret.
func NewBearerGuard(token string) *BearerGuard {
	return &BearerGuard{token: []byte(token)}
}

// Require is chi-compatible middleware. The wrapped handler only runs when
// the token matches exactly.
func (g *BearerGuard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if msg, ok := g.check(r.Header.Get("Authorization")); !ok {
			logger.Warn("auth: request rejected",
				"reason", msg,
				"method", r.Method,
				"path", r.URL.Path,
				"remote_ip", httputil.ClientIP(r),
				"request_id", httputil.RequestID(r),
			)
			httputil.Fail(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *BearerGuard) check(header string) (string, bool) {
	if header == "" {
		return MsgMissingToken, false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return MsgInvalidFormat, false
	}
	if len(g.token) == 0 || subtle.ConstantTimeCompare([]byte(parts[1]), g.token) != 1 {
		return MsgInvalidToken, false
	}
	return "", true
}
