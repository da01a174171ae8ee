package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/hostgate/domain-proxy/pkg/logger"
)

// AdminAuthConfig contains admin API authentication configuration
type AdminAuthConfig struct {
	Enabled   bool   `yaml:"enabled"`
	SecretKey string `yaml:"secret_key"`
}

// AdminAuth guards the admin cache-purge routes with HMAC-signed bearer
// tokens. The proxied traffic itself is never authenticated here.
type AdminAuth struct {
	config AdminAuthConfig
	logger *logger.Logger
}

// NewAdminAuth creates the admin auth middleware.
func NewAdminAuth(config AdminAuthConfig, log *logger.Logger) *AdminAuth {
	return &AdminAuth{
		config: config,
		logger: log.MiddlewareLogger("admin_auth"),
	}
}

// Middleware validates the Authorization bearer token on every request.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := extractBearerToken(r)
		if tokenString == "" {
			a.logger.WithField("path", r.URL.Path).Warn("Admin request without bearer token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(a.config.SecretKey), nil
		})
		if err != nil || !token.Valid {
			a.logger.WithField("path", r.URL.Path).Warn("Admin request with invalid token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractBearerToken pulls the token from the Authorization header.
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
