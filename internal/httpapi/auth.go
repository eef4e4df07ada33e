package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthConfig configures the optional bearer-auth middleware mounted in
// front of the artifact routes. The core protocol is identical whether
// or not this is enabled — it is a deployment-time access-control layer,
// not part of the transcoding cache's own behavior.
type AuthConfig struct {
	Enabled bool
	Secret  string
	Issuer  string
}

// bearerAuth validates an HS256 JWT bearer token against cfg.Secret (and
// cfg.Issuer, when set), returning 401 for a missing/malformed/invalid
// token. It carries no notion of user identity or roles — it simply
// answers "is this caller allowed to reach the artifact routes at all".
func bearerAuth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := extractBearerToken(r)
			if err != nil {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			if err := validateBearerToken(token, cfg); err != nil {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("httpapi: missing or malformed Authorization header")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", errors.New("httpapi: empty bearer token")
	}
	return token, nil
}

func validateBearerToken(tokenString string, cfg AuthConfig) error {
	claims := jwt.RegisteredClaims{}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, parserOpts...)
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("httpapi: bearer token failed validation")
	}
	return nil
}
