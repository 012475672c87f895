package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/iwvelando/requisition-analyzer/internal/model"
	"go.uber.org/zap"
)

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(model.Principal)
	return p, ok
}

// SignToken issues an HS256 token for p. A zero ttl issues a token that
// does not expire.
func SignToken(secret []byte, p model.Principal, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is empty")
	}
	claims := Claims{
		Role: string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies token and returns the principal it names. Role names
// are passed through unchanged; unknown roles are refused later by the
// lifecycle permission checks.
func ParseToken(secret []byte, token string) (model.Principal, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return model.Principal{}, err
	}
	if !parsed.Valid {
		return model.Principal{}, errors.New("token is not valid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return model.Principal{}, errors.New("token has no subject")
	}
	return model.Principal{UserID: claims.Subject, Role: model.Role(claims.Role)}, nil
}

// requireAuth rejects requests without a valid bearer token and stores the
// token's principal in the request context.
func (h *handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(h.jwtSecret) == 0 {
			h.respondErrorWithOp(w, http.StatusServiceUnavailable, "authentication is not configured", "server.requireAuth")
			return
		}

		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="requisition-analyzer"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, "missing or malformed bearer token", "server.requireAuth")
			return
		}

		p, err := ParseToken(h.jwtSecret, strings.TrimSpace(token))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="requisition-analyzer", error="invalid_token"`)
			h.respondErrorWithOp(w, http.StatusUnauthorized, fmt.Sprintf("invalid bearer token: %v", err), "server.requireAuth")
			return
		}

		h.logger.Debug("request authenticated",
			zap.String("op", "server.requireAuth"),
			zap.String("user", p.UserID),
			zap.String("role", string(p.Role)),
			zap.String("path", r.URL.Path),
		)
		next(w, r.WithContext(WithPrincipal(r.Context(), p)))
	}
}
