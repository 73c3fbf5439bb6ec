// Package auth verifies the bearer tokens issued by the external identity
// provider and carries the resulting user id through the request context.
package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"finboard/internal/core"
)

// SessionCookie is checked when no Authorization header is present.
const SessionCookie = "__session"

type contextKey struct{}

// Verifier validates signed JWTs and returns their subject as the user id.
type Verifier struct {
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte, issuer string) *Verifier {
	return &Verifier{secret: secret, issuer: issuer}
}

// NewRSAVerifier verifies RS256 tokens against key.
func NewRSAVerifier(key *rsa.PublicKey, issuer string) *Verifier {
	return &Verifier{publicKey: key, issuer: issuer}
}

// NewVerifier picks RS256 when publicKeyFile is set, HS256 otherwise.
func NewVerifier(secret, publicKeyFile, issuer string) (*Verifier, error) {
	if publicKeyFile != "" {
		pem, err := os.ReadFile(publicKeyFile)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			return nil, fmt.Errorf("parse public key: %w", err)
		}
		return NewRSAVerifier(key, issuer), nil
	}
	if secret == "" {
		return nil, errors.New("no JWT secret or public key configured")
	}
	return NewHMACVerifier([]byte(secret), issuer), nil
}

func (v *Verifier) keyFunc(t *jwt.Token) (any, error) {
	if v.publicKey != nil {
		return v.publicKey, nil
	}
	return v.secret, nil
}

func (v *Verifier) methods() []string {
	if v.publicKey != nil {
		return []string{jwt.SigningMethodRS256.Alg()}
	}
	return []string{jwt.SigningMethodHS256.Alg()}
}

// Verify checks signature, expiry and issuer, and returns the token subject.
// Every failure is reported as core.ErrUnauthenticated.
func (v *Verifier) Verify(tokenStr string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(v.methods()),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, v.keyFunc, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrUnauthenticated, err)
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token has no subject", core.ErrUnauthenticated)
	}
	return claims.Subject, nil
}

// TokenFromRequest reads "Authorization: Bearer <token>", falling back to
// the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware rejects requests without a valid token by calling unauthorized,
// and otherwise stores the user id in the request context.
func Middleware(v *Verifier, unauthorized func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				unauthorized(w, r, core.ErrUnauthenticated)
				return
			}
			userID, err := v.Verify(token)
			if err != nil {
				unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user, or core.ErrUnauthenticated when the
// request never went through Middleware.
func UserID(ctx context.Context) (string, error) {
	if id, ok := ctx.Value(contextKey{}).(string); ok && id != "" {
		return id, nil
	}
	return "", core.ErrUnauthenticated
}
