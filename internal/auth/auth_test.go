package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   sub,
		Issuer:    "https://id.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
}

func TestVerifyHMAC(t *testing.T) {
	v := NewHMACVerifier(testSecret, "https://id.example.com")

	expired := validClaims("user_1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noExp := validClaims("user_1")
	noExp.ExpiresAt = nil
	wrongIssuer := validClaims("user_1")
	wrongIssuer.Issuer = "https://evil.example.com"

	tests := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, testSecret, validClaims("user_1")), "user_1", false},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user_1")), "", true},
		{"expired", sign(t, jwt.SigningMethodHS256, testSecret, expired), "", true},
		{"no expiry", sign(t, jwt.SigningMethodHS256, testSecret, noExp), "", true},
		{"wrong issuer", sign(t, jwt.SigningMethodHS256, testSecret, wrongIssuer), "", true},
		{"no subject", sign(t, jwt.SigningMethodHS256, testSecret, validClaims("")), "", true},
		{"garbage", "not-a-token", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrUnauthenticated)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerifyRSAFromFile(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), 0o600))

	v, err := NewVerifier("", path, "")
	require.NoError(t, err)

	got, err := v.Verify(sign(t, jwt.SigningMethodRS256, key, validClaims("user_rsa")))
	require.NoError(t, err)
	assert.Equal(t, "user_rsa", got)

	// An HS256 token must not be accepted by an RS256 verifier.
	_, err = v.Verify(sign(t, jwt.SigningMethodHS256, testSecret, validClaims("user_rsa")))
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}

func TestNewVerifierRequiresKey(t *testing.T) {
	_, err := NewVerifier("", "", "")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	v := NewHMACVerifier(testSecret, "")
	var gotUser string
	h := Middleware(v, func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	token := sign(t, jwt.SigningMethodHS256, testSecret, validClaims("user_1"))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("basic scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("bearer header", func(t *testing.T) {
		gotUser = ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user_1", gotUser)
	})

	t.Run("session cookie", func(t *testing.T) {
		gotUser = ""
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "user_1", gotUser)
	})
}

func TestUserIDWithoutMiddleware(t *testing.T) {
	_, err := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.ErrorIs(t, err, core.ErrUnauthenticated)
}
