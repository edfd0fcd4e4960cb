package utils

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	set := JWKS{Keys: []JWK{{
		Kid: kid,
		Kty: "RSA",
		Alg: "RS256",
		Use: "sig",
		N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestJWKSValidator_ValidateToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "kid-1", &key.PublicKey)

	v := NewJWKSValidator(srv.URL)
	v.jwksURL = srv.URL

	token := signToken(t, key, "kid-1", jwt.MapClaims{
		"sub":           "user-1",
		"iss":           srv.URL,
		"exp":           time.Now().Add(time.Hour).Unix(),
		"custom:org_id": "org-1",
	})

	claims, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims["sub"])
	assert.Equal(t, "org-1", claims["custom:org_id"])
}

func TestJWKSValidator_RejectsWrongIssuerAndExpired(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "kid-1", &key.PublicKey)

	v := NewJWKSValidator(srv.URL)
	v.jwksURL = srv.URL

	wrongIssuer := signToken(t, key, "kid-1", jwt.MapClaims{
		"iss": "https://elsewhere.example.com",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.ValidateToken(context.Background(), wrongIssuer)
	assert.Error(t, err)

	expired := signToken(t, key, "kid-1", jwt.MapClaims{
		"iss": srv.URL,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.ValidateToken(context.Background(), expired)
	assert.Error(t, err)
}

func TestJWKSValidator_UnknownKid(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	srv := jwksServer(t, "kid-1", &key.PublicKey)

	v := NewJWKSValidator(srv.URL)
	v.jwksURL = srv.URL

	token := signToken(t, key, "kid-2", jwt.MapClaims{
		"iss": srv.URL,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}
