package auth

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiback/tiback-client/internal/core/domain"
)

func signToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecode(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, Claims{
		UserID: 42,
		Email:  "ana@example.com",
		Role:   domain.RoleAnalista,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	claims, ok := Decode(token)
	require.True(t, ok)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.Equal(t, domain.RoleAnalista, claims.Role)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestDecode_IgnoresSignature(t *testing.T) {
	token := signToken(t, Claims{UserID: 7, Role: domain.RoleCliente})
	tampered := token[:len(token)-4] + "AAAA"

	claims, ok := Decode(tampered)
	require.True(t, ok)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestDecode_Malformed(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separators", "abc"},
		{"one separator", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"invalid base64", "x.!!!.y"},
		{"not json", "x." + enc([]byte("hello")) + ".y"},
		{"json array", "x." + enc([]byte(`[1,2]`)) + ".y"},
		{"json null", "x." + enc([]byte(`null`)) + ".y"},
		{"wrong field type", "x." + enc([]byte(`{"user_id":"abc"}`)) + ".y"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := Decode(tt.token)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestDecode_PaddedSegment(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"user_id":1,"role":"cliente"}`))
	claims, ok := Decode("h." + payload + ".s")
	require.True(t, ok)
	assert.Equal(t, domain.RoleCliente, claims.Role)
}

func TestExpiresWithin(t *testing.T) {
	now := time.Now()

	fresh := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))}})
	soon := signToken(t, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(2 * time.Minute))}})
	noExp := signToken(t, Claims{UserID: 1})

	assert.False(t, ExpiresWithin(fresh, DefaultExpiryWindow, now))
	assert.True(t, ExpiresWithin(soon, DefaultExpiryWindow, now))
	assert.True(t, ExpiresWithin(noExp, DefaultExpiryWindow, now))
	assert.True(t, ExpiresWithin("garbage", DefaultExpiryWindow, now))

	assert.WithinDuration(t, now.Add(time.Hour), Expiry(fresh), time.Second)
	assert.True(t, Expiry("garbage").IsZero())
}
