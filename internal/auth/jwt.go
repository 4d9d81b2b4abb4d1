package auth

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// DefaultExpiryWindow is how close to expiry a token must be before it is
// proactively refreshed.
const DefaultExpiryWindow = 5 * time.Minute

// Claims is the payload the backend embeds in its access tokens.
type Claims struct {
	UserID int64       `json:"user_id"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// parser is only used for segment decoding; signatures are never checked here.
var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode reads the claims out of a bearer token without verifying its
// signature. It returns false for anything that is not three dot-separated
// segments with a base64url JSON object in the middle.
//
// The result is a convenience for display and routing. Access decisions
// belong to the backend.
func Decode(token string) (*Claims, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, false
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, false
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, false
	}
	return claims, true
}

// ExpiresWithin reports whether the token expires within window of now.
// Undecodable tokens and tokens without an exp claim count as expiring.
func ExpiresWithin(token string, window time.Duration, now time.Time) bool {
	claims, ok := Decode(token)
	if !ok || claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Time.Sub(now) < window
}

// Expiry returns the token's exp claim, or the zero time.
func Expiry(token string) time.Time {
	claims, ok := Decode(token)
	if !ok || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
