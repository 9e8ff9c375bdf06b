package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken is returned when a bearer token fails verification for any
// reason: malformed encoding, bad signature, or expiry.
var ErrInvalidToken = errors.New("auth: invalid token")

// Claims is the verified identity carried by a token.
type Claims struct {
	// Tenant is the tenant this token is bound to.
	Tenant string `json:"tenant"`
	// ExpMs is an optional expiry in Unix milliseconds. Zero means no expiry.
	ExpMs int64 `json:"expMs,omitempty"`
}

var enc = base64.RawURLEncoding

// Mint produces a signed token for the given claims:
// base64url(claimsJSON) + "." + base64url(HMAC-SHA256(claimsJSON)).
func Mint(secret string, claims Claims) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty secret")
	}
	body, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	return enc.EncodeToString(body) + "." + enc.EncodeToString(sign(secret, body)), nil
}

// Verify checks the token signature and expiry and returns the claims.
// Any failure maps to ErrInvalidToken; callers decide whether that is fatal.
func Verify(secret, token string) (Claims, error) {
	if secret == "" || token == "" {
		return Claims{}, ErrInvalidToken
	}
	dot := strings.IndexByte(token, '.')
	if dot <= 0 || dot == len(token)-1 {
		return Claims{}, ErrInvalidToken
	}
	body, err := enc.DecodeString(token[:dot])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	sig, err := enc.DecodeString(token[dot+1:])
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal(sig, sign(secret, body)) {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(body, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.ExpMs > 0 && claims.ExpMs < time.Now().UnixMilli() {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
