package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/stacklight/identity-server-go/internal/errors"
)

const refreshTokenBytes = 32

// AccessClaims are the self-contained claims carried by an access token.
// They are verifiable without a store lookup.
type AccessClaims struct {
	IsAdmin bool `json:"adm"`
	jwt.RegisteredClaims
}

// Codec mints and verifies signed access tokens and generates opaque
// refresh-token strings.
type Codec struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewCodec(secret string, accessTTL time.Duration) *Codec {
	return &Codec{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// MintAccessToken produces a short-lived HS512-signed token for the
// given subject email and admin flag.
func (c *Codec) MintAccessToken(subjectEmail string, isAdmin bool) (string, error) {
	now := c.now()
	claims := AccessClaims{
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectEmail,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", apperrors.Internal("Failed to sign access token").WithCause(err)
	}
	return signed, nil
}

// VerifyAccessToken checks signature, format and expiry.
func (c *Codec) VerifyAccessToken(tokenStr string) (*AccessClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, apperrors.InvalidToken("Invalid access token").WithCause(err)
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return nil, apperrors.InvalidToken("Invalid access token")
	}
	return claims, nil
}

// MintRefreshToken returns an opaque random string with 256 bits of
// entropy, suitable as a store lookup key.
func (c *Codec) MintRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Internal("Failed to generate refresh token").WithCause(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
