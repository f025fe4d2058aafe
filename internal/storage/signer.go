// Package storage issues short-lived URLs for viewing uploaded receipt images.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid file token")

type Signer struct {
	baseURL string
	key     []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewSigner(baseURL, key string, ttl time.Duration) *Signer {
	return &Signer{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     []byte(key),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignedURL returns BaseURL/<path>?token=<jwt>. The token names the path and expires after the TTL,
// so URLs are issued per response and never stored.
func (s *Signer) SignedURL(path string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", fmt.Errorf("empty receipt path")
	}

	now := s.now()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   path,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("signing url: %w", err)
	}

	escaped := (&url.URL{Path: path}).EscapedPath()

	return s.baseURL + "/" + escaped + "?" + url.Values{"token": {token}}.Encode(), nil
}

// Verify checks that token grants access to path.
func (s *Signer) Verify(path, token string) error {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject != strings.TrimLeft(path, "/") {
		return fmt.Errorf("%w: token issued for another file", ErrInvalidToken)
	}

	return nil
}
