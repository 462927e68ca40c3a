// Copyright (c) 2025-2026 Cross Point Baptist Church
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every token failure mode: bad signature, malformed
// structure, wrong signing method, or expiry in the past. Callers must not
// distinguish between them.
var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and validates admin bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

const tokenIssuerName = "cpbc-volunteer-app"

// NewTokenIssuer creates a TokenIssuer with the given signing secret and
// token lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (t *TokenIssuer) SetClock(now func() time.Time) {
	t.now = now
}

// Issue creates a signed bearer token carrying the admin's email, expiring
// after the configured lifetime.
func (t *TokenIssuer) Issue(email string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		Issuer:    tokenIssuerName,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify validates a bearer token and returns the email it carries.
// Any failure yields ErrInvalidToken; the token says nothing about whether
// the account still exists or is active, so callers must re-resolve it.
func (t *TokenIssuer) Verify(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return t.now() }), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
