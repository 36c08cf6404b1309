package userservice

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenIssuer = "bloglist"
	DefaultTokenTTL    = time.Hour
)

// TokenManager signs and verifies HS256 access tokens whose subject is the user id.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

type claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if issuer == "" {
		issuer = DefaultTokenIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

func (m *TokenManager) Sign(userID, username string) (string, error) {
	now := time.Now()
	c := claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(m.secret)
}

// Parse verifies the token and returns its subject.
func (m *TokenManager) Parse(tokenString string) (string, error) {
	var c claims

	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if c.Subject == "" {
		return "", fmt.Errorf("%w: token missing sub claim", ErrInvalidToken)
	}

	return c.Subject, nil
}
