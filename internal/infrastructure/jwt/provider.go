package jwtinfra

import (
	"errors"
	"time"

	"github.com/go-shop-nosql/internal/config"
	"github.com/go-shop-nosql/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every verification failure: bad signature, expiry, malformed token.
var ErrInvalidToken = errors.New("invalid token")

// Claims holds the JWT payload fields.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 JWTs with a shared secret.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewProvider(cfg *config.Config) *Provider {
	return &Provider{secret: []byte(cfg.JWTSecret), expiry: cfg.JWTExpiry, now: time.Now}
}

func (p *Provider) Sign(id domain.Identity) (string, error) {
	now := p.now()
	claims := Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify checks signature and expiry only; tokens cannot be revoked.
func (p *Provider) Verify(tokenStr string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &domain.Identity{UserID: claims.UserID, Email: claims.Email, Name: claims.Name}, nil
}
