package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"ppobmart/internal/app/model"
)

var ErrInvalidToken = errors.New("invalid token")

type (
	// Creator issues a token for an authenticated operator
	Creator interface {
		Create(ctx context.Context, u *model.Operator) (string, error)
	}
	// Reader resolves a token back to its operator
	Reader interface {
		Read(ctx context.Context, token string) (*model.Operator, error)
	}
	// Revoker ends a session before it expires
	Revoker interface {
		Revoke(ctx context.Context, token string)
	}
	Manager interface {
		Creator
		Reader
		Revoker
	}
)

type Claims struct {
	jwt.StandardClaims
}

type MemoryOption func(*Memory)

func WithTokenLifetime(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.tokenLifetime = d
		}
	}
}

func WithIssuer(issuer string) MemoryOption {
	return func(m *Memory) {
		m.issuer = issuer
	}
}
