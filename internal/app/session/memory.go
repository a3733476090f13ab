package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
)

// session.Manager interface implementation
var _ Manager = (*Memory)(nil)

type (
	Memory struct {
		mu            sync.RWMutex
		issuer        string
		secretKey     []byte
		tokenLifetime time.Duration
		operators     storage.OperatorRepository
		db            MemoryDB
		now           func() time.Time
	}
	MemoryDB map[string]MemorySession
)

func (svc *Memory) LoggerComponent() string {
	return "Session.Memory"
}

func NewMemory(secretKey string, operators storage.OperatorRepository, opts ...MemoryOption) *Memory {
	var (
		defaultTokenLifeTime = 8 * time.Hour
	)

	s := &Memory{
		issuer:        "ppobmart",
		secretKey:     []byte(secretKey),
		operators:     operators,
		tokenLifetime: defaultTokenLifeTime,
		db:            make(MemoryDB),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type MemorySession struct {
	StartedAt  time.Time `json:"started_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	OperatorID uuid.UUID `json:"operator_id"`
}

// Create method of session.Creator implementation
func (svc *Memory) Create(ctx context.Context, u *model.Operator) (string, error) {
	l := logger.Get(ctx, svc)
	l.Debug().Str("operator_id", u.ID.String()).Msg("Create")

	id := uuid.New().String()

	now := svc.now()
	exp := now.Add(svc.tokenLifetime)

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        id,
			Subject:   u.Name,
			NotBefore: now.Unix(),
			ExpiresAt: exp.Unix(),
			Issuer:    svc.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	strToken, err := token.SignedString(svc.secretKey)
	if err != nil {
		l.Error().Err(err).Send()

		return "", fmt.Errorf("jwt encode: %w", err)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.purge(now)
	svc.db[id] = MemorySession{
		OperatorID: u.ID,
		StartedAt:  now,
		ExpiresAt:  exp,
	}

	return strToken, nil
}

// Read method of session.Reader implementation
func (svc *Memory) Read(ctx context.Context, tokenString string) (*model.Operator, error) {
	l := logger.Get(ctx, svc)
	l.Debug().Msg("Read request")

	c := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return svc.secretKey, nil
	})

	if err != nil {
		l.Debug().Err(err).Msg("ParseWithClaims failed")

		return nil, ErrInvalidToken
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		l.Debug().Msg("Invalid token")

		return nil, ErrInvalidToken
	}

	svc.mu.Lock()
	s, ok := svc.db[c.StandardClaims.Id]
	if ok && s.ExpiresAt.Before(svc.now()) {
		l.Debug().
			Str("session_id", c.StandardClaims.Id).
			Str("operator_id", s.OperatorID.String()).
			Msg("Session expired")
		delete(svc.db, c.StandardClaims.Id)
		ok = false
	}
	svc.mu.Unlock()

	if !ok {
		l.Debug().Msg("Session not found")

		return nil, ErrInvalidToken
	}

	u, err := svc.operators.Read(ctx, s.OperatorID)
	if err != nil {
		l.Debug().Err(err).Send()

		return nil, ErrInvalidToken
	}

	return u, nil
}

// Revoke ends the session behind tokenString, if any.
func (svc *Memory) Revoke(_ context.Context, tokenString string) {
	c := &Claims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, c); err != nil {
		return
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	delete(svc.db, c.StandardClaims.Id)
}

// purge drops expired sessions, callers hold mu.
func (svc *Memory) purge(now time.Time) {
	for id, s := range svc.db {
		if s.ExpiresAt.Before(now) {
			delete(svc.db, id)
		}
	}
}
