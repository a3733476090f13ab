// Package storagetest provides an in-memory storage.TransactionRepository for tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
)

var _ storage.TransactionRepository = (*Memory)(nil)

type Memory struct {
	mu     sync.Mutex
	order  []string
	byCode map[string]*model.Transaction
	events map[string][]*model.Event
	Now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		byCode: make(map[string]*model.Transaction),
		events: make(map[string][]*model.Event),
		Now:    time.Now,
	}
}

func clone(m *model.Transaction) *model.Transaction {
	c := *m
	if m.Params != nil {
		c.Params = make(map[string]string, len(m.Params))
		for k, v := range m.Params {
			c.Params[k] = v
		}
	}
	return &c
}

func (s *Memory) Create(_ context.Context, in *model.Transaction) (*model.Transaction, error) {
	m := clone(in)
	if m.TotalPrice == 0 {
		m.TotalPrice = m.Price
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	m.ID = uuid.New()
	if m.Code == "" {
		m.Code = model.NewTransactionCode(now)
	}
	if _, ok := s.byCode[m.Code]; ok {
		return nil, apperr.ErrConflict
	}
	m.Status = model.StatusPending
	m.PaymentProofURL = ""
	m.GatewayRef = ""
	m.CreatedAt = now
	m.UpdatedAt = now

	s.byCode[m.Code] = m
	s.order = append(s.order, m.Code)
	s.appendEvent(&model.Event{Code: m.Code, ToStatus: m.Status, Message: "purchase requested", CreatedAt: now})

	return clone(m), nil
}

func (s *Memory) Read(_ context.Context, id uuid.UUID) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.byCode {
		if m.ID == id {
			return clone(m), nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (s *Memory) ReadByCode(_ context.Context, code string) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.byCode[code]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return clone(m), nil
}

func (s *Memory) All(ctx context.Context) ([]*model.Transaction, error) {
	return s.filter(func(*model.Transaction) bool { return true }), nil
}

func (s *Memory) AllByStatus(_ context.Context, status model.Status) ([]*model.Transaction, error) {
	return s.filter(func(m *model.Transaction) bool { return m.Status == status }), nil
}

func (s *Memory) filter(keep func(*model.Transaction) bool) []*model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]*model.Transaction, 0)
	for _, code := range s.order {
		if m := s.byCode[code]; keep(m) {
			res = append(res, clone(m))
		}
	}
	return res
}

func (s *Memory) mutate(code string, fn func(m *model.Transaction, now time.Time) (*model.Event, error)) (*model.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byCode[code]
	if !ok {
		return nil, apperr.ErrNotFound
	}

	m := clone(stored)
	now := s.Now()
	ev, err := fn(m, now)
	if err != nil {
		return nil, err
	}

	s.byCode[code] = m
	if ev != nil {
		ev.Code = code
		ev.CreatedAt = now
		s.appendEvent(ev)
	}

	return clone(m), nil
}

func (s *Memory) UpdateStatus(_ context.Context, code string, u storage.StatusUpdate) (*model.Transaction, error) {
	return s.mutate(code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
		from := m.Status
		if err := m.TransitionTo(u.Status, u.GatewayRef, now); err != nil {
			return nil, err
		}
		if u.Message != "" {
			m.GatewayMessage = u.Message
		}
		if u.Payload != nil {
			m.GatewayPayload = u.Payload
		}
		return &model.Event{FromStatus: from, ToStatus: m.Status, GatewayRef: u.GatewayRef, Message: u.Message, Actor: u.Actor}, nil
	})
}

func (s *Memory) RecordGatewayRef(_ context.Context, code string, ref string, actor string) (*model.Transaction, error) {
	return s.mutate(code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
		if ref == "" || ref == m.GatewayRef {
			return nil, nil
		}
		m.GatewayRef = ref
		m.UpdatedAt = now
		return &model.Event{FromStatus: m.Status, ToStatus: m.Status, GatewayRef: ref, Message: "gateway reference recorded", Actor: actor}, nil
	})
}

func (s *Memory) AttachProof(_ context.Context, code string, proofURL string) (*model.Transaction, error) {
	if proofURL == "" {
		return nil, fmt.Errorf("%w: empty payment proof reference", apperr.ErrInvalidInput)
	}
	return s.mutate(code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
		m.PaymentProofURL = proofURL
		m.UpdatedAt = now
		return &model.Event{FromStatus: m.Status, ToStatus: m.Status, Message: "payment proof attached", Actor: "customer"}, nil
	})
}

func (s *Memory) Events(_ context.Context, code string) ([]*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byCode[code]; !ok {
		return nil, apperr.ErrNotFound
	}
	res := make([]*model.Event, len(s.events[code]))
	copy(res, s.events[code])
	return res, nil
}

func (s *Memory) appendEvent(e *model.Event) {
	e.ID = uuid.New()
	s.events[e.Code] = append(s.events[e.Code], e)
}
