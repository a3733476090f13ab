// Package lifecycle moves transactions through their status machine and drives the provider.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/xid"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/lock"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
	"ppobmart/pkg/indotel"
)

const (
	ActorCustomer = "customer"
	ActorOperator = "operator"
	ActorSync     = "sync"
)

// Service serializes status mutations per transaction code through a lock.Locker.
// Provider calls run outside the lock, their outcome is applied only while the
// transaction is still processing.
type Service struct {
	store          storage.TransactionRepository
	gateway        Gateway
	locks          lock.Locker
	gatewayTimeout time.Duration

	mu      sync.Mutex
	flights map[string]struct{}
	wg      sync.WaitGroup
}

type Option func(*Service)

func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locks = l
	}
}

// WithGatewayTimeout bounds a provider call once the caller stopped waiting for it.
func WithGatewayTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.gatewayTimeout = d
		}
	}
}

func New(store storage.TransactionRepository, gateway Gateway, opts ...Option) *Service {
	s := &Service{
		store:          store,
		gateway:        gateway,
		locks:          lock.NewKeyed(),
		gatewayTimeout: time.Minute,
		flights:        make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) LoggerComponent() string {
	return "Lifecycle.Service"
}

// Purchase is a purchase intent.
type Purchase struct {
	ProductCode    string
	ProductName    string
	Category       string
	ProductType    model.ProductType
	CustomerID     string
	CustomerNumber string
	Params         map[string]string
	Price          int64
	TotalPrice     int64
}

// CreatePurchase stores a new pending transaction. The provider is not called.
func (s *Service) CreatePurchase(ctx context.Context, in Purchase) (*model.Transaction, error) {
	l := logger.Get(ctx, s)

	m, err := s.store.Create(ctx, &model.Transaction{
		ProductCode:    in.ProductCode,
		ProductName:    in.ProductName,
		Category:       in.Category,
		ProductType:    in.ProductType,
		CustomerID:     in.CustomerID,
		CustomerNumber: in.CustomerNumber,
		Params:         in.Params,
		Price:          in.Price,
		TotalPrice:     in.TotalPrice,
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	l.Info().Str("code", m.Code).Str("product", m.ProductCode).Int64("total", m.TotalPrice).Msg("Purchase created")

	return m, nil
}

func (s *Service) Get(ctx context.Context, code string) (*model.Transaction, error) {
	return s.store.ReadByCode(ctx, code)
}

// List returns all transactions, or those in status when it is not empty.
func (s *Service) List(ctx context.Context, status model.Status) ([]*model.Transaction, error) {
	if status == "" {
		return s.store.All(ctx)
	}
	return s.store.AllByStatus(ctx, status)
}

func (s *Service) Events(ctx context.Context, code string) ([]*model.Event, error) {
	return s.store.Events(ctx, code)
}

// Approve moves a pending transaction to processing and settles it with the provider.
// Provider failures never surface as errors: a business rejection ends in failed,
// anything else leaves the transaction processing for follow-up.
func (s *Service) Approve(ctx context.Context, code string, actor string) (*model.Transaction, error) {
	m, err := s.transition(ctx, code, model.StatusPending, storage.StatusUpdate{
		Status:  model.StatusProcessing,
		Message: "approved",
		Actor:   actor,
	})
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", code, err)
	}

	return s.dispatch(ctx, m, actor, s.settle)
}

// Retry sends a failed transaction back to processing and settles it again with the same code.
func (s *Service) Retry(ctx context.Context, code string, actor string) (*model.Transaction, error) {
	m, err := s.transition(ctx, code, model.StatusFailed, storage.StatusUpdate{
		Status:  model.StatusProcessing,
		Message: "retry requested",
		Actor:   actor,
	})
	if err != nil {
		return nil, fmt.Errorf("retry %s: %w", code, err)
	}

	return s.dispatch(ctx, m, actor, s.settle)
}

// Resettle repeats the settle call of a processing transaction that never got a gateway reference.
func (s *Service) Resettle(ctx context.Context, code string, actor string) (*model.Transaction, error) {
	m, err := s.claim(ctx, code, func(m *model.Transaction) error {
		if m.Status != model.StatusProcessing {
			return fmt.Errorf("%w: resettle from %s", apperr.ErrInvalidTransition, m.Status)
		}
		if m.GatewayRef != "" {
			return fmt.Errorf("%w: gateway reference %s already recorded, reconcile instead", apperr.ErrConflict, m.GatewayRef)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("resettle %s: %w", code, err)
	}

	return s.dispatch(ctx, m, actor, s.settle)
}

// Reconcile asks the provider for the status of a processing transaction.
// Transactions past processing are returned as they are.
func (s *Service) Reconcile(ctx context.Context, code string, actor string) (*model.Transaction, error) {
	var settled bool
	m, err := s.claim(ctx, code, func(m *model.Transaction) error {
		if m.GatewayRef == "" {
			return apperr.ErrNoGatewayReference
		}
		if m.Status != model.StatusProcessing {
			settled = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", code, err)
	}
	if settled {
		return m, nil
	}

	return s.dispatch(ctx, m, actor, s.checkStatus)
}

// Reject cancels a pending or processing transaction. Rejecting twice is a no-op.
func (s *Service) Reject(ctx context.Context, code string, actor string) (*model.Transaction, error) {
	l := logger.Get(ctx, s)

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("reject %s: lock: %w", code, err)
	}
	defer unlock()

	m, err := s.store.ReadByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("reject %s: %w", code, err)
	}
	if m.Status == model.StatusRejected {
		return m, nil
	}

	m, err = s.store.UpdateStatus(ctx, code, storage.StatusUpdate{
		Status:  model.StatusRejected,
		Message: "rejected",
		Actor:   actor,
	})
	if err != nil {
		return nil, fmt.Errorf("reject %s: %w", code, err)
	}

	l.Info().Str("code", code).Str("actor", actor).Msg("Transaction rejected")

	return m, nil
}

// Quote runs a postpaid inquiry. Nothing is stored.
func (s *Service) Quote(ctx context.Context, productCode string, customerNumber string, params map[string]string) (*indotel.Result, error) {
	if productCode == "" || customerNumber == "" {
		return nil, fmt.Errorf("%w: product code and customer number are required", apperr.ErrInvalidInput)
	}

	return s.gateway.Inquire(ctx, &indotel.Request{
		Reference:      "INQ" + strings.ToUpper(xid.New().String()),
		ProductCode:    productCode,
		CustomerNumber: customerNumber,
		Postpaid:       true,
		Params:         params,
	})
}

// Wait blocks until detached provider calls are done.
func (s *Service) Wait() {
	s.wg.Wait()
}

// transition applies u to a transaction found in status from and claims its provider flight.
func (s *Service) transition(ctx context.Context, code string, from model.Status, u storage.StatusUpdate) (*model.Transaction, error) {
	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	defer unlock()

	m, err := s.store.ReadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if m.Status != from {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, m.Status, u.Status)
	}
	if !s.beginFlight(code) {
		return nil, fmt.Errorf("%w: gateway call in flight", apperr.ErrConflict)
	}

	m, err = s.store.UpdateStatus(ctx, code, u)
	if err != nil {
		s.endFlight(code)
		return nil, err
	}

	l := logger.Get(ctx, s)
	l.Info().Str("code", code).Str("from", string(from)).Str("to", string(m.Status)).Str("actor", u.Actor).Msg("Transaction moved")

	return m, nil
}

// claim checks the transaction under its lock and claims its provider flight.
func (s *Service) claim(ctx context.Context, code string, check func(m *model.Transaction) error) (*model.Transaction, error) {
	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}
	defer unlock()

	m, err := s.store.ReadByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := check(m); err != nil {
		return nil, err
	}
	if m.Status != model.StatusProcessing {
		return m, nil
	}
	if !s.beginFlight(code) {
		return nil, fmt.Errorf("%w: gateway call in flight", apperr.ErrConflict)
	}

	return m, nil
}

func (s *Service) beginFlight(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flights[code]; ok {
		return false
	}
	s.flights[code] = struct{}{}
	return true
}

func (s *Service) endFlight(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flights, code)
}

type gatewayCall func(ctx context.Context, m *model.Transaction) (*indotel.Result, error)

type outcome struct {
	m   *model.Transaction
	err error
}

// dispatch runs call detached from ctx. The caller may stop waiting, the reply is applied anyway.
func (s *Service) dispatch(ctx context.Context, m *model.Transaction, actor string, call gatewayCall) (*model.Transaction, error) {
	l := logger.Get(ctx, s).With().Str("code", m.Code).Logger()

	done := make(chan outcome, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.endFlight(m.Code)

		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
		defer cancel()

		res, gwErr := call(gctx, m)
		t, err := s.apply(gctx, m.Code, actor, res, gwErr)
		done <- outcome{m: t, err: err}
	}()

	select {
	case o := <-done:
		return o.m, o.err
	case <-ctx.Done():
		l.Warn().Err(ctx.Err()).Msg("Caller gone, gateway call continues in background")
		return nil, fmt.Errorf("%s: %w", m.Code, ctx.Err())
	}
}

func request(m *model.Transaction) *indotel.Request {
	return &indotel.Request{
		Reference:      m.Code,
		ProductCode:    m.ProductCode,
		CustomerNumber: m.CustomerNumber,
		Postpaid:       m.ProductType == model.ProductTypePostpaid,
		Params:         m.Params,
	}
}

func (s *Service) settle(ctx context.Context, m *model.Transaction) (*indotel.Result, error) {
	return s.gateway.Settle(ctx, request(m))
}

func (s *Service) checkStatus(ctx context.Context, m *model.Transaction) (*indotel.Result, error) {
	return s.gateway.CheckStatus(ctx, m.GatewayRef)
}

// update maps a provider reply to the status change it asks for.
func update(actor string, res *indotel.Result, gwErr error) storage.StatusUpdate {
	u := storage.StatusUpdate{Status: model.StatusProcessing, Actor: actor}
	if res != nil {
		u.Message = res.Message
		u.Payload = res.Raw
	}

	var rejected *indotel.RejectedError
	switch {
	case gwErr == nil && res.Succeeded():
		u.Status = model.StatusSuccess
		u.GatewayRef = res.ProviderRef
	case gwErr == nil && res != nil && res.Outcome == indotel.OutcomePending:
		u.GatewayRef = res.ProviderRef
	case errors.As(gwErr, &rejected):
		u.Status = model.StatusFailed
		u.Message = rejected.Message
		if len(rejected.Raw) > 0 && u.Payload == nil {
			u.Payload = rejected.Raw
		}
		if res != nil {
			u.GatewayRef = res.ProviderRef
		}
	case gwErr != nil:
		u.Message = gwErr.Error()
	}

	if u.Message == "" {
		u.Message = "gateway reply without message"
	}

	return u
}

// apply stores the provider outcome if the transaction is still processing.
// A stale reply only leaves its gateway reference behind.
func (s *Service) apply(ctx context.Context, code string, actor string, res *indotel.Result, gwErr error) (*model.Transaction, error) {
	l := logger.Get(ctx, s).With().Str("code", code).Logger()
	u := update(actor, res, gwErr)

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s: lock: %w", code, err)
	}
	defer unlock()

	cur, err := s.store.ReadByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if cur.Status == model.StatusProcessing {
		m, err := s.store.UpdateStatus(ctx, code, u)
		if err == nil {
			l.Info().Str("status", string(m.Status)).Str("ref", m.GatewayRef).Str("message", u.Message).Msg("Gateway outcome applied")
			return m, nil
		}
		if !errors.Is(err, apperr.ErrInvalidTransition) {
			l.Error().Err(err).Msg("Gateway outcome not stored")
			return nil, err
		}
	}

	l.Warn().Str("status", string(cur.Status)).Str("outcome", string(u.Status)).Msg("Stale gateway reply dropped")

	if u.GatewayRef == "" {
		return cur, nil
	}

	m, err := s.store.RecordGatewayRef(ctx, code, u.GatewayRef, actor)
	if err != nil {
		l.Error().Err(err).Str("ref", u.GatewayRef).Msg("Gateway reference not recorded")
		return cur, nil
	}

	return m, nil
}
