package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/service/lifecycle"
)

var ErrRetryableError = errors.New("retryable")

type Job func() error

// Lifecycle is the part of lifecycle.Service the syncer drives.
type Lifecycle interface {
	List(ctx context.Context, status model.Status) ([]*model.Transaction, error)
	Reconcile(ctx context.Context, code string, actor string) (*model.Transaction, error)
	Resettle(ctx context.Context, code string, actor string) (*model.Transaction, error)
}

var _ Lifecycle = (*lifecycle.Service)(nil)

// Service follows up processing transactions: those with a gateway reference are
// reconciled, those without one are settled again when retrySettle is on.
type Service struct {
	mu     sync.Mutex
	logger logger.Logger
	wg     sync.WaitGroup

	lifecycle Lifecycle
	jobs      chan Job
	stopCh    chan struct{}
	stopOnce  sync.Once

	fetchInterval time.Duration
	retryDelay    time.Duration
	jobTimeout    time.Duration
	numWorkers    int
	retrySettle   bool
	maxAttempts   int

	attempts map[string]int
	queued   map[string]bool
}

type Option func(*Service)

func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchInterval = d
		}
	}
}

func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.numWorkers = n
		}
	}
}

// WithRetrySettle enables settling again transactions that never reached the provider.
func WithRetrySettle(on bool) Option {
	return func(s *Service) {
		s.retrySettle = on
	}
}

// WithMaxAttempts caps follow-ups per transaction for the process lifetime.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(s *Service) {
		s.retryDelay = d
	}
}

func New(lc Lifecycle, opts ...Option) *Service {
	s := &Service{
		logger:        logger.Global().WithComponent("Sync.Service"),
		lifecycle:     lc,
		fetchInterval: time.Minute,
		retryDelay:    time.Second,
		jobTimeout:    90 * time.Second,
		numWorkers:    2,
		retrySettle:   true,
		maxAttempts:   5,
		jobs:          make(chan Job),
		stopCh:        make(chan struct{}),
		attempts:      make(map[string]int),
		queued:        make(map[string]bool),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the workers and the scan ticker.
func (s *Service) Start() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go func(workerID int, l logger.Logger) {
			defer s.wg.Done()
			for {
				select {
				case <-s.stopCh:
					return
				case job := <-s.jobs:
					id := uuid.New()
					ll := l.With().Int("worker_id", workerID).Str("job_id", id.String()).Logger()
					ll.Debug().Msg("Running job")
					if err := job(); err != nil {
						if !errors.Is(err, ErrRetryableError) {
							ll.Error().Err(err).Msg("Job failed")
							continue
						}
						ll.Warn().Err(err).Msg("Job failed, retrying")
						s.wg.Add(1)
						go func() {
							defer s.wg.Done()
							s.retry(job)
						}()
						continue
					}
					ll.Debug().Msg("Job done")
				}
			}
		}(i, s.logger)
	}

	s.wg.Add(1)
	go func(l logger.Logger, fetchInterval time.Duration) {
		defer s.wg.Done()
		t := time.NewTimer(fetchInterval)
		for {
			select {
			case <-s.stopCh:
				t.Stop()
				return
			case <-t.C:
				l.Debug().Msg("Scanning processing transactions")
				if _, err := s.Scan(context.Background()); err != nil {
					l.Error().Err(err).Msg("Scan failed")
				}
				t.Reset(fetchInterval)
			}
		}
	}(s.logger, s.fetchInterval)
}

func (s *Service) retry(job Job) {
	select {
	case <-s.stopCh:
		return
	case <-time.After(s.retryDelay):
	}
	s.Run(job)
}

// Stop stops the workers and waits for running jobs.
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Debug().Msg("Service shutdown")
		close(s.stopCh)
	})
	s.wg.Wait()
}

// Run hands a job to a worker. It returns false once the service is stopped.
func (s *Service) Run(job Job) bool {
	select {
	case <-s.stopCh:
		return false
	case s.jobs <- job:
		return true
	}
}

// Scan enqueues a follow-up for every processing transaction that has attempts left.
func (s *Service) Scan(ctx context.Context) (int, error) {
	mm, err := s.lifecycle.List(ctx, model.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list processing: %w", err)
	}

	n := 0
	for _, m := range mm {
		var job Job
		switch {
		case m.GatewayRef != "":
			job = s.ReconcileJob(m.Code)
		case s.retrySettle:
			job = s.ResettleJob(m.Code)
		default:
			continue
		}

		if !s.claim(m.Code) {
			continue
		}
		if !s.Run(job) {
			s.release(m.Code)
			break
		}
		n++
	}

	return n, nil
}

func (s *Service) claim(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queued[code] {
		return false
	}
	if s.attempts[code] >= s.maxAttempts {
		if s.attempts[code] == s.maxAttempts {
			s.logger.Warn().Str("code", code).Int("attempts", s.attempts[code]).Msg("Giving up, manual follow-up required")
			s.attempts[code]++
		}
		return false
	}
	s.attempts[code]++
	s.queued[code] = true
	return true
}

// retryClaim counts a retry of a queued code against its attempt budget.
// The code is released when the budget is spent.
func (s *Service) retryClaim(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attempts[code] >= s.maxAttempts {
		delete(s.queued, code)
		return false
	}
	s.attempts[code]++
	return true
}

func (s *Service) release(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queued, code)
}

func (s *Service) forget(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.queued, code)
	delete(s.attempts, code)
}

// Attempts returns how many follow-ups were started for code.
func (s *Service) Attempts(code string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.attempts[code]
}

func (s *Service) ReconcileJob(code string) Job {
	return s.job(code, "Sync.Job.Reconcile", s.lifecycle.Reconcile)
}

func (s *Service) ResettleJob(code string) Job {
	return s.job(code, "Sync.Job.Resettle", s.lifecycle.Resettle)
}

func (s *Service) job(code string, component string, op func(ctx context.Context, code string, actor string) (*model.Transaction, error)) Job {
	return func() error {
		l := s.logger.WithComponent(component)
		l.Logger = l.With().Str("code", code).Logger()

		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		ctx = l.WithContext(ctx)

		now := time.Now()
		m, err := op(ctx, code, lifecycle.ActorSync)
		l.Debug().Dur("duration", time.Since(now)).Msg("Follow-up done")

		switch {
		case err == nil:
			if m.Status != model.StatusProcessing {
				l.Info().Str("status", string(m.Status)).Msg("Transaction settled")
				s.forget(code)
				return nil
			}
			s.release(code)
			return nil
		case errors.Is(err, apperr.ErrConflict):
			s.release(code)
			return nil
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrNoGatewayReference):
			l.Debug().Err(err).Msg("Nothing to follow up")
			s.forget(code)
			return nil
		default:
			if !s.retryClaim(code) {
				l.Warn().Err(err).Int("attempts", s.Attempts(code)).Msg("Giving up, manual follow-up required")
				return fmt.Errorf("%s: %w", code, err)
			}
			return fmt.Errorf("%w: %s", ErrRetryableError, err.Error())
		}
	}
}
