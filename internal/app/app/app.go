package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"ppobmart/internal/app/blob"
	"ppobmart/internal/app/catalog"
	"ppobmart/internal/app/config"
	"ppobmart/internal/app/lock"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/service/lifecycle"
	"ppobmart/internal/app/service/proof"
	"ppobmart/internal/app/service/syncer"
	"ppobmart/internal/app/session"
	"ppobmart/internal/app/storage"
	"ppobmart/internal/app/storage/postgres"
	"ppobmart/pkg/indotel"
)

type App struct {
	config       config.Config
	logger       logger.Logger
	db           *sql.DB
	redis        *redis.Client
	gateway      *indotel.Service
	operators    storage.OperatorRepository
	transactions storage.TransactionRepository
	session      session.Manager
	catalog      catalog.Provider
	blobs        blob.Store
	locks        lock.Locker
	lifecycle    *lifecycle.Service
	proofs       *proof.Service
	syncer       *syncer.Service
	stopCh       chan struct{}
}

// New opens the database, applies migrations and wires the services.
// Background work starts with Start.
func New(ctx context.Context, cfg config.Config, l logger.Logger) (*App, error) {
	gw, err := indotel.NewService(
		indotel.Config{URL: cfg.Gateway.URL, MMID: cfg.Gateway.MMID, Password: cfg.Gateway.Password},
		indotel.WithLogger(l.Logger),
		indotel.WithTimeout(cfg.Gateway.Timeout),
		indotel.WithBreaker(cfg.Gateway.BreakerFailures, cfg.Gateway.BreakerOpenFor),
	)
	if err != nil {
		return nil, fmt.Errorf("gateway init: %w", err)
	}
	if !gw.Configured() {
		l.Warn().Msg("Gateway credentials missing, approvals will stay processing")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	a := &App{
		config:  cfg,
		logger:  l,
		db:      db,
		gateway: gw,
		stopCh:  make(chan struct{}),
	}

	if err := a.init(ctx); err != nil {
		a.close()
		return nil, err
	}

	go func() {
		<-a.stopCh
		a.logger.Info().Msg("Shutting down application")
	}()

	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.config

	operators, err := postgres.NewOperatorRepository(a.db)
	if err != nil {
		return fmt.Errorf("operator repository init: %w", err)
	}
	a.operators = operators

	transactions, err := postgres.NewTransactionRepository(a.db)
	if err != nil {
		return fmt.Errorf("transaction repository init: %w", err)
	}
	a.transactions = transactions

	switch cfg.Lock.Backend {
	case config.LockBackendRedis:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rl := lock.NewRedis(a.redis, cfg.Lock.TTL)
		if err := rl.Ping(ctx); err != nil {
			return err
		}
		a.locks = rl
	default:
		a.locks = lock.NewKeyed()
	}

	switch cfg.Upload.Backend {
	case config.UploadBackendS3:
		s3, err := blob.NewS3(ctx, cfg.Upload.S3Bucket, cfg.Upload.S3Region)
		if err != nil {
			return fmt.Errorf("s3 init: %w", err)
		}
		a.blobs = s3
	default:
		local, err := blob.NewLocal(cfg.Upload.Dir, cfg.Upload.URLPrefix)
		if err != nil {
			return err
		}
		a.blobs = local
	}

	static, err := catalog.LoadStatic(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("catalog load: %w", err)
	}
	a.catalog = static
	if cfg.Catalog.Remote {
		var fallback catalog.Provider
		if cfg.Catalog.MockFallback {
			fallback = static
		}
		a.catalog = catalog.NewRemote(a.gateway, fallback)
	}

	a.session = session.NewMemory(cfg.SecretKey, a.operators)
	a.lifecycle = lifecycle.New(a.transactions, a.gateway,
		lifecycle.WithLocker(a.locks),
		lifecycle.WithGatewayTimeout(2*cfg.Gateway.Timeout),
	)
	a.proofs = proof.New(a.transactions, a.blobs, a.locks, proof.WithMaxBytes(cfg.Upload.MaxBytes))
	a.syncer = syncer.New(a.lifecycle,
		syncer.WithInterval(cfg.Sync.Interval),
		syncer.WithWorkers(cfg.Sync.Workers),
		syncer.WithRetrySettle(cfg.Sync.RetrySettle),
		syncer.WithMaxAttempts(cfg.Sync.MaxAttempts),
	)

	return nil
}

// Start launches the sync worker when enabled.
func (a *App) Start() {
	if a.config.Sync.Enabled {
		a.syncer.Start()
		a.logger.Info().Dur("interval", a.config.Sync.Interval).Msg("Sync worker started")
	}
}

// Stop waits for background work and releases connections.
func (a *App) Stop() {
	close(a.stopCh)
	a.syncer.Stop()
	a.lifecycle.Wait()
	a.close()
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Redis close failed")
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error().Err(err).Msg("DB close failed")
	}
}

func (a *App) Lifecycle() *lifecycle.Service {
	return a.lifecycle
}

func (a *App) Operators() storage.OperatorRepository {
	return a.operators
}

func (a *App) Gateway() *indotel.Service {
	return a.gateway
}
