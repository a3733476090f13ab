package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

const transactionColumns = `id, code, product_code, product_name, category, product_type, customer_id,
	customer_number, params, price, total_price, status, payment_proof_url, gateway_ref, gateway_message,
	gateway_payload, created_at, updated_at`

type TransactionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func (r *TransactionRepository) LoggerComponent() string {
	return "TransactionRepository"
}

func NewTransactionRepository(db *sql.DB) (*TransactionRepository, error) {
	s := &TransactionRepository{
		db:  db,
		now: time.Now,
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	m := &model.Transaction{}
	var productType, status string
	var params []byte

	err := row.Scan(&m.ID, &m.Code, &m.ProductCode, &m.ProductName, &m.Category, &productType, &m.CustomerID,
		&m.CustomerNumber, &params, &m.Price, &m.TotalPrice, &status, &m.PaymentProofURL, &m.GatewayRef,
		&m.GatewayMessage, &m.GatewayPayload, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m.ProductType = model.ProductType(productType)
	m.Status = model.Status(status)
	if len(params) > 0 {
		if err := json.Unmarshal(params, &m.Params); err != nil {
			return nil, fmt.Errorf("params decode: %w", err)
		}
	}

	return m, nil
}

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(ctx context.Context, m *model.Transaction) (*model.Transaction, error) {
	l := logger.Get(ctx, r).With().
		Str("method", "Create").
		Str("product_code", m.ProductCode).
		Logger()

	if m.TotalPrice == 0 {
		m.TotalPrice = m.Price
	}
	if err := m.Validate(); err != nil {
		l.Debug().Err(err).Msg("Validation failed")
		return nil, err
	}

	now := r.now()
	m.ID = uuid.New()
	if m.Code == "" {
		m.Code = model.NewTransactionCode(now)
	}
	m.Status = model.StatusPending
	m.PaymentProofURL = ""
	m.GatewayRef = ""
	m.CreatedAt = now
	m.UpdatedAt = now

	params, err := json.Marshal(m.Params)
	if err != nil {
		return nil, fmt.Errorf("params encode: %w", err)
	}
	if m.Params == nil {
		params = []byte("{}")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("tx begin: %w", err)
	}

	const sqlInsert = `
		INSERT INTO transactions (id, code, product_code, product_name, category, product_type, customer_id,
			customer_number, params, price, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
`
	_, err = tx.ExecContext(ctx, sqlInsert, m.ID, m.Code, m.ProductCode, m.ProductName, m.Category,
		string(m.ProductType), m.CustomerID, m.CustomerNumber, params, m.Price, m.TotalPrice,
		string(m.Status), m.CreatedAt, m.UpdatedAt)
	if err != nil {
		_ = tx.Rollback()
		if isIntegrityViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, fmt.Errorf("insert: %w", err)
	}

	if err := insertEvent(ctx, tx, &model.Event{
		Code:      m.Code,
		ToStatus:  m.Status,
		Message:   "purchase requested",
		CreatedAt: now,
	}); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("tx commit: %w", err)
	}

	l.Debug().Str("code", m.Code).Msg("Transaction created")

	return m, nil
}

// Read implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Read(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	SQL := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1`

	m, err := scanTransaction(r.db.QueryRowContext(ctx, SQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// ReadByCode implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ReadByCode(ctx context.Context, code string) (*model.Transaction, error) {
	SQL := `SELECT ` + transactionColumns + ` FROM transactions WHERE code=$1`

	m, err := scanTransaction(r.db.QueryRowContext(ctx, SQL, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// All implementation of interface storage.TransactionRepository
func (r *TransactionRepository) All(ctx context.Context) ([]*model.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
}

// AllByStatus implementation of interface storage.TransactionRepository
func (r *TransactionRepository) AllByStatus(ctx context.Context, status model.Status) ([]*model.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE status=$1 ORDER BY seq`, string(status))
}

func (r *TransactionRepository) list(ctx context.Context, SQL string, args ...interface{}) ([]*model.Transaction, error) {
	l := logger.Get(ctx, r).With().Str("method", "list").Logger()

	rows, err := r.db.QueryContext(ctx, SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]*model.Transaction, 0)
	for rows.Next() {
		m, err := scanTransaction(rows)
		if err != nil {
			l.Debug().Err(err).Send()
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}

// mutate locks the row of code, lets fn change it and writes it back with an event.
func (r *TransactionRepository) mutate(ctx context.Context, code string, fn func(m *model.Transaction, now time.Time) (*model.Event, error)) (*model.Transaction, error) {
	l := logger.Get(ctx, r).With().Str("code", code).Logger()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		l.Error().Err(err).Msg("DB transaction begin")
		return nil, fmt.Errorf("tx begin: %w", err)
	}

	sqlLock := `SELECT ` + transactionColumns + ` FROM transactions WHERE code=$1 FOR UPDATE`
	m, err := scanTransaction(tx.QueryRowContext(ctx, sqlLock, code))
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		l.Error().Err(err).Msg("DB lock error")
		return nil, fmt.Errorf("select for update: %w", err)
	}

	now := r.now()
	ev, err := fn(m, now)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	const sqlUpdate = `
		UPDATE transactions
		SET status=$1, payment_proof_url=$2, gateway_ref=$3, gateway_message=$4, gateway_payload=$5, updated_at=$6
		WHERE id=$7
`
	_, err = tx.ExecContext(ctx, sqlUpdate, string(m.Status), m.PaymentProofURL, m.GatewayRef, m.GatewayMessage,
		m.GatewayPayload, m.UpdatedAt, m.ID)
	if err != nil {
		_ = tx.Rollback()
		l.Error().Err(err).Msg("Transaction update failed")
		return nil, fmt.Errorf("update: %w", err)
	}

	if ev != nil {
		ev.Code = m.Code
		ev.CreatedAt = now
		if err := insertEvent(ctx, tx, ev); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("TX commit failed")
		return nil, fmt.Errorf("tx commit: %w", err)
	}

	return m, nil
}

// UpdateStatus implementation of interface storage.TransactionRepository
func (r *TransactionRepository) UpdateStatus(ctx context.Context, code string, u storage.StatusUpdate) (*model.Transaction, error) {
	return r.mutate(ctx, code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
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
		return &model.Event{
			FromStatus: from,
			ToStatus:   m.Status,
			GatewayRef: u.GatewayRef,
			Message:    u.Message,
			Actor:      u.Actor,
		}, nil
	})
}

// RecordGatewayRef implementation of interface storage.TransactionRepository
func (r *TransactionRepository) RecordGatewayRef(ctx context.Context, code string, ref string, actor string) (*model.Transaction, error) {
	return r.mutate(ctx, code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
		if ref == "" || ref == m.GatewayRef {
			return nil, nil
		}
		m.GatewayRef = ref
		m.UpdatedAt = now
		return &model.Event{
			FromStatus: m.Status,
			ToStatus:   m.Status,
			GatewayRef: ref,
			Message:    "gateway reference recorded",
			Actor:      actor,
		}, nil
	})
}

// AttachProof implementation of interface storage.TransactionRepository
func (r *TransactionRepository) AttachProof(ctx context.Context, code string, proofURL string) (*model.Transaction, error) {
	if proofURL == "" {
		return nil, fmt.Errorf("%w: empty payment proof reference", apperr.ErrInvalidInput)
	}

	return r.mutate(ctx, code, func(m *model.Transaction, now time.Time) (*model.Event, error) {
		m.PaymentProofURL = proofURL
		m.UpdatedAt = now
		return &model.Event{
			FromStatus: m.Status,
			ToStatus:   m.Status,
			Message:    "payment proof attached",
			Actor:      "customer",
		}, nil
	})
}

// Events implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Events(ctx context.Context, code string) ([]*model.Event, error) {
	if _, err := r.ReadByCode(ctx, code); err != nil {
		return nil, err
	}

	const SQL = `
		SELECT id, transaction_code, from_status, to_status, gateway_ref, message, actor, created_at
		FROM transaction_events
		WHERE transaction_code=$1
		ORDER BY seq
`
	rows, err := r.db.QueryContext(ctx, SQL, code)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	res := make([]*model.Event, 0)
	for rows.Next() {
		e := &model.Event{}
		var from, to string
		if err := rows.Scan(&e.ID, &e.Code, &from, &to, &e.GatewayRef, &e.Message, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.FromStatus = model.Status(from)
		e.ToStatus = model.Status(to)
		res = append(res, e)
	}

	return res, rows.Err()
}

func insertEvent(ctx context.Context, tx *sql.Tx, e *model.Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	const SQL = `
		INSERT INTO transaction_events (id, transaction_code, from_status, to_status, gateway_ref, message, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`
	_, err := tx.ExecContext(ctx, SQL, e.ID, e.Code, string(e.FromStatus), string(e.ToStatus), e.GatewayRef,
		e.Message, e.Actor, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("event insert: %w", err)
	}

	return nil
}
