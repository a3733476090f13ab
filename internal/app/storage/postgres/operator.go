package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
)

// storage.OperatorRepository interface implementation
var _ storage.OperatorRepository = (*OperatorRepository)(nil)

type OperatorRepository struct {
	db *sql.DB
}

func (r *OperatorRepository) LoggerComponent() string {
	return "OperatorRepository"
}

func NewOperatorRepository(db *sql.DB) (*OperatorRepository, error) {
	return &OperatorRepository{db: db}, nil
}

// Create implementation of interface storage.OperatorRepository
func (r *OperatorRepository) Create(ctx context.Context, m *model.Operator) (*model.Operator, error) {
	if m.Name == "" || m.Password == "" {
		return nil, fmt.Errorf("%w: operator name and password are required", apperr.ErrInvalidInput)
	}

	const SQL = `
		INSERT INTO operators (name, password)
		VALUES ($1, crypt($2, gen_salt('bf')))
		RETURNING id, created_at
`

	err := r.db.QueryRowContext(ctx, SQL, m.Name, m.Password).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isIntegrityViolation(err) {
			return nil, apperr.ErrConflict
		}

		return nil, fmt.Errorf("insert: %w", err)
	}

	m.Password = ""

	return m, nil
}

// Read implementation of interface storage.OperatorRepository
func (r *OperatorRepository) Read(ctx context.Context, id uuid.UUID) (*model.Operator, error) {
	const SQL = `
		SELECT id, name, created_at
		FROM operators
		WHERE id=$1
`
	m := &model.Operator{}

	err := r.db.QueryRowContext(ctx, SQL, id).Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// ReadByNameAndPassword implementation of interface storage.OperatorRepository
func (r *OperatorRepository) ReadByNameAndPassword(ctx context.Context, name string, password string) (*model.Operator, error) {
	const SQL = `
		SELECT id, name, created_at
		FROM operators
		WHERE name = $1
		AND password = crypt($2, password)
`
	m := &model.Operator{}

	err := r.db.QueryRowContext(ctx, SQL, name, password).Scan(&m.ID, &m.Name, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

func isIntegrityViolation(err error) bool {
	var pgErr *pg.Error
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code))
	}
	return false
}
