//go:generate mockgen -source=./interface.go -destination=./mock/storage.go -package=storagemock
package storage

import (
	"context"

	"github.com/google/uuid"
	"ppobmart/internal/app/model"
)

type OperatorRepository interface {
	// Create a new model.Operator
	Create(ctx context.Context, m *model.Operator) (*model.Operator, error)
	// ReadByNameAndPassword instance of model.Operator
	ReadByNameAndPassword(ctx context.Context, name string, password string) (*model.Operator, error)
	// Read instance of model.Operator
	Read(ctx context.Context, id uuid.UUID) (*model.Operator, error)
}

// StatusUpdate describes a status change requested for a transaction.
type StatusUpdate struct {
	Status model.Status
	// GatewayRef replaces the stored reference when not empty.
	GatewayRef string
	// Message and Payload record the provider reply, if any.
	Message string
	Payload []byte
	// Actor names who requested the change, for the event log.
	Actor string
}

type TransactionRepository interface {
	// Create validates and stores a new model.Transaction, assigning its ID, code and timestamps
	Create(ctx context.Context, m *model.Transaction) (*model.Transaction, error)
	// Read instance of model.Transaction by internal id
	Read(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	// ReadByCode instance of model.Transaction by transaction code
	ReadByCode(ctx context.Context, code string) (*model.Transaction, error)
	// All transactions in insertion order
	All(ctx context.Context) ([]*model.Transaction, error)
	// AllByStatus transactions in insertion order
	AllByStatus(ctx context.Context, status model.Status) ([]*model.Transaction, error)
	// UpdateStatus applies the transition rule of model.CanTransition
	UpdateStatus(ctx context.Context, code string, u StatusUpdate) (*model.Transaction, error)
	// RecordGatewayRef stores a provider reference without touching the status
	RecordGatewayRef(ctx context.Context, code string, ref string, actor string) (*model.Transaction, error)
	// AttachProof sets the payment proof reference
	AttachProof(ctx context.Context, code string, proofURL string) (*model.Transaction, error)
	// Events returns the status history of a transaction, oldest first
	Events(ctx context.Context, code string) ([]*model.Event, error)
}
