package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/xid"
	"ppobmart/internal/app/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusRejected   Status = "rejected"
)

// Known auxiliary parameter keys.
const (
	ParamPeriod  = "periode"
	ParamYear    = "tahun"
	ParamNominal = "nominal"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusPending, StatusProcessing, StatusRejected},
	StatusProcessing: {StatusProcessing, StatusSuccess, StatusFailed, StatusRejected},
	StatusFailed:     {StatusProcessing},
	StatusRejected:   {StatusRejected},
	StatusSuccess:    {},
}

// ParseStatus returns the status named by s.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := allowedTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown status %q", apperr.ErrInvalidInput, s)
	}
	return st, nil
}

// CanTransition reports whether a transaction may move from one status to another.
// Same-status moves are allowed for pending, processing and rejected only.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the customer-facing outcome of s is final.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusRejected || s == StatusFailed
}

type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	Code            string            `json:"transactionId"`
	ProductCode     string            `json:"productCode" validate:"required,max=64"`
	ProductName     string            `json:"productName"`
	Category        string            `json:"category"`
	ProductType     ProductType       `json:"productType"`
	CustomerID      string            `json:"customerId,omitempty"`
	CustomerNumber  string            `json:"customerNumber" validate:"required,min=3,max=64"`
	Params          map[string]string `json:"params,omitempty"`
	Price           int64             `json:"price" validate:"gt=0"`
	TotalPrice      int64             `json:"totalPrice" validate:"gtefield=Price"`
	Status          Status            `json:"status"`
	PaymentProofURL string            `json:"paymentProofUrl,omitempty"`
	GatewayRef      string            `json:"indotelRefId,omitempty"`
	GatewayMessage  string            `json:"gatewayMessage,omitempty"`
	GatewayPayload  []byte            `json:"-"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

var validate = validator.New()

// Validate checks the fields required to create a transaction.
func (t *Transaction) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
	}
	if t.ProductType != "" && !t.ProductType.Valid() {
		return fmt.Errorf("%w: unknown product type %q", apperr.ErrInvalidInput, t.ProductType)
	}
	return nil
}

// TransitionTo applies the status change and bumps UpdatedAt.
// A non-empty ref replaces the stored gateway reference, an empty one keeps it.
func (t *Transaction) TransitionTo(to Status, ref string, now time.Time) error {
	if !CanTransition(t.Status, to) {
		return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, t.Status, to)
	}
	t.Status = to
	if ref != "" {
		t.GatewayRef = ref
	}
	t.touch(now)
	return nil
}

func (t *Transaction) touch(now time.Time) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

// Param returns an auxiliary parameter or an empty string.
func (t *Transaction) Param(key string) string {
	if t.Params == nil {
		return ""
	}
	return t.Params[key]
}

// NewTransactionCode generates TRX<yymmdd><XID>.
func NewTransactionCode(now time.Time) string {
	return "TRX" + now.Format("060102") + strings.ToUpper(xid.NewWithTime(now).String())
}

// Event is one entry of the status history of a transaction.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"transactionId"`
	FromStatus Status    `json:"from,omitempty"`
	ToStatus   Status    `json:"to"`
	GatewayRef string    `json:"indotelRefId,omitempty"`
	Message    string    `json:"message,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
