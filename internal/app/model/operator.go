package model

import (
	"time"

	"github.com/google/uuid"
)

// Operator is a back-office user allowed to approve and reject transactions.
type Operator struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
