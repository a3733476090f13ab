//go:generate mockgen -source=./gateway.go -destination=./mock/gateway.go -package=lifecyclemock
package lifecycle

import (
	"context"

	"ppobmart/pkg/indotel"
)

// Gateway is the part of the provider client the lifecycle drives.
type Gateway interface {
	// Inquire fetches postpaid billing detail
	Inquire(ctx context.Context, in *indotel.Request) (*indotel.Result, error)
	// Settle pays or tops up, in.Reference is the idempotency key
	Settle(ctx context.Context, in *indotel.Request) (*indotel.Result, error)
	// CheckStatus polls an operation submitted earlier
	CheckStatus(ctx context.Context, providerRef string) (*indotel.Result, error)
}

var _ Gateway = (*indotel.Service)(nil)
