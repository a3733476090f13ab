package handler

import (
	"context"
	"errors"
	"net/http"

	"ppobmart/internal/app/logger"
	"ppobmart/pkg/indotel"
)

// BalanceChecker is the provider connectivity probe.
type BalanceChecker interface {
	CheckBalance(ctx context.Context) (*indotel.Balance, error)
}

var _ BalanceChecker = (*indotel.Service)(nil)

const (
	GatewayConnected       = "connected"
	GatewayIPNotRegistered = "ip_not_registered"
	GatewayNotConfigured   = "not_configured"
	GatewayError           = "error"
)

type GatewayHandler struct {
	gateway BalanceChecker
}

func NewGatewayHandler(gw BalanceChecker) *GatewayHandler {
	return &GatewayHandler{gateway: gw}
}

func (h *GatewayHandler) LoggerComponent() string {
	return "Handler.Gateway"
}

type GatewayStatusResponse struct {
	Status  string `json:"status"`
	Balance *int64 `json:"balance,omitempty"`
	Message string `json:"message,omitempty"`
}

// Status reports whether the provider accepts our credentials and source address.
// It always answers 200, the outcome is in the body.
func (h *GatewayHandler) Status(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	b, err := h.gateway.CheckBalance(r.Context())
	switch {
	case err == nil:
		amount := b.Amount
		WriteResponse(w, GatewayStatusResponse{Status: GatewayConnected, Balance: &amount}, http.StatusOK)
	case errors.Is(err, indotel.ErrNotConfigured):
		WriteResponse(w, GatewayStatusResponse{Status: GatewayNotConfigured, Message: err.Error()}, http.StatusOK)
	case indotel.IsIPNotAllowed(err):
		l.Warn().Err(err).Msg("Server address not registered with the provider")
		WriteResponse(w, GatewayStatusResponse{Status: GatewayIPNotRegistered, Message: err.Error()}, http.StatusOK)
	default:
		l.Error().Err(err).Msg("Gateway check failed")
		WriteResponse(w, GatewayStatusResponse{Status: GatewayError, Message: err.Error()}, http.StatusOK)
	}
}
