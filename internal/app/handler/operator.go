package handler

import (
	"errors"
	"net/http"
	"strings"

	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/session"
	"ppobmart/internal/app/storage"
)

type OperatorHandler struct {
	operators storage.OperatorRepository
	session   session.Manager
}

func NewOperatorHandler(operators storage.OperatorRepository, s session.Manager) *OperatorHandler {
	return &OperatorHandler{
		operators: operators,
		session:   s,
	}
}

func (h *OperatorHandler) LoggerComponent() string {
	return "Handler.Operator"
}

type OperatorLoginRequest struct {
	Login    string `json:"login" validate:"required,alphanum,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type OperatorLoginResponse struct {
	Token string `json:"token"`
}

func (h *OperatorHandler) Login(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	var in OperatorLoginRequest
	if err := readBody(r, &in); err != nil {
		writeFailure(w, l, err)
		return
	}

	if !validateData(w, in) {
		return
	}

	op, err := h.operators.ReadByNameAndPassword(r.Context(), in.Login, in.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			l.Debug().Str("login", in.Login).Msg("Login failed")
			WriteError(w, apperr.ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		writeFailure(w, l, err)
		return
	}

	token, err := h.session.Create(r.Context(), op)
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	l.Info().Str("operator", op.Name).Msg("Operator logged in")
	w.Header().Set("Authorization", "Bearer "+token)
	WriteResponse(w, OperatorLoginResponse{Token: token}, http.StatusOK)
}

func (h *OperatorHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	h.session.Revoke(r.Context(), token)
	w.WriteHeader(http.StatusNoContent)
}
