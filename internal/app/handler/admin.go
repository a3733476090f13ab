package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/service/lifecycle"
)

type AdminHandler struct {
	lifecycle *lifecycle.Service
}

func NewAdminHandler(lc *lifecycle.Service) *AdminHandler {
	return &AdminHandler{lifecycle: lc}
}

func (h *AdminHandler) LoggerComponent() string {
	return "Handler.Admin"
}

// List returns all transactions or those matching ?status.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	var status model.Status
	if q := r.URL.Query().Get("status"); q != "" {
		st, err := model.ParseStatus(q)
		if err != nil {
			writeFailure(w, l, err)
			return
		}
		status = st
	}

	h.list(w, r, l, status)
}

func (h *AdminHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, logger.Get(r.Context(), h), model.StatusPending)
}

func (h *AdminHandler) list(w http.ResponseWriter, r *http.Request, l logger.Logger, status model.Status) {
	mm, err := h.lifecycle.List(r.Context(), status)
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, mm, http.StatusOK)
}

func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	ee, err := h.lifecycle.Events(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, ee, http.StatusOK)
}

type lifecycleOp func(r *http.Request, code string, actor string) (*model.Transaction, error)

func (h *AdminHandler) run(op lifecycleOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logger.Get(r.Context(), h)
		code := chi.URLParam(r, "code")

		m, err := op(r, code, actor(r.Context()))
		if err != nil {
			writeFailure(w, l, err)
			return
		}

		l.Info().Str("code", code).Str("status", string(m.Status)).Msg("Operator action done")
		WriteResponse(w, m, http.StatusOK)
	}
}

func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.run(func(r *http.Request, code, actor string) (*model.Transaction, error) {
		return h.lifecycle.Approve(r.Context(), code, actor)
	})(w, r)
}

func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.run(func(r *http.Request, code, actor string) (*model.Transaction, error) {
		return h.lifecycle.Reject(r.Context(), code, actor)
	})(w, r)
}

func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	h.run(func(r *http.Request, code, actor string) (*model.Transaction, error) {
		return h.lifecycle.Reconcile(r.Context(), code, actor)
	})(w, r)
}

func (h *AdminHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.run(func(r *http.Request, code, actor string) (*model.Transaction, error) {
		return h.lifecycle.Retry(r.Context(), code, actor)
	})(w, r)
}

type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStatus is the generic status endpoint: processing approves, rejected rejects.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	var in StatusUpdateRequest
	if err := readBody(r, &in); err != nil {
		writeFailure(w, l, err)
		return
	}
	if !validateData(w, in) {
		return
	}

	st, err := model.ParseStatus(in.Status)
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	switch st {
	case model.StatusProcessing:
		h.Approve(w, r)
	case model.StatusRejected:
		h.Reject(w, r)
	default:
		writeFailure(w, l, fmt.Errorf("%w: status %s is set by the gateway", apperr.ErrInvalidInput, st))
	}
}
