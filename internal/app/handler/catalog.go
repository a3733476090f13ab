package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/catalog"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
)

type CatalogHandler struct {
	catalog catalog.Provider
}

func NewCatalogHandler(c catalog.Provider) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) LoggerComponent() string {
	return "Handler.Catalog"
}

func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	cc, err := h.catalog.Categories(r.Context())
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, cc, http.StatusOK)
}

// Products lists active products of ?category, optionally narrowed by ?type.
func (h *CatalogHandler) Products(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	category := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("category")))
	if category == "" {
		WriteError(w, fmt.Errorf("%w: category is required", apperr.ErrInvalidInput), http.StatusBadRequest)
		return
	}

	typ := model.ProductType(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("type"))))
	if typ != "" && !typ.Valid() {
		WriteError(w, fmt.Errorf("%w: unknown product type %q", apperr.ErrInvalidInput, typ), http.StatusBadRequest)
		return
	}

	pp, err := h.catalog.Products(r.Context(), category, typ)
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, pp, http.StatusOK)
}

func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	p, err := h.catalog.Product(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, p, http.StatusOK)
}
