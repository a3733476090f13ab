package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/catalog"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/service/lifecycle"
	"ppobmart/internal/app/service/proof"
)

// ProofField is the multipart field carrying the payment proof.
const ProofField = "paymentProof"

// multipart framing allowed on top of the proof itself
const multipartOverhead = 64 << 10

type TransactionHandler struct {
	lifecycle *lifecycle.Service
	proofs    *proof.Service
	catalog   catalog.Provider
}

func NewTransactionHandler(lc *lifecycle.Service, proofs *proof.Service, c catalog.Provider) *TransactionHandler {
	return &TransactionHandler{
		lifecycle: lc,
		proofs:    proofs,
		catalog:   c,
	}
}

func (h *TransactionHandler) LoggerComponent() string {
	return "Handler.Transaction"
}

type TransactionCreateRequest struct {
	ProductCode    string            `json:"productCode" validate:"required,max=64"`
	CustomerID     string            `json:"customerId" validate:"max=64"`
	CustomerNumber string            `json:"customerNumber" validate:"required,min=3,max=64"`
	Price          int64             `json:"price" validate:"gte=0"`
	TotalPrice     int64             `json:"totalPrice" validate:"gte=0"`
	Period         string            `json:"periode"`
	Year           string            `json:"tahun"`
	Nominal        string            `json:"nominal"`
	Params         map[string]string `json:"params"`
}

func (in *TransactionCreateRequest) params() map[string]string {
	p := make(map[string]string, len(in.Params)+3)
	for k, v := range in.Params {
		p[k] = v
	}
	for k, v := range map[string]string{
		model.ParamPeriod:  in.Period,
		model.ParamYear:    in.Year,
		model.ParamNominal: in.Nominal,
	} {
		if v != "" {
			p[k] = v
		}
	}
	if len(p) == 0 {
		return nil
	}
	return p
}

// Create records a pending purchase of a catalog product.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	var in TransactionCreateRequest
	if err := readBody(r, &in); err != nil {
		writeFailure(w, l, err)
		return
	}
	l.Debug().Str("body", jsonString(in)).Msg("Transaction create request")

	if !validateData(w, in) {
		return
	}

	p, err := h.catalog.Product(r.Context(), strings.ToUpper(in.ProductCode))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			err = fmt.Errorf("%w: product %s", apperr.ErrInvalidInput, in.ProductCode)
		}
		writeFailure(w, l, err)
		return
	}

	price := in.Price
	if price == 0 {
		price = p.Price
	}
	total := in.TotalPrice
	if total == 0 {
		total = price
	}

	m, err := h.lifecycle.CreatePurchase(r.Context(), lifecycle.Purchase{
		ProductCode:    p.Code,
		ProductName:    p.Name,
		Category:       p.CategoryCode,
		ProductType:    p.Type,
		CustomerID:     in.CustomerID,
		CustomerNumber: in.CustomerNumber,
		Params:         in.params(),
		Price:          price,
		TotalPrice:     total,
	})
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, m, http.StatusCreated)
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	m, err := h.lifecycle.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, m, http.StatusOK)
}

// UploadProof streams the paymentProof part of a multipart body to the proof service.
func (h *TransactionHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	limit := h.proofs.MaxBytes() + multipartOverhead
	if r.ContentLength > limit {
		writeFailure(w, l, fmt.Errorf("%w: %d bytes, limit %d", apperr.ErrTooLarge, r.ContentLength, h.proofs.MaxBytes()))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	mr, err := r.MultipartReader()
	if err != nil {
		writeFailure(w, l, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error()))
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			writeFailure(w, l, fmt.Errorf("%w: %s is required", apperr.ErrInvalidInput, ProofField))
			return
		}
		if err != nil {
			err = uploadError(err)
			if !errors.Is(err, apperr.ErrTooLarge) {
				err = fmt.Errorf("%w: %s", apperr.ErrInvalidInput, err.Error())
			}
			writeFailure(w, l, err)
			return
		}
		if part.FormName() != ProofField {
			_ = part.Close()
			continue
		}

		m, err := h.proofs.Attach(r.Context(), chi.URLParam(r, "code"), proof.Upload{
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        -1,
			Body:        part,
		})
		_ = part.Close()
		if err != nil {
			writeFailure(w, l, uploadError(err))
			return
		}

		WriteResponse(w, m, http.StatusOK)
		return
	}
}

// uploadError maps a tripped body limit to ErrTooLarge.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: %s", apperr.ErrTooLarge, err.Error())
	}
	return err
}

type InquiryRequest struct {
	ProductCode    string `json:"productCode" validate:"required,max=64"`
	CustomerNumber string `json:"customerNumber" validate:"required,min=3,max=64"`
	Period         string `json:"periode"`
	Year           string `json:"tahun"`
}

// Inquiry quotes a postpaid bill. Nothing is stored.
func (h *TransactionHandler) Inquiry(w http.ResponseWriter, r *http.Request) {
	l := logger.Get(r.Context(), h)

	var in InquiryRequest
	if err := readBody(r, &in); err != nil {
		writeFailure(w, l, err)
		return
	}

	if !validateData(w, in) {
		return
	}

	params := map[string]string{}
	if in.Period != "" {
		params[model.ParamPeriod] = in.Period
	}
	if in.Year != "" {
		params[model.ParamYear] = in.Year
	}

	res, err := h.lifecycle.Quote(r.Context(), strings.ToUpper(in.ProductCode), in.CustomerNumber, params)
	if err != nil {
		writeFailure(w, l, err)
		return
	}

	WriteResponse(w, res, http.StatusOK)
}
