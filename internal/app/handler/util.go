package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/session"
	"ppobmart/pkg/indotel"
)

const maxJSONBody = 1 << 20

var validate = validator.New()

// readBody into json struct
func readBody(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBody))
	_ = r.Body.Close()
	if err != nil {
		return fmt.Errorf("body read: %w", err)
	}

	err = json.Unmarshal(body, v)
	if err != nil {
		return fmt.Errorf("%w: json decode: %s", apperr.ErrInvalidInput, err.Error())
	}

	return nil
}

func jsonString(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

type jsonError struct {
	Message string `json:"error"`
}

// WriteError formatted in json
func WriteError(w http.ResponseWriter, err error, statusCode int) {
	WriteResponse(w, &jsonError{Message: err.Error()}, statusCode)
}

// WriteResponse formatted in json
func WriteResponse(w http.ResponseWriter, v interface{}, statusCode int) {
	resBody, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(resBody)
}

// StatusCode maps domain errors to HTTP statuses
func StatusCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrNoGatewayReference),
		errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, apperr.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, indotel.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, indotel.ErrRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, indotel.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure logs err at a level matching its status and writes it
func writeFailure(w http.ResponseWriter, l logger.Logger, err error) {
	code := StatusCode(err)
	if code >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", code).Send()
	} else {
		l.Debug().Err(err).Int("status", code).Send()
	}
	WriteError(w, err, code)
}

type ValidationErrorResponse struct {
	Errors ValidationErrors `json:"errors"`
}

type ValidationErrors []ValidationError

type ValidationError struct {
	Msg   string `json:"msg"`
	Param string `json:"param"`
	Value string `json:"value"`
}

// validateData and send errors, returns true if no validation errors
func validateData(w http.ResponseWriter, v interface{}) bool {
	err := validate.Struct(v)
	if err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			WriteError(w, err, http.StatusBadRequest)
			return false
		}
		errs := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			errs = append(errs, ValidationError{
				Msg:   fe.Error(),
				Param: fe.Field(),
				Value: fmt.Sprintf("%v", fe.Value()),
			})
		}
		writeValidationErrors(w, errs)
		return false
	}

	return true
}

// writeValidationErrors formatted in json
func writeValidationErrors(w http.ResponseWriter, errs ValidationErrors) {
	WriteResponse(w, ValidationErrorResponse{errs}, http.StatusBadRequest)
}

type ContextKeyOperator struct{}

func ReadContextOperator(ctx context.Context) (*model.Operator, error) {
	v := ctx.Value(ContextKeyOperator{})
	if op, ok := v.(*model.Operator); ok {
		return op, nil
	}

	return nil, apperr.ErrUnauthorized
}

// actor names the operator behind the request for the event log
func actor(ctx context.Context) string {
	if op, err := ReadContextOperator(ctx); err == nil {
		return "operator:" + op.Name
	}
	return "operator"
}
