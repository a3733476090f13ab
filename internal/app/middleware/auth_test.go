package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"ppobmart/internal/app/handler"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/session"
)

type fakeSessions map[string]*model.Operator

func (f fakeSessions) Read(_ context.Context, token string) (*model.Operator, error) {
	if op, ok := f[token]; ok {
		return op, nil
	}
	return nil, session.ErrInvalidToken
}

func TestAuth(t *testing.T) {
	sessions := fakeSessions{"good": {Name: "admin"}}

	var seen *model.Operator
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, err := handler.ReadContextOperator(r.Context())
		if err != nil {
			t.Errorf("operator missing from context: %v", err)
		}
		seen = op
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(sessions)(next)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic YWRtaW46YWRtaW4=", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid", "Bearer good", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/transactions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("code %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if seen == nil || seen.Name != "admin" {
		t.Errorf("operator = %+v", seen)
	}
}

func TestNoCache(t *testing.T) {
	rec := httptest.NewRecorder()
	NoCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
