package indotel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type captured struct {
	path string
	rqid string
	body map[string]string
}

func newTestService(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, c *captured)) (*Service, *captured) {
	t.Helper()

	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.rqid = r.Header.Get("rqid")
		c.body = map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&c.body)
		handler(w, r, c)
	}))
	t.Cleanup(srv.Close)

	s, err := NewService(Config{URL: srv.URL + "/", MMID: "MM01", Password: "secret"},
		WithLogger(zerolog.Nop()), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return s, c
}

func TestService_SettlePrepaid(t *testing.T) {
	s, c := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte(`{"status":"SUCCESS","message":"ok","data":{"ref_2":"REF123","amount":50500}}`))
	})

	res, err := s.Settle(context.Background(), &Request{
		Reference:      "TRX1",
		ProductCode:    "PLN50",
		CustomerNumber: "081234567890",
		Params:         map[string]string{"nominal": "50000"},
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if !res.Succeeded() || res.ProviderRef != "REF123" || res.Amount != 50500 {
		t.Errorf("unexpected result: %+v", res)
	}
	if c.path != "/api/topup" {
		t.Errorf("path = %s, want /api/topup", c.path)
	}
	if c.rqid != "secret" {
		t.Errorf("rqid header = %q", c.rqid)
	}
	if c.body["mmid"] != "MM01" || c.body["ref_1"] != "TRX1" || c.body["customer_id"] != "081234567890" || c.body["nominal"] != "50000" {
		t.Errorf("unexpected body: %#v", c.body)
	}
}

func TestService_SettlePostpaid(t *testing.T) {
	s, c := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte("STATUS:SUKSES#REFID:99#MSG:Lunas"))
	})

	res, err := s.Settle(context.Background(), &Request{
		Reference:      "TRX2",
		ProductCode:    "BPJS",
		CustomerNumber: "8888801234567890",
		Postpaid:       true,
		Params:         map[string]string{"periode": "2"},
	})
	if err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if c.path != "/api/payment" {
		t.Errorf("path = %s, want /api/payment", c.path)
	}
	if res.ProviderRef != "99" || res.Message != "Lunas" {
		t.Errorf("unexpected result: %+v", res)
	}
	if c.body["periode"] != "2" {
		t.Errorf("periode not forwarded: %#v", c.body)
	}
}

func TestService_SettleRejected(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte(`{"status":"GAGAL","message":"Saldo deposit tidak mencukupi"}`))
	})

	res, err := s.Settle(context.Background(), &Request{Reference: "TRX3", ProductCode: "T1", CustomerNumber: "0896"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	var re *RejectedError
	if !errors.As(err, &re) || re.Message != "Saldo deposit tidak mencukupi" {
		t.Errorf("provider message not kept verbatim: %v", err)
	}
	if res.Outcome != OutcomeFailure || len(res.Raw) == 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestService_SettleRequiresReference(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		t.Error("provider must not be called")
	})

	if _, err := s.Settle(context.Background(), &Request{ProductCode: "T1", CustomerNumber: "0896"}); err == nil {
		t.Error("expected error without reference")
	}
}

func TestService_ServerErrorIsUnreachable(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	res, err := s.Settle(context.Background(), &Request{Reference: "TRX4", ProductCode: "T1", CustomerNumber: "0896"})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if res == nil || res.Outcome != OutcomeFailure {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestService_ClientErrorIsRejected(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("forbidden"))
	})

	_, err := s.Settle(context.Background(), &Request{Reference: "TRX5", ProductCode: "T1", CustomerNumber: "0896"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestService_RateLimitIsUnreachable(t *testing.T) {
	for _, code := range []int{http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
				http.Error(w, "too many requests", code)
			})

			res, err := s.Settle(context.Background(), &Request{Reference: "TRX8", ProductCode: "T1", CustomerNumber: "0896"})
			if !errors.Is(err, ErrUnreachable) {
				t.Fatalf("expected ErrUnreachable, got %v", err)
			}
			var re *RejectedError
			if errors.As(err, &re) {
				t.Errorf("transient reply reported as rejection: %v", err)
			}
			if res == nil || res.Outcome != OutcomeFailure {
				t.Errorf("unexpected result: %+v", res)
			}
		})
	}
}

func TestService_MalformedReplyIsFailureWithoutError(t *testing.T) {
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	res, err := s.Settle(context.Background(), &Request{Reference: "TRX6", ProductCode: "T1", CustomerNumber: "0896"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeFailure || len(res.Raw) == 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestService_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s, err := NewService(Config{URL: url, MMID: "MM01", Password: "secret"}, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = s.Settle(context.Background(), &Request{Reference: "TRX7", ProductCode: "T1", CustomerNumber: "0896"})
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
}

func TestService_NotConfigured(t *testing.T) {
	s, err := NewService(Config{}, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if s.Configured() {
		t.Error("empty config reported as configured")
	}

	_, err = s.CheckBalance(context.Background())
	if !errors.Is(err, ErrNotConfigured) || !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestService_BreakerOpens(t *testing.T) {
	var calls int32
	s, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	s2, err := NewService(s.cfg, WithLogger(zerolog.Nop()), WithBreaker(2, time.Minute))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, err := s2.CheckStatus(context.Background(), "REF1")
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("call %d: expected ErrUnreachable, got %v", i, err)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("provider called %d times, want 2 before the breaker opened", got)
	}
}

func TestService_Inquire(t *testing.T) {
	s, c := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte(`{"status":"00","message":"Inquiry sukses","data":{"customer_name":"BUDI","amount":"150000","admin_fee":2500,"period":"JAN 2025"}}`))
	})

	res, err := s.Inquire(context.Background(), &Request{Reference: "INQ1", ProductCode: "PDAM", CustomerNumber: "123456"})
	if err != nil {
		t.Fatalf("Inquire: %v", err)
	}
	if c.path != "/api/inquiry" {
		t.Errorf("path = %s", c.path)
	}
	if res.Bill == nil || res.Bill.CustomerName != "BUDI" || res.Bill.Total != 152500 || res.Bill.Period != "JAN 2025" {
		t.Errorf("unexpected bill: %+v", res.Bill)
	}
}

func TestService_CheckBalance(t *testing.T) {
	s, c := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte(`{"status":"success","message":"ok","data":{"saldo":"1.500.000"}}`))
	})

	b, err := s.CheckBalance(context.Background())
	if err != nil {
		t.Fatalf("CheckBalance: %v", err)
	}
	if b.Amount != 1500000 {
		t.Errorf("balance = %d", b.Amount)
	}
	if c.path != "/api/balance" {
		t.Errorf("path = %s", c.path)
	}
}

func TestService_Products(t *testing.T) {
	s, c := newTestService(t, func(w http.ResponseWriter, r *http.Request, c *captured) {
		_, _ = w.Write([]byte(`{"status":"success","message":"ok","data":[{"code":"T1","name":"THREE 1.000","category":"PULSA","price":2000,"type":"PRABAYAR"}]}`))
	})

	pp, err := s.Products(context.Background(), "PULSA")
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(pp) != 1 || pp[0].Code != "T1" || pp[0].Price != 2000 {
		t.Errorf("unexpected products: %+v", pp)
	}
	if c.body["category"] != "PULSA" {
		t.Errorf("category not sent: %#v", c.body)
	}
}
