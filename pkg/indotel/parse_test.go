package indotel

import (
	"errors"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		outcome  Outcome
		ref      string
		amount   int64
		message  string
		rejected bool
	}{
		{
			name:    "json success with nested data",
			raw:     `{"status":"SUCCESS","message":"Transaksi sukses","data":{"ref_1":"TRX1","ref_2":"REF123","amount":50500}}`,
			outcome: OutcomeSuccess,
			ref:     "REF123",
			amount:  50500,
			message: "Transaksi sukses",
		},
		{
			name:    "json numeric status",
			raw:     `{"status":200,"message":"OK","data":{"transaction_id":"T-9","price":"50.500"}}`,
			outcome: OutcomeSuccess,
			ref:     "T-9",
			amount:  50500,
			message: "OK",
		},
		{
			name:    "json rc code pending",
			raw:     `{"rc":"68","msg":"Transaksi sedang diproses","refid":"R77"}`,
			outcome: OutcomePending,
			ref:     "R77",
			message: "Transaksi sedang diproses",
		},
		{
			name:     "json failure",
			raw:      `{"status":"FAILED","message":"Saldo tidak mencukupi"}`,
			outcome:  OutcomeFailure,
			message:  "Saldo tidak mencukupi",
			rejected: true,
		},
		{
			name:     "json boolean false",
			raw:      `{"success":false,"message":"Nomor tujuan salah"}`,
			outcome:  OutcomeFailure,
			message:  "Nomor tujuan salah",
			rejected: true,
		},
		{
			name:    "plain text hash separated",
			raw:     "STATUS:SUKSES#REFID:889900#HARGA:Rp 20.500#MSG:Token 1234-5678",
			outcome: OutcomeSuccess,
			ref:     "889900",
			amount:  20500,
			message: "Token 1234-5678",
		},
		{
			name:     "plain text lines",
			raw:      "status=GAGAL\nketerangan=IP 10.0.0.1 tidak terdaftar\n",
			outcome:  OutcomeFailure,
			message:  "IP 10.0.0.1 tidak terdaftar",
			rejected: true,
		},
		{
			name:    "html error page",
			raw:     "<html><body>Bad Gateway</body></html>",
			outcome: OutcomeFailure,
			message: "unrecognized provider reply",
		},
		{
			name:    "json without status",
			raw:     `{"foo":"bar"}`,
			outcome: OutcomeFailure,
			message: "unrecognized provider reply",
		},
		{
			name:    "empty",
			raw:     "",
			outcome: OutcomeFailure,
			message: "unrecognized provider reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _, err := normalize([]byte(tt.raw))

			if res == nil {
				t.Fatal("nil result")
			}
			if res.Outcome != tt.outcome {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.outcome)
			}
			if res.ProviderRef != tt.ref {
				t.Errorf("ref = %q, want %q", res.ProviderRef, tt.ref)
			}
			if res.Amount != tt.amount {
				t.Errorf("amount = %d, want %d", res.Amount, tt.amount)
			}
			if res.Message != tt.message {
				t.Errorf("message = %q, want %q", res.Message, tt.message)
			}
			if len(res.Raw) == 0 && tt.raw != "" {
				t.Error("raw payload dropped")
			}

			if tt.rejected {
				if !errors.Is(err, ErrRejected) {
					t.Errorf("expected ErrRejected, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := map[string]int64{
		"50500":        50500,
		"50500.00":     50500,
		"Rp 50.500":    50500,
		"50.500,00":    50500,
		"1.250.000":    1250000,
		"12.5":         13,
		"1,500,000":    1500000,
		"150,000":      150000,
		"1,500,000.00": 1500000,
		"12,5":         13,
	}

	for in, want := range tests {
		got, err := parseAmount(in)
		if err != nil {
			t.Errorf("parseAmount(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("parseAmount(%q) = %d, want %d", in, got, want)
		}
	}

	if _, err := parseAmount("abc"); err == nil {
		t.Error("expected error for non-numeric amount")
	}
}

func TestRejectedErrorIPNotAllowed(t *testing.T) {
	tests := map[string]bool{
		"IP 10.0.0.1 tidak terdaftar":     true,
		"Your IP is not allowed":          true,
		"ip belum terdaftar di whitelist": true,
		"Saldo tidak mencukupi":           false,
		"Nomor tidak terdaftar":           false,
	}

	for msg, want := range tests {
		err := &RejectedError{Message: msg}
		if got := IsIPNotAllowed(err); got != want {
			t.Errorf("IsIPNotAllowed(%q) = %v, want %v", msg, got, want)
		}
	}
}
