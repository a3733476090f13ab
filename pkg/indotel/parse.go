package indotel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// reply is a provider answer reduced to flat lower-cased fields.
type reply struct {
	status  string
	message string
	fields  map[string]string
	list    json.RawMessage
}

var (
	statusKeys  = []string{"status", "rc", "response_code", "responsecode", "success"}
	messageKeys = []string{"message", "msg", "keterangan", "ket", "desc", "description"}
	refKeys     = []string{"ref_2", "refid", "ref_id", "reference", "transaction_id", "trxid", "trx_id", "sn", "serial_number"}
	amountKeys  = []string{"total_amount", "total", "amount", "harga", "price", "tagihan", "nominal"}
	balanceKeys = []string{"balance", "saldo"}

	successWords = map[string]bool{"success": true, "sukses": true, "berhasil": true, "ok": true, "00": true, "0": true, "200": true, "true": true}
	pendingWords = map[string]bool{"pending": true, "proses": true, "process": true, "processing": true, "diproses": true, "68": true}

	textSeparators  = regexp.MustCompile(`[#|;\r\n]+`)
	thousandsDots   = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	thousandsCommas = regexp.MustCompile(`^\d{1,3}(,\d{3})+$`)
)

// parseReply understands JSON objects and KEY:VALUE plain text. ok is false for anything else.
func parseReply(raw []byte) (*reply, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}

	if trimmed[0] == '{' {
		return parseJSON(trimmed)
	}

	return parseText(string(trimmed))
}

func parseJSON(raw []byte) (*reply, bool) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, false
	}

	r := &reply{fields: make(map[string]string)}
	for k, v := range top {
		k = strings.ToLower(k)
		if k == "data" {
			continue
		}
		if s, ok := scalar(v); ok {
			r.fields[k] = s
		}
	}

	if data, ok := top["data"]; ok {
		data = bytes.TrimSpace(data)
		switch {
		case len(data) > 0 && data[0] == '{':
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(data, &obj); err == nil {
				for k, v := range obj {
					if s, ok := scalar(v); ok {
						r.fields[strings.ToLower(k)] = s
					}
				}
			}
		case len(data) > 0 && data[0] == '[':
			r.list = data
		}
	}

	r.status = first(r.fields, statusKeys)
	r.message = first(r.fields, messageKeys)
	if r.status == "" {
		return nil, false
	}

	return r, true
}

func parseText(s string) (*reply, bool) {
	r := &reply{fields: make(map[string]string)}
	for _, part := range textSeparators.Split(s, -1) {
		i := strings.IndexAny(part, ":=")
		if i <= 0 {
			continue
		}
		k := strings.ToLower(strings.TrimSpace(part[:i]))
		v := strings.TrimSpace(part[i+1:])
		if _, dup := r.fields[k]; !dup {
			r.fields[k] = v
		}
	}

	r.status = first(r.fields, statusKeys)
	r.message = first(r.fields, messageKeys)
	if r.status == "" {
		return nil, false
	}

	return r, true
}

func scalar(v json.RawMessage) (string, bool) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return "", false
	}
	switch v[0] {
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	default:
		return string(v), true
	}
}

func first(fields map[string]string, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func classify(status string) Outcome {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case successWords[s]:
		return OutcomeSuccess
	case pendingWords[s]:
		return OutcomePending
	default:
		return OutcomeFailure
	}
}

// parseAmount accepts provider amounts like 50500, "50500.00", "Rp 50.500" or "50.500,00".
func parseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "Rp"), "rp")
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	switch {
	case strings.Contains(s, ",") && strings.LastIndex(s, ".") > strings.LastIndex(s, ","):
		// 1,500,000.00
		s = strings.ReplaceAll(s, ",", "")
	case thousandsCommas.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		// 1.500.000,50
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case thousandsDots.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}

	return d.Round(0).IntPart(), nil
}

func (r *reply) amount(keys []string) int64 {
	for _, k := range keys {
		v, ok := r.fields[k]
		if !ok {
			continue
		}
		if n, err := parseAmount(v); err == nil {
			return n
		}
	}
	return 0
}

// normalize turns a parsed reply into a Result. A failure status comes back as *RejectedError.
// Replies that cannot be parsed are failures without an error, the raw payload is kept.
func normalize(raw []byte) (*Result, *reply, error) {
	res := &Result{Raw: rawJSON(raw)}

	r, ok := parseReply(raw)
	if !ok {
		res.Outcome = OutcomeFailure
		res.Message = "unrecognized provider reply"
		return res, nil, nil
	}

	res.Outcome = classify(r.status)
	res.Message = r.message
	res.ProviderRef = first(r.fields, refKeys)
	res.Amount = r.amount(amountKeys)

	if res.Outcome == OutcomeFailure {
		msg := r.message
		if msg == "" {
			msg = "status " + r.status
		}
		return res, r, &RejectedError{Message: msg, Raw: raw}
	}

	return res, r, nil
}

func (r *reply) bill() *Bill {
	b := &Bill{
		CustomerName: first(r.fields, []string{"customer_name", "nama", "name"}),
		Amount:       r.amount([]string{"amount", "tagihan"}),
		AdminFee:     r.amount([]string{"admin_fee", "admin", "biaya_admin"}),
		Total:        r.amount([]string{"total_amount", "total"}),
		Period:       first(r.fields, []string{"period", "periode"}),
		DueDate:      first(r.fields, []string{"due_date", "jatuh_tempo"}),
	}
	if b.Total == 0 {
		b.Total = b.Amount + b.AdminFee
	}
	return b
}

// rawJSON keeps JSON replies as they are and quotes anything else.
func rawJSON(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return append(json.RawMessage(nil), raw...)
	}
	return json.RawMessage(strconv.Quote(string(raw)))
}
