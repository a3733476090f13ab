package indotel

import "encoding/json"

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomePending Outcome = "pending"
	OutcomeFailure Outcome = "failure"
)

// Request is a purchase intent sent to the provider.
type Request struct {
	// Reference is our idempotency key, the transaction code.
	Reference      string
	ProductCode    string
	CustomerNumber string
	// Postpaid selects bill payment instead of prepaid top-up on settle.
	Postpaid bool
	Params   map[string]string
}

// Result is the normalized provider reply. Raw keeps the reply verbatim.
type Result struct {
	Outcome     Outcome         `json:"outcome"`
	ProviderRef string          `json:"providerRef,omitempty"`
	Amount      int64           `json:"amount,omitempty"`
	Message     string          `json:"message"`
	Raw         json.RawMessage `json:"-"`
	Bill        *Bill           `json:"bill,omitempty"`
}

func (r *Result) Succeeded() bool {
	return r != nil && r.Outcome == OutcomeSuccess
}

// Bill is the postpaid billing detail returned by inquiry.
type Bill struct {
	CustomerName string `json:"customerName,omitempty"`
	Amount       int64  `json:"amount"`
	AdminFee     int64  `json:"adminFee"`
	Total        int64  `json:"totalAmount"`
	Period       string `json:"period,omitempty"`
	DueDate      string `json:"dueDate,omitempty"`
}

type Balance struct {
	Amount int64 `json:"balance"`
}

type Category struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
}

type Product struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Operator    string `json:"operator"`
	Price       int64  `json:"price"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type wireRequest struct {
	MMID        string `json:"mmid"`
	Ref1        string `json:"ref_1,omitempty"`
	Ref2        string `json:"ref_2,omitempty"`
	ProductCode string `json:"product_code,omitempty"`
	CustomerID  string `json:"customer_id,omitempty"`
	Periode     string `json:"periode,omitempty"`
	Tahun       string `json:"tahun,omitempty"`
	Nominal     string `json:"nominal,omitempty"`
	Category    string `json:"category,omitempty"`
}
