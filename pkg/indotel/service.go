package indotel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

const maxReplySize = 1 << 20

type Config struct {
	URL      string
	MMID     string
	Password string
}

// Configured reports whether all credentials are present.
func (c Config) Configured() bool {
	return c.URL != "" && c.MMID != "" && c.Password != ""
}

// Service is a stateless client of the Indotel billing API. It never retries on its own.
type Service struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
	breaker    *gobreaker.CircuitBreaker
	settings   gobreaker.Settings
}

func (s *Service) LoggerComponent() string {
	return "Indotel.Service"
}

func NewService(cfg Config, opts ...ServiceOption) (*Service, error) {
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	c := &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.Logger,
		settings: gobreaker.Settings{
			Name:        "indotel",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	c.logger = c.logger.With().Str("component", c.LoggerComponent()).Logger()
	c.settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Breaker state changed")
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.settings)

	return c, nil
}

type ServiceOption func(*Service)

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = l
	}
}

func WithHTTPClient(c *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = c
	}
}

func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

// WithBreaker opens the breaker after maxFailures consecutive transport failures for openFor.
func WithBreaker(maxFailures uint32, openFor time.Duration) ServiceOption {
	return func(s *Service) {
		if maxFailures > 0 {
			s.settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			}
		}
		if openFor > 0 {
			s.settings.Timeout = openFor
		}
	}
}

func (s *Service) Configured() bool {
	return s.cfg.Configured()
}

func (s *Service) wire(in *Request) *wireRequest {
	w := &wireRequest{
		MMID:        s.cfg.MMID,
		Ref1:        in.Reference,
		ProductCode: in.ProductCode,
		CustomerID:  in.CustomerNumber,
	}
	if in.Params != nil {
		w.Periode = in.Params["periode"]
		w.Tahun = in.Params["tahun"]
		w.Nominal = in.Params["nominal"]
	}
	return w
}

// Inquire fetches postpaid billing detail without moving money.
func (s *Service) Inquire(ctx context.Context, in *Request) (*Result, error) {
	res, r, err := s.genericCall(ctx, "inquiry", s.wire(in))
	if r != nil {
		res.Bill = r.bill()
		if res.Amount == 0 {
			res.Amount = res.Bill.Total
		}
	}
	return res, err
}

// Settle pays a postpaid bill or tops up a prepaid product. The provider is assumed
// to be idempotent on in.Reference, so retrying with the same reference must not double-charge.
func (s *Service) Settle(ctx context.Context, in *Request) (*Result, error) {
	if in.Reference == "" {
		return &Result{Outcome: OutcomeFailure, Message: "missing reference"}, errors.New("settle requires a reference")
	}

	endpoint := "topup"
	if in.Postpaid {
		endpoint = "payment"
	}

	res, _, err := s.genericCall(ctx, endpoint, s.wire(in))
	return res, err
}

// CheckStatus polls the provider for an operation submitted earlier.
func (s *Service) CheckStatus(ctx context.Context, providerRef string) (*Result, error) {
	if providerRef == "" {
		return &Result{Outcome: OutcomeFailure, Message: "missing provider reference"}, errors.New("status check requires a provider reference")
	}

	res, _, err := s.genericCall(ctx, "status", &wireRequest{MMID: s.cfg.MMID, Ref2: providerRef})
	if res.ProviderRef == "" {
		res.ProviderRef = providerRef
	}
	return res, err
}

// CheckBalance returns the deposit left on the provider account.
func (s *Service) CheckBalance(ctx context.Context) (*Balance, error) {
	res, r, err := s.genericCall(ctx, "balance", &wireRequest{MMID: s.cfg.MMID})
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, &RejectedError{Message: res.Message, Raw: res.Raw}
	}

	return &Balance{Amount: r.amount(balanceKeys)}, nil
}

// Categories lists the provider product categories.
func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	out := make([]Category, 0)
	if err := s.listCall(ctx, "product-categories", &wireRequest{MMID: s.cfg.MMID}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Products lists the provider products of a category, all of them for an empty category.
func (s *Service) Products(ctx context.Context, category string) ([]Product, error) {
	out := make([]Product, 0)
	if err := s.listCall(ctx, "products", &wireRequest{MMID: s.cfg.MMID, Category: category}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) listCall(ctx context.Context, endpoint string, in *wireRequest, out interface{}) error {
	res, r, err := s.genericCall(ctx, endpoint, in)
	if err != nil {
		return err
	}
	if r == nil || r.list == nil {
		return &RejectedError{Message: "reply carries no list", Raw: res.Raw}
	}
	if err := json.Unmarshal(r.list, out); err != nil {
		return &RejectedError{Message: fmt.Sprintf("list decode: %v", err), Raw: res.Raw}
	}
	return nil
}

// genericCall always returns a Result. Transport failures wrap ErrUnreachable,
// provider failures are *RejectedError.
func (s *Service) genericCall(ctx context.Context, endpoint string, in *wireRequest) (*Result, *reply, error) {
	l := s.logger.With().Str("endpoint", endpoint).Str("ref_1", in.Ref1).Logger()
	ctx = l.WithContext(ctx)

	if !s.Configured() {
		return &Result{Outcome: OutcomeFailure, Message: ErrNotConfigured.Error()}, nil, ErrNotConfigured
	}

	raw, status, err := s.request(ctx, endpoint, in)
	if err != nil {
		l.Error().Err(err).Msg("Service request failed")
		return &Result{Outcome: OutcomeFailure, Message: err.Error()}, nil, err
	}

	l.Debug().Int("http_status", status).Str("http_body", string(raw)).Msg("Service replied")

	res, r, err := normalize(raw)
	if err == nil && r == nil && status >= 400 {
		err = &RejectedError{Message: NewRemoteError(string(raw), status).Error(), Raw: raw}
	}
	if err == nil && status >= 400 && res.Outcome != OutcomeFailure {
		res.Outcome = OutcomeFailure
		err = &RejectedError{Message: res.Message, Raw: raw}
	}
	if err != nil {
		l.Warn().Err(err).Msg("Service rejected request")
	}

	return res, r, err
}

type httpReply struct {
	status int
	body   []byte
}

func (s *Service) request(ctx context.Context, endpoint string, bodyParams interface{}) ([]byte, int, error) {
	fullURL := s.cfg.URL + "/api/" + endpoint
	l := zerolog.Ctx(ctx).With().Str("url", fullURL).Logger()

	rawJSON, err := json.Marshal(bodyParams)
	if err != nil {
		return nil, 0, errors.Wrap(err, "json encode")
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(rawJSON))
		if err != nil {
			return nil, errors.Wrap(err, "new request")
		}
		req.Header.Add("Content-Type", "application/json")
		req.Header.Add("Accept", "application/json")
		req.Header.Add("rqid", s.cfg.Password)

		l.Debug().Str("request_body", string(rawJSON)).Msg("Doing request")

		res, err := s.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrap(ErrUnreachable, err.Error())
		}
		defer func() {
			_ = res.Body.Close()
		}()

		body, err := io.ReadAll(io.LimitReader(res.Body, maxReplySize))
		if err != nil {
			return nil, errors.Wrap(ErrUnreachable, "body read: "+err.Error())
		}

		if res.StatusCode >= 500 || transientStatus(res.StatusCode) {
			return nil, errors.Wrapf(ErrUnreachable, "http %d: %s", res.StatusCode, NewRemoteError(string(body), res.StatusCode))
		}

		return &httpReply{status: res.StatusCode, body: body}, nil
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, 0, errors.Wrap(ErrUnreachable, err.Error())
		}
		return nil, 0, err
	}

	r := out.(*httpReply)
	return r.body, r.status, nil
}

// transientStatus reports 4xx replies that say "try later" rather than "no".
func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return false
}
