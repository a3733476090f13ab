// Package proof validates uploaded payment proofs and attaches them to pending transactions.
package proof

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/blob"
	"ppobmart/internal/app/lock"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
)

const DefaultMaxBytes = 5 << 20

// Upload is a proof file as received from the customer.
type Upload struct {
	Filename    string
	ContentType string
	// Size is the declared size, -1 when unknown.
	Size int64
	Body io.Reader
}

type Service struct {
	store    storage.TransactionRepository
	blobs    blob.Store
	locks    lock.Locker
	maxBytes int64
	now      func() time.Time
}

type Option func(*Service)

func WithMaxBytes(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store storage.TransactionRepository, blobs blob.Store, locks lock.Locker, opts ...Option) *Service {
	s := &Service{
		store:    store,
		blobs:    blobs,
		locks:    locks,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) LoggerComponent() string {
	return "Proof.Service"
}

// MaxBytes is the largest accepted proof.
func (s *Service) MaxBytes() int64 {
	return s.maxBytes
}

// Attach stores the proof and records its reference. Size and content are checked
// before the transaction or the blob store are touched.
func (s *Service) Attach(ctx context.Context, code string, up Upload) (*model.Transaction, error) {
	l := logger.Get(ctx, s).With().Str("code", code).Logger()

	data, contentType, err := s.validate(up)
	if err != nil {
		l.Debug().Err(err).Str("filename", up.Filename).Msg("Proof refused")
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("attach proof %s: lock: %w", code, err)
	}
	defer unlock()

	m, err := s.store.ReadByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("attach proof %s: %w", code, err)
	}
	if m.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: proof upload while %s", apperr.ErrInvalidTransition, m.Status)
	}

	name := blob.ProofName(code, contentType, up.Filename, s.now())
	ref, err := s.blobs.Put(ctx, name, contentType, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("attach proof %s: %w", code, err)
	}

	m, err = s.store.AttachProof(ctx, code, ref)
	if err != nil {
		return nil, fmt.Errorf("attach proof %s: %w", code, err)
	}

	l.Info().Str("ref", ref).Int("size", len(data)).Str("content_type", contentType).Msg("Proof attached")

	return m, nil
}

func (s *Service) validate(up Upload) ([]byte, string, error) {
	if up.Size > s.maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes, limit %d", apperr.ErrTooLarge, up.Size, s.maxBytes)
	}

	declared := strings.ToLower(strings.TrimSpace(up.ContentType))
	if declared != "" && !strings.HasPrefix(declared, "image/") && declared != "application/octet-stream" {
		return nil, "", fmt.Errorf("%w: declared %s", apperr.ErrUnsupportedMediaType, declared)
	}

	data, err := io.ReadAll(io.LimitReader(up.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("proof read: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", apperr.ErrTooLarge, s.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file", apperr.ErrUnsupportedMediaType)
	}

	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "text/") || sniffed == "application/pdf" || sniffed == "application/zip" {
		return nil, "", fmt.Errorf("%w: content is %s", apperr.ErrUnsupportedMediaType, sniffed)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedMediaType, err.Error())
	}

	return data, "image/" + format, nil
}
