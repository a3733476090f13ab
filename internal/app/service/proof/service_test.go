package proof

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/lock"
	"ppobmart/internal/app/model"
	"ppobmart/internal/app/storage"
	"ppobmart/internal/app/storage/storagetest"
)

type fakeBlobs struct {
	puts map[string][]byte
}

func (f *fakeBlobs) Put(_ context.Context, name string, _ string, r io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.puts[name] = b
	return "/uploads/" + name, nil
}

func encode(t *testing.T, enc func(io.Writer, image.Image) error) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	buf := &bytes.Buffer{}
	if err := enc(buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func setup(t *testing.T) (*Service, *storagetest.Memory, *fakeBlobs, *model.Transaction) {
	t.Helper()

	store := storagetest.NewMemory()
	blobs := &fakeBlobs{puts: make(map[string][]byte)}
	s := New(store, blobs, lock.NewKeyed(), WithClock(func() time.Time { return time.Unix(1700000000, 0) }))

	m, err := store.Create(context.Background(), &model.Transaction{ProductCode: "PLN50", CustomerNumber: "081234567890", Price: 50500})
	if err != nil {
		t.Fatal(err)
	}

	return s, store, blobs, m
}

func TestAttach_PNG(t *testing.T) {
	s, store, blobs, m := setup(t)
	data := encode(t, png.Encode)

	got, err := s.Attach(context.Background(), m.Code, Upload{Filename: "bukti.png", ContentType: "image/png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}

	want := "/uploads/payment-" + m.Code + "-1700000000.png"
	if got.PaymentProofURL != want {
		t.Errorf("proof = %s, want %s", got.PaymentProofURL, want)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status changed to %s", got.Status)
	}

	stored, _ := store.ReadByCode(context.Background(), m.Code)
	if stored.PaymentProofURL != want {
		t.Errorf("stored proof = %s", stored.PaymentProofURL)
	}
	if len(blobs.puts) != 1 {
		t.Errorf("%d blobs written", len(blobs.puts))
	}
}

func TestAttach_BMPWithoutDeclaredType(t *testing.T) {
	s, _, _, m := setup(t)
	data := encode(t, bmp.Encode)

	got, err := s.Attach(context.Background(), m.Code, Upload{Filename: "scan", Size: -1, Body: bytes.NewReader(data)})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if !strings.HasSuffix(got.PaymentProofURL, ".bmp") {
		t.Errorf("proof = %s", got.PaymentProofURL)
	}
}

func TestAttach_TooLarge(t *testing.T) {
	tests := map[string]Upload{
		"declared": {Filename: "big.png", ContentType: "image/png", Size: 6 << 20, Body: bytes.NewReader(make([]byte, 6<<20))},
		"unknown":  {Filename: "big.png", ContentType: "image/png", Size: -1, Body: bytes.NewReader(make([]byte, 6<<20))},
	}

	for name, up := range tests {
		t.Run(name, func(t *testing.T) {
			s, store, blobs, m := setup(t)

			if _, err := s.Attach(context.Background(), m.Code, up); !errors.Is(err, apperr.ErrTooLarge) {
				t.Fatalf("expected ErrTooLarge, got %v", err)
			}

			assertUntouched(t, store, blobs, m)
		})
	}
}

func TestAttach_NotAnImage(t *testing.T) {
	tests := map[string]Upload{
		"declared pdf":   {Filename: "a.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")},
		"html as image":  {Filename: "a.png", ContentType: "image/png", Size: -1, Body: strings.NewReader("<html><script>alert(1)</script></html>")},
		"garbage binary": {Filename: "a.jpg", ContentType: "image/jpeg", Size: -1, Body: bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7})},
		"empty":          {Filename: "a.jpg", ContentType: "image/jpeg", Size: 0, Body: bytes.NewReader(nil)},
		"svg":            {Filename: "a.svg", ContentType: "image/svg+xml", Size: -1, Body: strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"/>`)},
	}

	for name, up := range tests {
		t.Run(name, func(t *testing.T) {
			s, store, blobs, m := setup(t)

			if _, err := s.Attach(context.Background(), m.Code, up); !errors.Is(err, apperr.ErrUnsupportedMediaType) {
				t.Fatalf("expected ErrUnsupportedMediaType, got %v", err)
			}

			assertUntouched(t, store, blobs, m)
		})
	}
}

func TestAttach_OnlyWhilePending(t *testing.T) {
	s, store, blobs, m := setup(t)

	if _, err := store.UpdateStatus(context.Background(), m.Code, storage.StatusUpdate{Status: model.StatusRejected}); err != nil {
		t.Fatal(err)
	}

	data := encode(t, png.Encode)
	_, err := s.Attach(context.Background(), m.Code, Upload{Filename: "a.png", ContentType: "image/png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(blobs.puts) != 0 {
		t.Error("blob written for a rejected transaction")
	}
}

func TestAttach_UnknownTransaction(t *testing.T) {
	s, _, _, _ := setup(t)

	data := encode(t, png.Encode)
	_, err := s.Attach(context.Background(), "TRXNOPE", Upload{Filename: "a.png", ContentType: "image/png", Size: int64(len(data)), Body: bytes.NewReader(data)})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func assertUntouched(t *testing.T, store *storagetest.Memory, blobs *fakeBlobs, before *model.Transaction) {
	t.Helper()

	after, err := store.ReadByCode(context.Background(), before.Code)
	if err != nil {
		t.Fatal(err)
	}
	if after.PaymentProofURL != before.PaymentProofURL || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("transaction mutated: %+v", after)
	}
	if len(blobs.puts) != 0 {
		t.Errorf("%d blobs written", len(blobs.puts))
	}
}
