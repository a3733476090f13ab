package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestProofName(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		contentType, original, want string
	}{
		{"image/png", "bukti.PNG", "payment-TRX1-1700000000.png"},
		{"image/jpeg", "bukti", "payment-TRX1-1700000000.jpg"},
		{"image/x-icon", "favicon.ICO", "payment-TRX1-1700000000.ico"},
	}

	for _, tt := range tests {
		if got := ProofName("TRX1", tt.contentType, tt.original, now); got != tt.want {
			t.Errorf("ProofName(%s, %s) = %s, want %s", tt.contentType, tt.original, got, tt.want)
		}
	}
}

func TestLocal_Put(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads")
	if err != nil {
		t.Fatal(err)
	}

	data := []byte("not really a png")
	ref, err := s.Put(context.Background(), "payment-TRX1-1.png", "image/png", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "/uploads/payment-TRX1-1.png" {
		t.Errorf("ref = %s", ref)
	}

	got, err := os.ReadFile(filepath.Join(dir, "payment-TRX1-1.png"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("stored bytes differ")
	}
}

func TestLocal_PutStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads/")
	if err != nil {
		t.Fatal(err)
	}

	ref, err := s.Put(context.Background(), "../../etc/passwd", "image/png", bytes.NewReader([]byte("x")), 1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "/uploads/passwd" {
		t.Errorf("ref = %s", ref)
	}
	if _, err := os.Stat(filepath.Join(dir, "passwd")); err != nil {
		t.Errorf("file not written inside the upload dir: %v", err)
	}
}

func TestLocal_PutShortWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir, "/uploads/")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Put(context.Background(), "a.png", "image/png", bytes.NewReader([]byte("abc")), 10); err == nil {
		t.Fatal("expected size mismatch error")
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("leftover files: %v", entries)
	}
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3_Put(t *testing.T) {
	f := &fakePutter{}
	s := NewS3WithClient(f, "proofs", "ap-southeast-1")

	ref, err := s.Put(context.Background(), "payment-TRX1-1.jpg", "image/jpeg", bytes.NewReader([]byte("jpg")), 3)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref != "https://proofs.s3.ap-southeast-1.amazonaws.com/payment-proofs/payment-TRX1-1.jpg" {
		t.Errorf("ref = %s", ref)
	}
	if aws.ToString(f.in.Bucket) != "proofs" || aws.ToString(f.in.ContentType) != "image/jpeg" || string(f.body) != "jpg" {
		t.Errorf("unexpected input: %+v", f.in)
	}

	f.err = errors.New("access denied")
	if _, err := s.Put(context.Background(), "x.jpg", "image/jpeg", bytes.NewReader(nil), 0); err == nil {
		t.Error("expected error")
	}
}
