package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ppobmart/internal/app/logger"
)

var _ Store = (*Local)(nil)

// Local writes blobs into a directory served under urlPrefix.
type Local struct {
	dir       string
	urlPrefix string
}

func NewLocal(dir string, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &Local{dir: dir, urlPrefix: urlPrefix}, nil
}

func (s *Local) LoggerComponent() string {
	return "Blob.Local"
}

// Dir is the directory blobs are written to.
func (s *Local) Dir() string {
	return s.dir
}

// URLPrefix is the public path blobs are served under, with a trailing slash.
func (s *Local) URLPrefix() string {
	return s.urlPrefix
}

func (s *Local) Put(ctx context.Context, name string, _ string, r io.Reader, size int64) (string, error) {
	l := logger.Get(ctx, s)

	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob name")
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("blob write: %w", err)
	}
	if size >= 0 && n != size {
		return "", fmt.Errorf("blob write: got %d bytes, want %d", n, size)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("blob rename: %w", err)
	}

	l.Debug().Str("name", name).Int64("size", n).Msg("Blob stored")

	return s.urlPrefix + name, nil
}
