// Package blob stores uploaded payment proofs and returns a stable reference to them.
package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Store keeps the bytes, the transaction only keeps the returned reference.
type Store interface {
	Put(ctx context.Context, name string, contentType string, r io.Reader, size int64) (ref string, err error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// ProofName builds payment-<code>-<unix><ext>. The original file name only contributes
// its extension when the content type is unknown.
func ProofName(code string, contentType string, original string, now time.Time) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = strings.ToLower(path.Ext(original))
	}
	return fmt.Sprintf("payment-%s-%d%s", code, now.Unix(), ext)
}
