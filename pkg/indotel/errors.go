package indotel

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrUnreachable is a transport-level failure, safe to retry with the same reference.
	ErrUnreachable = errors.New("gateway unreachable")
	// ErrRejected is a business failure reported by the provider.
	ErrRejected = errors.New("gateway rejected")
	// ErrNotConfigured is returned when URL, MMID or password are missing.
	ErrNotConfigured = errors.Wrap(ErrUnreachable, "gateway not configured")
)

// RejectedError keeps the provider message verbatim for operators.
type RejectedError struct {
	Message string
	Raw     []byte
}

func (e *RejectedError) Error() string {
	return "gateway rejected: " + e.Message
}

func (e *RejectedError) Unwrap() error {
	return ErrRejected
}

// IPNotAllowed reports whether the provider refused our source address.
func (e *RejectedError) IPNotAllowed() bool {
	m := strings.ToLower(e.Message)
	if !strings.Contains(m, "ip") {
		return false
	}
	for _, w := range []string{"not allow", "not regist", "whitelist", "tidak terdaftar", "belum terdaftar", "tidak diizinkan", "not permitted"} {
		if strings.Contains(m, w) {
			return true
		}
	}
	return false
}

// RemoteError is a non-2xx HTTP reply.
type RemoteError struct {
	ResponseBody string
	StatusCode   int
}

func NewRemoteError(responseBody string, statusCode int) *RemoteError {
	return &RemoteError{ResponseBody: responseBody, StatusCode: statusCode}
}

func (e *RemoteError) Error() string {
	return e.ResponseBody
}

// IsIPNotAllowed reports whether err is a rejection of our source address.
func IsIPNotAllowed(err error) bool {
	var re *RejectedError
	return errors.As(err, &re) && re.IPNotAllowed()
}
