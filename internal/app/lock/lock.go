// Package lock serializes status mutations per transaction code.
package lock

import "context"

// Locker hands out exclusive ownership of a key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases the key
	// and is safe to call more than once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
