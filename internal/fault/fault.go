// Package fault defines the error conditions shared by the storage, cache and
// transport layers.
//
// Callers test for a condition with errors.Is; every layer wraps these
// sentinels with context rather than returning them bare.
package fault

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrUnconfigured indicates an operation was attempted before the store,
	// cache or client it needs was opened or configured.
	ErrUnconfigured = errors.New("catalogue: not configured")

	// ErrStorageUnavailable indicates the underlying persistent storage could
	// not be opened, read or written. The write, if any, was not applied.
	ErrStorageUnavailable = errors.New("catalogue: storage unavailable")

	// ErrNetworkFailure indicates a fetch was rejected or answered with a
	// non-success status.
	ErrNetworkFailure = errors.New("catalogue: network failure")

	// ErrTimeout indicates the caller's time budget elapsed before an answer
	// arrived. It is a NetworkFailure: errors.Is(ErrTimeout, ErrNetworkFailure)
	// holds.
	ErrTimeout = fmt.Errorf("%w: timeout", ErrNetworkFailure)

	// ErrPartialSnapshot indicates some but not all keys of a snapshot were
	// written. Freshness metadata is never updated for such a snapshot.
	ErrPartialSnapshot = errors.New("catalogue: partial snapshot")
)

// Storage wraps err as a StorageUnavailable condition for op.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

// Network classifies a transport error as a NetworkFailure, or a Timeout when
// the error came from an expired deadline.
func Network(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTimeout(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrNetworkFailure, err)
}

// IsTimeout reports whether err is a deadline expiry, either from a context
// or from a net.Error that timed out.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
