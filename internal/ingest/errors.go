package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a pipeline failure for the caller.
type Kind string

const (
	// KindInvalidInput covers bad or missing files and unsupported
	// content types. User-correctable, not retriable.
	KindInvalidInput Kind = "invalid_input"
	// KindDecodeFailure covers corrupt pixel data. Not retriable.
	KindDecodeFailure Kind = "decode_failure"
	// KindStorageFailure covers object store errors. Retriable by the
	// caller; puts are idempotent per key.
	KindStorageFailure Kind = "storage_failure"
	// KindPersistenceFailure covers metadata writes that failed after
	// storage succeeded. Retriable; the insert is idempotent on key.
	KindPersistenceFailure Kind = "persistence_failure"
)

// Retriable reports whether a caller retry can reasonably succeed.
func (k Kind) Retriable() bool {
	return k == KindStorageFailure || k == KindPersistenceFailure
}

// Error is a classified pipeline failure. WrittenKeys lists objects that
// were already durably written when the run failed; those are accepted
// orphans until a caller retries or deletes them.
type Error struct {
	Kind        Kind
	State       State
	WrittenKeys []string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ingestion failed in %s (%s)", e.State, e.Kind)
	if len(e.WrittenKeys) > 0 {
		fmt.Fprintf(&b, ", objects already written: %s", strings.Join(e.WrittenKeys, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// WrittenKeys extracts the already-written keys from an error chain.
func WrittenKeys(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.WrittenKeys
	}
	return nil
}
