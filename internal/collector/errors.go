package collector

import (
	"errors"
	"fmt"
)

// ErrorKind classifies collection failures.
type ErrorKind int

const (
	// KindCollectionFailure aborts the collection; no snapshot is produced.
	KindCollectionFailure ErrorKind = iota
	// KindPartitionUnreadable is recovered by skipping to the next partition.
	KindPartitionUnreadable
)

func (k ErrorKind) String() string {
	switch k {
	case KindPartitionUnreadable:
		return "partition_unreadable"
	default:
		return "collection_failure"
	}
}

// Error carries the failing step alongside its kind.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failure(op string, err error) error {
	return &Error{Kind: KindCollectionFailure, Op: op, Err: err}
}

// KindOf extracts the kind of a collection error; unknown errors are failures.
func KindOf(err error) ErrorKind {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind
	}
	return KindCollectionFailure
}
