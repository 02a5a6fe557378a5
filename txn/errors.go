package txn

import "errors"

var (
	// ErrWatchInsideMulti is returned by Session.Watch when the session is
	// already inside a transaction; WATCH only makes sense before MULTI.
	ErrWatchInsideMulti = errors.New("txn: WATCH is not allowed inside MULTI")

	// ErrNestedMulti is returned by Session.Multi when the session is
	// already inside a transaction.
	ErrNestedMulti = errors.New("txn: MULTI calls can not be nested")

	// ErrNotInTransaction is returned by Queue/Exec/Discard when the
	// session has no open transaction to act on.
	ErrNotInTransaction = errors.New("txn: no transaction is open")
)
