package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist (or is not visible to the caller).
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate indicates a unique constraint rejected the write.
	ErrDuplicate = errors.New("repository: duplicate entry")
	// ErrConflict indicates a concurrent writer won the race; the operation may be retried.
	ErrConflict = errors.New("repository: concurrent update conflict")
)
