package library

import "errors"

// ErrDuplicateRecord is returned when a download record already exists for a
// title and ordinal. Callers treat it as "already handled", not a failure.
var ErrDuplicateRecord = errors.New("download record already exists")

// ErrTitleNotFound is returned when a lookup by slug or id matches nothing.
var ErrTitleNotFound = errors.New("title not found")

// ErrPersistence wraps database failures that leave the library state
// unknown. A check cycle aborts the remaining work for the affected title
// when it sees this.
var ErrPersistence = errors.New("library persistence failure")
