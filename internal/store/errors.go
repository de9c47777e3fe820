package store

import "errors"

// ErrNotFound is returned when a requested row does not exist in the local
// ledger.
var ErrNotFound = errors.New("record not found")
