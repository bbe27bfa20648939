package repository

import "errors"

// ErrNotFound is returned when an order or payment token lookup matches no
// row, and when a guarded status update targets an order that does not
// exist.
var ErrNotFound = errors.New("record not found")
