// Package apperr defines the error taxonomy shared by the store, the service
// and the transport layers.
package apperr

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrIDConflict     = errors.New("id already exists")
	ErrCorruptStorage = errors.New("corrupt storage")
)
