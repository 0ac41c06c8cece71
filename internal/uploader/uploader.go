// Package uploader provides object-storage destinations for persisted
// document artifacts.
package uploader

import "context"

// NoOp discards every upload. Used when no bucket is configured.
type NoOp struct{}

// NewNoOp returns a discard-everything uploader.
func NewNoOp() *NoOp {
	return &NoOp{}
}

// Save does nothing.
func (*NoOp) Save(context.Context, string, []byte) error {
	return nil
}
