package model

import (
	"context"
	"errors"
)

// ErrMissingCredential is returned when a provider has no usable API
// credential. Callers surface it as a distinct, actionable condition.
var ErrMissingCredential = errors.New("model: missing api credential")

// Generator is the text-generation abstraction: one prompt in, one
// assistant reply out. Implementations may block on network I/O and must
// honor ctx cancellation.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// IsMissingCredential reports whether err is the missing-credential
// condition, directly or wrapped.
func IsMissingCredential(err error) bool {
	return errors.Is(err, ErrMissingCredential)
}
