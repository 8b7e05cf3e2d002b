package domain

import (
	"context"
	"errors"
)

type Service interface {
	// CreateOrRotate issues a new PIN for role, superseding the previous one.
	CreateOrRotate(ctx context.Context, name, pin string, role Role) (*Staff, error)
	Verify(ctx context.Context, pin string) bool
	// Authenticate returns the staff row whose active PIN matches.
	Authenticate(ctx context.Context, pin string) (*Staff, error)
}

const MinPINLength = 4

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidPIN   = errors.New("invalid_pin")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrUnauthorized = errors.New("unauthorized")
)
