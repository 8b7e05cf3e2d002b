package authorization

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}

// Actor is a verified staff member.
type Actor struct {
	ID   snowflake.ID
	Role string
}

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)
