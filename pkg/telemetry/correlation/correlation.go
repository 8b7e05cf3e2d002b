// Package correlation carries an id that ties together the log lines of one
// logical operation, such as a webhook delivery and the emails it triggers.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Header lets a caller supply its own correlation id.
const Header = "X-Correlation-Id"

const maxIDLength = 64

type key struct{}

func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(key{}).(string)
	return id
}

// WithID stores id on ctx. Blank or oversized ids are ignored.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxIDLength {
		return ctx
	}
	return context.WithValue(ctx, key{}, id)
}

// Ensure keeps an id already on ctx, then tries candidate, then mints a ULID.
func Ensure(ctx context.Context, candidate string) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	if next := WithID(ctx, candidate); next != ctx {
		return next, FromContext(next)
	}
	id := ulid.Make().String()
	return context.WithValue(ctx, key{}, id), id
}
