package correlation_test

import (
	"context"
	"strings"
	"testing"

	"github.com/smallbiznis/frontdesk/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
)

func TestEnsureKeepsExisting(t *testing.T) {
	ctx := correlation.WithID(context.Background(), " abc ")
	ctx, id := correlation.Ensure(ctx, "other")
	assert.Equal(t, "abc", id)
	assert.Equal(t, "abc", correlation.FromContext(ctx))
}

func TestEnsureUsesCandidate(t *testing.T) {
	ctx, id := correlation.Ensure(context.Background(), "req-7")
	assert.Equal(t, "req-7", id)
	assert.Equal(t, "req-7", correlation.FromContext(ctx))
}

func TestEnsureGeneratesULID(t *testing.T) {
	ctx, id := correlation.Ensure(context.Background(), "  ")
	assert.Len(t, id, 26)
	assert.Equal(t, id, correlation.FromContext(ctx))

	_, other := correlation.Ensure(context.Background(), strings.Repeat("x", 65))
	assert.Len(t, other, 26)
	assert.NotEqual(t, id, other)
}
