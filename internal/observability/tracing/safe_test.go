package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsContactData(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/checkin"),
		attribute.String("email", "jane@x.com"),
		attribute.String("phone", "5551234567"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTrimsWrappedDetail(t *testing.T) {
	err := fmt.Errorf("member lookup: %w", errors.New("jane@x.com not found"))
	assert.EqualError(t, SafeError(err), "member lookup")
	assert.Nil(t, SafeError(nil))
}
