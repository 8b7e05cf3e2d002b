package context

import (
	stdcontext "context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	deviceIDKey  ctxKey = "device_id"
	actorTypeKey ctxKey = "actor_type"
	actorIDKey   ctxKey = "actor_id"
	clientIPKey  ctxKey = "client_ip"
	userAgentKey ctxKey = "user_agent"
)

const (
	ActorStaff   = "staff"
	ActorKiosk   = "kiosk"
	ActorWebhook = "webhook"
)

// WithRequestID stores the inbound request identifier.
func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithDeviceID stores the kiosk device that issued the request.
func WithDeviceID(ctx stdcontext.Context, deviceID string) stdcontext.Context {
	return stdcontext.WithValue(ctx, deviceIDKey, strings.TrimSpace(deviceID))
}

func DeviceIDFromContext(ctx stdcontext.Context) string {
	return stringValue(ctx, deviceIDKey)
}

// WithActor records who is acting on the request.
func WithActor(ctx stdcontext.Context, actorType, actorID string) stdcontext.Context {
	ctx = stdcontext.WithValue(ctx, actorTypeKey, strings.TrimSpace(actorType))
	return stdcontext.WithValue(ctx, actorIDKey, strings.TrimSpace(actorID))
}

func ActorFromContext(ctx stdcontext.Context) (string, string) {
	return stringValue(ctx, actorTypeKey), stringValue(ctx, actorIDKey)
}

// WithClient records the caller address and user agent.
func WithClient(ctx stdcontext.Context, ip, userAgent string) stdcontext.Context {
	ctx = stdcontext.WithValue(ctx, clientIPKey, strings.TrimSpace(ip))
	return stdcontext.WithValue(ctx, userAgentKey, strings.TrimSpace(userAgent))
}

func ClientFromContext(ctx stdcontext.Context) (string, string) {
	return stringValue(ctx, clientIPKey), stringValue(ctx, userAgentKey)
}

func stringValue(ctx stdcontext.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
