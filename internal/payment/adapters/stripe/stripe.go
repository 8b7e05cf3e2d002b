package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
)

const defaultTolerance = 5 * time.Minute

// Adapter verifies Stripe-Signature headers and decodes webhook payloads.
type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	clock         clock.Clock
}

func NewAdapter(cfg config.Config, clk clock.Clock) *Adapter {
	tolerance := cfg.Stripe.Tolerance
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Adapter{
		webhookSecret: strings.TrimSpace(cfg.Stripe.WebhookSecret),
		tolerance:     tolerance,
		clock:         clk,
	}
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	if a.webhookSecret == "" {
		return paymentdomain.ErrNotConfigured
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	ts, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	signedAt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := a.clock.Now().Sub(time.Unix(signedAt, 0))
	if math.Abs(float64(age)) > float64(a.tolerance) {
		return paymentdomain.ErrInvalidSignature
	}

	expected := sign(a.webhookSecret, ts, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var object map[string]any
	if len(event.Data.Object) > 0 {
		if err := json.Unmarshal(event.Data.Object, &object); err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
	}

	out := &paymentdomain.Event{
		Provider: paymentdomain.ProviderStripe,
		ID:       strings.TrimSpace(event.ID),
		Type:     strings.TrimSpace(event.Type),
		Created:  timestamp(event.Created, a.clock),
		Metadata: readMetadata(object),
		Raw:      payload,
	}

	switch out.Type {
	case paymentdomain.EventCheckoutCompleted, paymentdomain.EventCheckoutExpired:
		parseCheckoutSession(out, object)
	case paymentdomain.EventPaymentSucceeded, paymentdomain.EventPaymentFailed:
		parsePaymentIntent(out, object)
	default:
		return out, paymentdomain.ErrEventIgnored
	}
	return out, nil
}

func parseCheckoutSession(out *paymentdomain.Event, session map[string]any) {
	out.CheckoutSessionID = readString(session, "id")
	out.ClientReferenceID = readString(session, "client_reference_id")
	out.PaymentStatus = strings.ToLower(readString(session, "payment_status"))
	out.PaymentIntentID = readIDOrObject(session, "payment_intent")
	out.CustomerID = readIDOrObject(session, "customer")
	out.AmountCents = readInt(session, "amount_total")
	out.Currency = strings.ToLower(readString(session, "currency"))

	details := readObject(session, "customer_details")
	out.CustomerEmail = firstNonEmpty(readString(details, "email"), readString(session, "customer_email"))
	out.CustomerName = readString(details, "name")
	out.CustomerPhone = readString(details, "phone")

	if intent := readObject(session, "payment_intent"); intent != nil {
		readIntentDetails(out, intent)
	}
}

func parsePaymentIntent(out *paymentdomain.Event, intent map[string]any) {
	out.PaymentIntentID = readString(intent, "id")
	out.CustomerID = readIDOrObject(intent, "customer")
	out.Currency = strings.ToLower(readString(intent, "currency"))
	out.AmountCents = readInt(intent, "amount_received")
	if out.AmountCents <= 0 {
		out.AmountCents = readInt(intent, "amount")
	}
	readIntentDetails(out, intent)

	if lastErr := readObject(intent, "last_payment_error"); lastErr != nil {
		out.ErrorCode = firstNonEmpty(readString(lastErr, "decline_code"), readString(lastErr, "code"))
		out.ErrorMessage = readString(lastErr, "message")
	}
}

// readIntentDetails pulls charge, receipt and method type from either the
// latest_charge expansion or the legacy charges list.
func readIntentDetails(out *paymentdomain.Event, intent map[string]any) {
	if types, ok := intent["payment_method_types"].([]any); ok && len(types) > 0 {
		if t, ok := types[0].(string); ok {
			out.PaymentMethodType = strings.TrimSpace(t)
		}
	}

	charge := readObject(intent, "latest_charge")
	if charge == nil {
		out.ChargeID = firstNonEmpty(out.ChargeID, readString(intent, "latest_charge"))
		if list := readObject(intent, "charges"); list != nil {
			if data, ok := list["data"].([]any); ok && len(data) > 0 {
				charge, _ = data[0].(map[string]any)
			}
		}
	}
	if charge == nil {
		return
	}
	out.ChargeID = firstNonEmpty(readString(charge, "id"), out.ChargeID)
	out.ReceiptURL = readString(charge, "receipt_url")
	if details := readObject(charge, "payment_method_details"); details != nil {
		out.PaymentMethodType = firstNonEmpty(readString(details, "type"), out.PaymentMethodType)
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// SignatureHeader builds a Stripe-Signature value for payload signed at ts.
func SignatureHeader(secret string, payload []byte, ts time.Time) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", t, sign(secret, t, payload))
}

func sign(secret, ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var ts string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			ts = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if ts == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return ts, signatures, nil
}

func timestamp(value int64, clk clock.Clock) time.Time {
	if value == 0 {
		return clk.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadata(object map[string]any) map[string]string {
	raw := readObject(object, "metadata")
	out := make(map[string]string, len(raw))
	for key := range raw {
		if v := readMetadataValue(raw, key); v != "" {
			out[key] = v
		}
	}
	return out
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case bool:
		return strconv.FormatBool(cast)
	}
	return ""
}

func readObject(object map[string]any, key string) map[string]any {
	if object == nil {
		return nil
	}
	nested, _ := object[key].(map[string]any)
	return nested
}

func readString(object map[string]any, key string) string {
	if object == nil {
		return ""
	}
	value, _ := object[key].(string)
	return strings.TrimSpace(value)
}

// readIDOrObject accepts either an id string or an expanded object.
func readIDOrObject(object map[string]any, key string) string {
	if id := readString(object, key); id != "" {
		return id
	}
	return readString(readObject(object, key), "id")
}

func readInt(object map[string]any, key string) int64 {
	if object == nil {
		return 0
	}
	switch cast := object[key].(type) {
	case float64:
		return int64(cast)
	case json.Number:
		n, _ := cast.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(cast), 10, 64)
		return n
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
