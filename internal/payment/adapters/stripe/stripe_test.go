package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newAdapter(secret string) *Adapter {
	return NewAdapter(config.Config{Stripe: config.StripeConfig{WebhookSecret: secret}}, clock.NewFakeClock(now))
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)
	adapter := newAdapter(secret)

	header := http.Header{}
	header.Set("Stripe-Signature", SignatureHeader(secret, payload, now.Add(-time.Minute)))
	if err := adapter.Verify(context.Background(), payload, header); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	cases := map[string]string{
		"wrong secret": SignatureHeader("wrong", payload, now),
		"stale":        SignatureHeader(secret, payload, now.Add(-6*time.Minute)),
		"future":       SignatureHeader(secret, payload, now.Add(6*time.Minute)),
		"garbage":      "v1=abc",
		"empty":        "",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			h := http.Header{}
			h.Set("Stripe-Signature", value)
			err := adapter.Verify(context.Background(), payload, h)
			assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
		})
	}

	t.Run("tampered payload", func(t *testing.T) {
		err := adapter.Verify(context.Background(), []byte(`{"id":"evt_124"}`), header)
		assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	})
}

func TestVerifyWithoutSecret(t *testing.T) {
	err := newAdapter("").Verify(context.Background(), []byte(`{}`), http.Header{})
	assert.ErrorIs(t, err, paymentdomain.ErrNotConfigured)
}

func TestParseCheckoutCompleted(t *testing.T) {
	payload := mustJSON(t, map[string]any{
		"id":      "evt_cs",
		"type":    "checkout.session.completed",
		"created": now.Unix(),
		"data": map[string]any{"object": map[string]any{
			"id":                  "cs_1",
			"client_reference_id": "ORD-20260301-ABC123",
			"payment_status":      "paid",
			"payment_intent":      "pi_1",
			"customer":            "cus_1",
			"amount_total":        2500,
			"currency":            "USD",
			"customer_details":    map[string]any{"email": "jane@x.com", "name": "Jane", "phone": "+15551234567"},
			"metadata":            map[string]any{"order_id": "42", "flow": "commerce"},
		}},
	})

	event, err := newAdapter("s").Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", event.CheckoutSessionID)
	assert.Equal(t, "pi_1", event.PaymentIntentID)
	assert.Equal(t, "cus_1", event.CustomerID)
	assert.Equal(t, "paid", event.PaymentStatus)
	assert.Equal(t, "jane@x.com", event.CustomerEmail)
	assert.Equal(t, "42", event.Meta(paymentdomain.MetaOrderID))
	assert.Equal(t, paymentdomain.FlowCommerce, event.Flow())
	assert.Equal(t, "ORD-20260301-ABC123", event.OrderNumber())
	assert.EqualValues(t, 2500, event.AmountCents)
	assert.Equal(t, "usd", event.Currency)
}

func TestParsePaymentIntentFailed(t *testing.T) {
	payload := mustJSON(t, map[string]any{
		"id":   "evt_pi",
		"type": "payment_intent.payment_failed",
		"data": map[string]any{"object": map[string]any{
			"id":                   "pi_9",
			"amount":               1200,
			"currency":             "usd",
			"payment_method_types": []any{"card"},
			"customer":             map[string]any{"id": "cus_9"},
			"last_payment_error":   map[string]any{"code": "card_declined", "decline_code": "insufficient_funds", "message": "Your card has insufficient funds."},
			"metadata":             map[string]any{"order_id": 77},
		}},
	})

	event, err := newAdapter("s").Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "pi_9", event.PaymentIntentID)
	assert.Equal(t, "cus_9", event.CustomerID)
	assert.Equal(t, "insufficient_funds", event.ErrorCode)
	assert.Equal(t, "Your card has insufficient funds.", event.ErrorMessage)
	assert.Equal(t, "card", event.PaymentMethodType)
	assert.Equal(t, "77", event.Meta(paymentdomain.MetaOrderID))
	assert.Equal(t, now, event.Created)
}

func TestParsePaymentIntentSucceededWithCharge(t *testing.T) {
	payload := mustJSON(t, map[string]any{
		"id":   "evt_ok",
		"type": "payment_intent.succeeded",
		"data": map[string]any{"object": map[string]any{
			"id":              "pi_2",
			"amount":          3000,
			"amount_received": 2900,
			"currency":        "usd",
			"latest_charge": map[string]any{
				"id":                     "ch_2",
				"receipt_url":            "https://pay.stripe.com/receipts/ch_2",
				"payment_method_details": map[string]any{"type": "card_present"},
			},
		}},
	})

	event, err := newAdapter("s").Parse(context.Background(), payload)
	require.NoError(t, err)
	assert.EqualValues(t, 2900, event.AmountCents)
	assert.Equal(t, "ch_2", event.ChargeID)
	assert.Equal(t, "https://pay.stripe.com/receipts/ch_2", event.ReceiptURL)
	assert.Equal(t, "card_present", event.PaymentMethodType)
}

func TestParseIgnoredAndInvalid(t *testing.T) {
	adapter := newAdapter("s")

	event, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_x","type":"invoice.created","data":{"object":{}}}`))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)
	require.NotNil(t, event)
	assert.Equal(t, "invoice.created", event.Type)

	_, err = adapter.Parse(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)

	_, err = adapter.Parse(context.Background(), []byte(`{"type":"checkout.session.completed"}`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)
}

func TestClientCreateCheckoutSession(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "idem-1", r.Header.Get("Idempotency-Key"))
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.test/cs_1","payment_intent":"pi_1","status":"open","payment_status":"unpaid","expires_at":1772358000}`))
	}))
	defer srv.Close()

	client := NewClient(config.Config{Stripe: config.StripeConfig{SecretKey: "sk_test", APIBase: srv.URL}})
	session, err := client.CreateCheckoutSession(context.Background(), paymentdomain.CheckoutRequest{
		Mode:              paymentdomain.ModePayment,
		Lines:             []paymentdomain.CheckoutLine{{PriceRef: "price_a", Quantity: 2}},
		CustomerEmail:     "jane@x.com",
		ClientReferenceID: "ORD-1",
		SuccessURL:        "https://desk.test/ok",
		CancelURL:         "https://desk.test/cancel",
		Metadata:          map[string]string{"order_id": "42", "flow": "commerce"},
		IdempotencyKey:    "idem-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", session.ID)
	assert.Equal(t, "pi_1", session.PaymentIntentID)
	require.NotNil(t, session.ExpiresAt)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "price_a", form.Get("line_items[0][price]"))
	assert.Equal(t, "2", form.Get("line_items[0][quantity]"))
	assert.Equal(t, "42", form.Get("metadata[order_id]"))
	assert.Equal(t, "commerce", form.Get("payment_intent_data[metadata][flow]"))
	assert.Equal(t, "jane@x.com", form.Get("customer_email"))
}

func TestClientSurfacesUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"No such price: 'price_x'"}}`))
	}))
	defer srv.Close()

	client := NewClient(config.Config{Stripe: config.StripeConfig{SecretKey: "sk_test", APIBase: srv.URL}})
	_, err := client.CreateCustomer(context.Background(), paymentdomain.CustomerRequest{Email: "a@x.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, paymentdomain.ErrUpstream))
	assert.Contains(t, err.Error(), "No such price")

	unconfigured := NewClient(config.Config{})
	_, err = unconfigured.CreateCustomer(context.Background(), paymentdomain.CustomerRequest{})
	assert.ErrorIs(t, err, paymentdomain.ErrNotConfigured)
}
