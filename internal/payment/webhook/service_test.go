package webhook_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/payment/adapters/stripe"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/payment/repository"
	"github.com/smallbiznis/frontdesk/internal/payment/webhook"
	"github.com/smallbiznis/frontdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const secret = "whsec_test"

type recorder struct {
	handles bool
	err     error
	seen    []paymentdomain.Event
}

func (r *recorder) HandleEvent(ctx context.Context, event paymentdomain.Event) (bool, error) {
	r.seen = append(r.seen, event)
	return r.handles, r.err
}

type fixture struct {
	db       *gorm.DB
	svc      paymentdomain.WebhookService
	commerce *recorder
	signup   *recorder
	clock    *clock.FakeClock
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := dbtest.Open(t, &paymentdomain.EventRecord{})
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	f := fixture{db: db, commerce: &recorder{}, signup: &recorder{}, clock: clk}
	f.svc = webhook.NewService(webhook.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    dbtest.Node(t),
		Clock:    clk,
		Repo:     repository.Provide(),
		Adapter:  stripe.NewAdapter(config.Config{Stripe: config.StripeConfig{WebhookSecret: secret}}, clk),
		Commerce: f.commerce,
		Signup:   f.signup,
	})
	return f
}

func (f fixture) deliver(t *testing.T, payload string) (paymentdomain.IngestResult, error) {
	t.Helper()
	headers := http.Header{}
	headers.Set("Stripe-Signature", stripe.SignatureHeader(secret, []byte(payload), f.clock.Now()))
	return f.svc.Ingest(context.Background(), []byte(payload), headers)
}

func checkoutCompleted(id, flow string) string {
	metadata := "{}"
	if flow != "" {
		metadata = fmt.Sprintf(`{"flow":%q}`, flow)
	}
	return fmt.Sprintf(`{"id":%q,"type":"checkout.session.completed","created":1772355600,
		"data":{"object":{"id":"cs_1","payment_status":"paid","metadata":%s}}}`, id, metadata)
}

func TestIngestRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=deadbeef")

	_, err := f.svc.Ingest(context.Background(), []byte(checkoutCompleted("evt_1", "")), headers)
	require.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
	assert.Empty(t, f.commerce.seen)
	assert.EqualValues(t, 0, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM payment_events"))
}

func TestIngestRoutesByFlowTag(t *testing.T) {
	f := newFixture(t)
	f.commerce.handles = true
	f.signup.handles = true

	res, err := f.deliver(t, checkoutCompleted("evt_signup", paymentdomain.FlowSignup))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.HandlerSignup, res.Handler)
	assert.Len(t, f.signup.seen, 1)
	assert.Empty(t, f.commerce.seen)

	res, err = f.deliver(t, checkoutCompleted("evt_commerce", paymentdomain.FlowCommerce))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.HandlerCommerce, res.Handler)
	assert.Len(t, f.commerce.seen, 1)
	assert.Len(t, f.signup.seen, 1)
}

func TestIngestUntaggedFallsBackToSignup(t *testing.T) {
	f := newFixture(t)
	f.signup.handles = true

	res, err := f.deliver(t, checkoutCompleted("evt_1", ""))
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.HandlerSignup, res.Handler)
	assert.Len(t, f.commerce.seen, 1)
	assert.Len(t, f.signup.seen, 1)

	expired := `{"id":"evt_2","type":"checkout.session.expired","data":{"object":{"id":"cs_2"}}}`
	res, err = f.deliver(t, expired)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.HandlerNone, res.Handler)
	assert.Len(t, f.signup.seen, 1)
}

func TestIngestReplayIsAcknowledged(t *testing.T) {
	f := newFixture(t)
	f.commerce.handles = true
	payload := checkoutCompleted("evt_1", paymentdomain.FlowCommerce)

	_, err := f.deliver(t, payload)
	require.NoError(t, err)

	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.True(t, res.Replay)
	assert.Equal(t, paymentdomain.HandlerCommerce, res.Handler)
	assert.Len(t, f.commerce.seen, 1)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM payment_events"))
}

func TestIngestRetriesAfterHandlerError(t *testing.T) {
	f := newFixture(t)
	f.commerce.err = errors.New("db unavailable")
	payload := checkoutCompleted("evt_1", paymentdomain.FlowCommerce)

	_, err := f.deliver(t, payload)
	require.Error(t, err)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM payment_events WHERE processed_at IS NULL"))

	f.commerce.err = nil
	f.commerce.handles = true
	res, err := f.deliver(t, payload)
	require.NoError(t, err)
	assert.False(t, res.Replay)
	assert.Equal(t, paymentdomain.HandlerCommerce, res.Handler)
	assert.Len(t, f.commerce.seen, 2)
}

func TestIngestAcknowledgesUnknownTypes(t *testing.T) {
	f := newFixture(t)
	res, err := f.deliver(t, `{"id":"evt_9","type":"customer.created","data":{"object":{"id":"cus_1"}}}`)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.HandlerIgnored, res.Handler)
	assert.Empty(t, f.commerce.seen)
	assert.Empty(t, f.signup.seen)
}
