package signup_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/config"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	memberrepo "github.com/smallbiznis/frontdesk/internal/member/repository"
	memberservice "github.com/smallbiznis/frontdesk/internal/member/service"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"github.com/smallbiznis/frontdesk/internal/signup"
	"github.com/smallbiznis/frontdesk/internal/signup/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeProcessor struct {
	fail      error
	customers []paymentdomain.CustomerRequest
	sessions  []paymentdomain.CheckoutRequest
}

func (f *fakeProcessor) Configured() bool { return true }

func (f *fakeProcessor) CreateCustomer(ctx context.Context, req paymentdomain.CustomerRequest) (paymentdomain.Customer, error) {
	f.customers = append(f.customers, req)
	if f.fail != nil {
		return paymentdomain.Customer{}, f.fail
	}
	return paymentdomain.Customer{ID: "cus_1", Email: req.Email, Name: req.Name}, nil
}

func (f *fakeProcessor) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutSession, error) {
	f.sessions = append(f.sessions, req)
	return paymentdomain.CheckoutSession{ID: "cs_signup", URL: "https://checkout.example/cs_signup"}, nil
}

func (f *fakeProcessor) RetrieveCheckoutSession(ctx context.Context, id string) (paymentdomain.CheckoutSession, error) {
	return paymentdomain.CheckoutSession{ID: id}, nil
}

type fakeMailer struct {
	sent int
}

func (f *fakeMailer) Send(ctx context.Context, to []string, subject, body string) error { return nil }

func (f *fakeMailer) SendTemplate(ctx context.Context, to []string, name string, data email.Subjecter) error {
	f.sent++
	return nil
}

type fixture struct {
	db        *gorm.DB
	svc       domain.Service
	members   memberdomain.Service
	processor *fakeProcessor
	mailer    *fakeMailer
}

func newFixture(t *testing.T, enabled bool) fixture {
	t.Helper()
	db := dbtest.Open(t, &memberdomain.Member{})
	cfg := config.Config{
		BaseURL: "https://gym.example",
		Signup: config.SignupConfig{
			Enabled:        enabled,
			PriceID:        "price_monthly",
			MembershipTier: "Monthly",
			SuccessURL:     "https://gym.example/signup/success",
			CancelURL:      "https://gym.example/signup/cancel",
		},
	}
	mailer := &fakeMailer{}
	members := memberservice.New(memberservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: dbtest.Node(t),
		Repo:  memberrepo.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Cfg:   cfg,
		Email: mailer,
	})
	processor := &fakeProcessor{}
	svc := signup.NewService(signup.Params{
		Log:         zap.NewNop(),
		Cfg:         cfg,
		Processor:   processor,
		Provisioner: signup.NewMemberProvisioner(db, zap.NewNop(), members, cfg),
	})
	return fixture{db: db, svc: svc, members: members, processor: processor, mailer: mailer}
}

func TestStartCheckout(t *testing.T) {
	f := newFixture(t, true)

	out, err := f.svc.StartCheckout(context.Background(), domain.Request{
		Name:  "  Jane   Doe ",
		Email: "JANE@X.COM",
		Phone: "(555) 123-4567",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_signup", out.URL)
	assert.Equal(t, "cus_1", out.CustomerID)

	require.Len(t, f.processor.customers, 1)
	assert.Equal(t, "jane@x.com", f.processor.customers[0].Email)
	require.Len(t, f.processor.sessions, 1)
	req := f.processor.sessions[0]
	assert.Equal(t, paymentdomain.ModeSubscription, req.Mode)
	assert.Equal(t, "cus_1", req.CustomerID)
	assert.Equal(t, "price_monthly", req.Lines[0].PriceRef)
	assert.Equal(t, paymentdomain.FlowSignup, req.Metadata[paymentdomain.MetaFlow])
	assert.Equal(t, "Jane Doe", req.Metadata["name"])
}

func TestStartCheckoutGuards(t *testing.T) {
	_, err := newFixture(t, false).svc.StartCheckout(context.Background(), domain.Request{Name: "A", Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrDisabled)

	f := newFixture(t, true)
	_, err = f.svc.StartCheckout(context.Background(), domain.Request{Name: "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	f.processor.fail = errors.New("boom")
	_, err = f.svc.StartCheckout(context.Background(), domain.Request{Name: "A", Email: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Empty(t, f.processor.sessions)
}

func completedSignup() paymentdomain.Event {
	return paymentdomain.Event{
		ID:                "evt_signup",
		Type:              paymentdomain.EventCheckoutCompleted,
		Metadata:          map[string]string{paymentdomain.MetaFlow: paymentdomain.FlowSignup, "name": "Jane Doe"},
		CheckoutSessionID: "cs_signup",
		CustomerID:        "cus_1",
		CustomerEmail:     "Jane@X.com",
		PaymentStatus:     paymentdomain.PaymentStatusPaid,
	}
}

func TestHandleCheckoutCompletedProvisionsMember(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	handled, err := f.svc.HandleCheckoutCompleted(ctx, completedSignup())
	require.NoError(t, err)
	assert.True(t, handled)

	m, err := f.members.FindByProcessorCustomerID(ctx, "cus_1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "Jane Doe", m.Name)
	assert.Equal(t, "jane@x.com", memberdomain.Deref(m.EmailLower))
	assert.Equal(t, "Monthly", memberdomain.Deref(m.MembershipTier))
	assert.NotEmpty(t, memberdomain.Deref(m.QRToken))
	assert.Equal(t, 1, f.mailer.sent)

	replay := completedSignup()
	replay.CustomerEmail = ""
	replay.Metadata = map[string]string{paymentdomain.MetaFlow: paymentdomain.FlowSignup}
	handled, err = f.svc.HandleCheckoutCompleted(ctx, replay)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.EqualValues(t, 1, dbtest.Count(t, f.db, "SELECT COUNT(*) FROM members"))

	again, err := f.members.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, memberdomain.Deref(m.QRToken), memberdomain.Deref(again.QRToken))
}

func TestHandleCheckoutCompletedWithoutIdentity(t *testing.T) {
	f := newFixture(t, true)
	handled, err := f.svc.HandleCheckoutCompleted(context.Background(), paymentdomain.Event{
		Type:       paymentdomain.EventCheckoutCompleted,
		CustomerID: "cus_unknown",
	})
	require.NoError(t, err)
	assert.False(t, handled)

	handled, err = f.svc.HandleCheckoutCompleted(context.Background(), paymentdomain.Event{Type: paymentdomain.EventCheckoutExpired})
	require.NoError(t, err)
	assert.False(t, handled)
}
