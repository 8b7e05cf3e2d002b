package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMTPSendTemplateRendersCredential(t *testing.T) {
	var gotAddr string
	var gotTo []string
	var gotMsg string

	p := NewSMTP(Config{Host: "smtp.test", Port: 587, Username: "u", Password: "p", From: "desk@gym.test"})
	p.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"jane@x.com"}, TemplateMemberCredential, CredentialData{
		GymName:    "Atlas Gym",
		MemberName: "Jane",
		Link:       "http://localhost/member/qr?token=abc",
		Token:      "abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "smtp.test:587", gotAddr)
	assert.Equal(t, []string{"jane@x.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your Atlas Gym Check-In Code")
	assert.Contains(t, gotMsg, "token=abc")
	assert.Contains(t, gotMsg, "Hi Jane,")
}

func TestSMTPRejectsMissingRecipient(t *testing.T) {
	p := NewSMTP(Config{Host: "smtp.test", Port: 587})
	assert.Error(t, p.Send(context.Background(), nil, "s", "b"))
}

func TestLogProviderValidatesTemplate(t *testing.T) {
	p := NewLogProvider(zap.NewNop())
	err := p.SendTemplate(context.Background(), []string{"a@x"}, TemplateOrderPaid, OrderPaidData{GymName: "Atlas Gym", OrderNumber: "ORD-1"})
	assert.NoError(t, err)
	assert.Error(t, p.SendTemplate(context.Background(), []string{"a@x"}, "missing", OrderPaidData{}))
}
