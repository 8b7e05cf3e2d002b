package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BASE_URL", "http://gym.test/")
	t.Setenv("COMMERCE_ENABLED", "yes")
	t.Setenv("ENABLE_INIT_PIN", "1")
	t.Setenv("CHECKIN_DUP_WINDOW_MINUTES", "7")
	t.Setenv("COMMERCE_CANCEL_URL", "")
	t.Setenv("SIGNUP_SUCCESS_URL", "")
	t.Setenv("STRIPE_SECRET_KEY", "")
	t.Setenv("REDIS_ADDR", "")

	cfg := Load()

	assert.Equal(t, "http://gym.test", cfg.BaseURL)
	assert.True(t, cfg.Commerce.Enabled)
	assert.True(t, cfg.Staff.EnableInitPIN)
	assert.Equal(t, 7*time.Minute, cfg.Checkin.DupWindow)
	assert.Equal(t, "http://gym.test/orders/cancel", cfg.Commerce.CancelURL)
	assert.Contains(t, cfg.Signup.SuccessURL, "{CHECKOUT_SESSION_ID}")
	assert.False(t, cfg.Stripe.Configured())
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("KIOSK_BURST", "lots")
	t.Setenv("SMTP_PORT", "")

	cfg := Load()
	assert.Equal(t, 10, cfg.Redis.KioskBurst)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestCheckinSettingsFromEnvDefaults(t *testing.T) {
	cfg := Config{Checkin: CheckinConfig{
		DupWindow:       5 * time.Minute,
		DefaultDeviceID: "kiosk-9",
		SettingsPath:    t.TempDir(),
	}}

	holder, err := NewCheckinSettingsHolder(cfg, zap.NewNop())
	require.NoError(t, err)
	got := holder.Get()
	assert.Equal(t, 5, got.DupWindowMinutes)
	assert.Equal(t, "kiosk-9", got.DefaultDeviceID)
	assert.Equal(t, 5*time.Minute, got.DupWindow())
}

func TestCheckinSettingsFromFile(t *testing.T) {
	dir := t.TempDir()
	body := "checkin:\n  dupWindowMinutes: 2\n  defaultDeviceId: front-door\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkin.yml"), []byte(body), 0o600))

	holder, err := NewCheckinSettingsHolder(Config{Checkin: CheckinConfig{
		DupWindow:       5 * time.Minute,
		DefaultDeviceID: "kiosk-1",
		SettingsPath:    dir,
	}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 2, holder.Get().DupWindowMinutes)
	assert.Equal(t, "front-door", holder.Get().DefaultDeviceID)
}

func TestCheckinSettingsRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	body := "checkin:\n  dupWindowMinutes: -1\n  defaultDeviceId: kiosk-1\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "checkin.yml"), []byte(body), 0o600))

	_, err := NewCheckinSettingsHolder(Config{Checkin: CheckinConfig{
		DefaultDeviceID: "kiosk-1",
		SettingsPath:    dir,
	}}, zap.NewNop())
	assert.Error(t, err)
}
