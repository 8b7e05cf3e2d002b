package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("2468"))
	assert.Equal(t, "sk_test_****abcd", MaskSecret("sk_test_123456abcd"))
}

func TestMaskSensitiveOnlyTouchesCredentialKeys(t *testing.T) {
	got := MaskSensitive(map[string]any{
		"name":      "Front Desk",
		"pin":       "123456",
		"qr_token":  "ABCDEFGHJK",
		"  ":        "dropped",
		"rows":      3,
		"nested":    map[string]any{"secret": "whsec_abcdef123", "role": "admin"},
		"passwords": []any{"one-two-three"},
	})

	assert.Equal(t, "Front Desk", got["name"])
	assert.Equal(t, "****3456", got["pin"])
	assert.Equal(t, "****GHJK", got["qr_token"])
	assert.Equal(t, 3, got["rows"])
	assert.NotContains(t, got, "  ")
	nested := got["nested"].(map[string]any)
	assert.Equal(t, "whsec_****f123", nested["secret"])
	assert.Equal(t, "admin", nested["role"])
	assert.Equal(t, []any{"****hree"}, got["passwords"])
}

func TestMaskSensitiveEmpty(t *testing.T) {
	assert.Nil(t, MaskSensitive(nil))
	assert.Nil(t, MaskSensitive(map[string]any{" ": "x"}))
}
