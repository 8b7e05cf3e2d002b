package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "  JANE@X.COM ", want: "jane@x.com", ok: true},
		{in: "a@b", want: "a@b", ok: true},
		{in: "not-an-email", want: "not-an-email", ok: true},
		{in: "   ", want: "", ok: false},
		{in: "", want: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := Email(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "(555) 123-4567", want: "+15551234567", ok: true},
		{in: "1-555-123-4567", want: "+15551234567", ok: true},
		{in: "+44 20 7946 0958", want: "+44 20 7946 0958", ok: true},
		{in: "+1 (555) 123-4567", want: "+15551234567", ok: true},
		{in: "2079460958123", want: "+2079460958123", ok: true},
		{in: "12345", want: "+12345", ok: true},
		{in: "ext.", want: "", ok: false},
		{in: "", want: "", ok: false},
	}
	for _, tc := range cases {
		got, ok := Phone(tc.in)
		assert.Equal(t, tc.want, got, tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
	}
}

func TestPhoneDigitLengthProperties(t *testing.T) {
	for i := 0; i < 200; i++ {
		ten := fmt.Sprintf("%010d", i*48271+1000000000%9999999999)
		got, ok := Phone(ten)
		assert.True(t, ok)
		assert.Equal(t, "+1"+ten, got)

		eleven := "1" + ten
		got, ok = Phone(eleven)
		assert.True(t, ok)
		assert.Equal(t, "+"+eleven, got)

		plus := "+" + ten[:7]
		got, ok = Phone(plus)
		assert.True(t, ok)
		assert.Equal(t, plus, got)
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "Jane Doe", Text("  Jane \t Doe "))
	assert.Equal(t, "", Text("   "))
}
