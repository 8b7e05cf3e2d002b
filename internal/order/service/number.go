package service

import (
	"crypto/rand"
	"encoding/base32"
	"time"

	"github.com/smallbiznis/frontdesk/internal/order/domain"
)

const numberSuffixLen = 6

var numberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newOrderNumber returns ORD-YYYYMMDD-XXXXXX with a random base32 suffix.
func newOrderNumber(now time.Time) (string, error) {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	suffix := numberEncoding.EncodeToString(buf)[:numberSuffixLen]
	return domain.NumberPrefix + now.UTC().Format("20060102") + "-" + suffix, nil
}
