package domain

import "strings"

func normalizeStatusText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// StringPtr returns nil for blank values.
func StringPtr(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Deref returns the pointed-to string or "".
func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
