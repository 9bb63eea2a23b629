package logger

import "testing"

func TestRedactAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-address", "***@***"},
		{"two@ats@example.com", "***@***"},
	}
	for _, tt := range tests {
		if got := RedactAddress(tt.in); got != tt.want {
			t.Errorf("RedactAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactValueByKey(t *testing.T) {
	if got := redactValue("contact_address", "jane.roe@example.com"); got != "ja***@example.com" {
		t.Errorf("address key not redacted: %q", got)
	}
	if got := redactValue("reason", "already_replied"); got != "already_replied" {
		t.Errorf("non-address value changed: %q", got)
	}
	// Embedded address in a free-form field still gets masked.
	if got := redactValue("error", "refused jane.roe@example.com"); got != "refused ja***@example.com" {
		t.Errorf("embedded address not redacted: %q", got)
	}
}
