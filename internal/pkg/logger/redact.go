package logger

import (
	"regexp"
	"strings"
)

// RedactAddress masks a contact address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactAddress(address string) string {
	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

var addressRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	// Fields that are addresses by name
	if strings.Contains(key, "address") || strings.Contains(key, "email") ||
		strings.Contains(key, "recipient") || strings.Contains(key, "contact") {
		return RedactAddress(val)
	}
	// Addresses embedded in generic fields
	return addressRegex.ReplaceAllStringFunc(val, RedactAddress)
}
