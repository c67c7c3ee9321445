package http

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSanitizeBodyRedactsSensitiveJSONKeys(t *testing.T) {
	body := []byte(`{"username":"alice","password":"freshmilk1","otp":"123456","reset_token":"abc.def.ghi"}`)

	sanitized := sanitizeBody(body, "application/json")
	result, ok := sanitized.(map[string]interface{})
	if !ok {
		t.Fatalf("expected a map, got %T", sanitized)
	}
	if result["username"] != "alice" {
		t.Fatalf("expected username to pass through, got %v", result["username"])
	}
	for _, key := range []string{"password", "otp", "reset_token"} {
		if result[key] != "redacted" {
			t.Fatalf("expected %s to be redacted, got %v", key, result[key])
		}
	}
}

func TestSanitizeBodyRedactsNestedValues(t *testing.T) {
	body := []byte(`{"user":{"phone":"555-0100"},"session":{"token":"deadbeef"}}`)

	sanitized := sanitizeBody(body, "application/json")
	buf, err := json.Marshal(sanitized)
	if err != nil {
		t.Fatalf("marshal sanitized body: %v", err)
	}
	if strings.Contains(string(buf), "deadbeef") {
		t.Fatalf("expected token value to be scrubbed, got %s", buf)
	}
	if !strings.Contains(string(buf), "555-0100") {
		t.Fatalf("expected phone to survive, got %s", buf)
	}
}

func TestSanitizeBodyBinary(t *testing.T) {
	if got := sanitizeBody([]byte{0xff, 0xd8, 0xff, 0x00}, "image/jpeg"); got != "binary" {
		t.Fatalf("expected binary marker, got %v", got)
	}
}
