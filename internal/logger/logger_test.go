package logger

import "testing"

func TestSanitizeFields(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]interface{}
		key      string
		expected interface{}
	}{
		{
			name:     "signature is stubbed",
			fields:   map[string]interface{}{"signature": "deadbeefcafe1234"},
			key:      "signature",
			expected: "dea...234",
		},
		{
			name:     "short secret is fully redacted",
			fields:   map[string]interface{}{"secret": "abc"},
			key:      "secret",
			expected: "[REDACTED]",
		},
		{
			name:     "nonce is stubbed",
			fields:   map[string]interface{}{"nonce": "nonce-123456789"},
			key:      "nonce",
			expected: "non...789",
		},
		{
			name:     "non-string sensitive value is redacted",
			fields:   map[string]interface{}{"api_token": 12345},
			key:      "api_token",
			expected: "[REDACTED]",
		},
		{
			name:     "plain field passes through",
			fields:   map[string]interface{}{"order_id": "ord_1"},
			key:      "order_id",
			expected: "ord_1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeFields(tt.fields)
			if got[tt.key] != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.key, got[tt.key])
			}
		})
	}
}

func TestSanitizeFields_Nil(t *testing.T) {
	if got := sanitizeFields(nil); got != nil {
		t.Errorf("Expected nil for nil fields, got %v", got)
	}
}

func TestLogLevel_String(t *testing.T) {
	if DEBUG.String() != "DEBUG" || ERROR.String() != "ERROR" {
		t.Error("Level strings do not match level names")
	}
	if LogLevel(42).String() != "UNKNOWN" {
		t.Error("Unexpected string for invalid level")
	}
}
