package payment

import (
	"strings"
	"testing"
)

func sampleFields() map[string]string {
	return map[string]string{
		"orderId":       "ord_123",
		"amount":        "9.90",
		"paymentId":     "pay_abc",
		"paymentMethod": "alipay",
		"status":        "success",
		"timestamp":     "1756700000",
		"nonce":         "7c9e6679-7425-40de-944b-e07fc1f90ae7",
	}
}

func TestSign_Deterministic(t *testing.T) {
	fields := sampleFields()

	first := Sign(fields, "secret")
	second := Sign(fields, "secret")

	if first != second {
		t.Errorf("Sign is not deterministic: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(first))
	}
}

func TestSign_IgnoresSignatureField(t *testing.T) {
	fields := sampleFields()
	unsigned := Sign(fields, "secret")

	fields["signature"] = "deadbeef"
	signed := Sign(fields, "secret")

	if unsigned != signed {
		t.Error("Sign must exclude the signature field from the MAC input")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fields map[string]string)
		want   bool
	}{
		{
			name:   "valid signature",
			mutate: func(fields map[string]string) {},
			want:   true,
		},
		{
			name: "uppercase hex accepted",
			mutate: func(fields map[string]string) {
				fields["signature"] = strings.ToUpper(fields["signature"])
			},
			want: true,
		},
		{
			name: "amount tampered",
			mutate: func(fields map[string]string) {
				fields["amount"] = "0.01"
			},
			want: false,
		},
		{
			name: "order swapped",
			mutate: func(fields map[string]string) {
				fields["orderId"] = "ord_other"
			},
			want: false,
		},
		{
			name: "field added after signing",
			mutate: func(fields map[string]string) {
				fields["extra"] = "1"
			},
			want: false,
		},
		{
			name: "field removed after signing",
			mutate: func(fields map[string]string) {
				delete(fields, "nonce")
			},
			want: false,
		},
		{
			name: "missing signature",
			mutate: func(fields map[string]string) {
				delete(fields, "signature")
			},
			want: false,
		},
		{
			name: "empty signature",
			mutate: func(fields map[string]string) {
				fields["signature"] = ""
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := sampleFields()
			fields["signature"] = Sign(fields, "secret")
			tt.mutate(fields)

			if got := Verify(fields, "secret"); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	fields := sampleFields()
	fields["signature"] = Sign(fields, "secret")

	if Verify(fields, "other-secret") {
		t.Error("Verify must fail under a different secret")
	}
}
