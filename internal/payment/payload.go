package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
)

// Payload is one gateway callback delivery. The typed fields drive the
// settlement decision; the raw wire fields are kept verbatim because the
// signature covers the exact bytes the gateway sent, not our parsed view
// of them.
type Payload struct {
	OrderID       string `validate:"required"`
	Amount        int64  `validate:"gt=0"`
	PaymentID     string `validate:"required"`
	PaymentMethod string `validate:"required,oneof=alipay wechat card"`
	Status        string `validate:"required"`
	Timestamp     int64  `validate:"required"`
	Nonce         string `validate:"required"`
	Signature     string `validate:"required,hexadecimal"`

	fields map[string]string
}

// Fields returns the raw wire fields for signature verification.
func (p *Payload) Fields() map[string]string {
	return p.fields
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseRequest reads a callback from a form-encoded or JSON request body
// and validates its shape. All shape problems come back wrapped in
// ErrValidation, aggregated so the gateway log shows every defect at once.
func ParseRequest(r *http.Request) (*Payload, error) {
	fields, err := wireFields(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return FromFields(fields)
}

// FromFields builds and validates a payload from raw wire fields.
func FromFields(fields map[string]string) (*Payload, error) {
	payload := &Payload{
		OrderID:       fields["orderId"],
		PaymentID:     fields["paymentId"],
		PaymentMethod: fields["paymentMethod"],
		Status:        fields["status"],
		Nonce:         fields["nonce"],
		Signature:     fields["signature"],
		fields:        fields,
	}

	var errs *multierror.Error
	if raw := fields["amount"]; raw != "" {
		amount, err := parseAmount(raw)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		payload.Amount = amount
	}
	if raw := fields["timestamp"]; raw != "" {
		timestamp, err := parseTimestamp(raw)
		if err != nil {
			errs = multierror.Append(errs, err)
		}
		payload.Timestamp = timestamp
	}

	if err := validate.Struct(payload); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return payload, nil
}

func wireFields(r *http.Request) (map[string]string, error) {
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if contentType == "application/json" {
		return jsonFields(r)
	}

	// Gateways of this style default to form-encoded bodies.
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("unreadable form body: %v", err)
	}
	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty callback body")
	}
	return fields, nil
}

func jsonFields(r *http.Request) (map[string]string, error) {
	decoder := json.NewDecoder(r.Body)
	// UseNumber keeps numeric values in their wire spelling, which the
	// signature depends on.
	decoder.UseNumber()

	var raw map[string]interface{}
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unreadable JSON body: %v", err)
	}

	fields := make(map[string]string, len(raw))
	for key, value := range raw {
		switch v := value.(type) {
		case string:
			fields[key] = v
		case json.Number:
			fields[key] = v.String()
		case bool:
			fields[key] = strconv.FormatBool(v)
		case nil:
			fields[key] = ""
		default:
			return nil, fmt.Errorf("field %s has unsupported type", key)
		}
	}
	return fields, nil
}

// parseAmount converts the gateway's decimal amount (major currency units,
// e.g. "9.90") into the smallest unit.
func parseAmount(raw string) (int64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("amount %q is out of range", raw)
	}
	return int64(math.Round(value * 100)), nil
}

// parseTimestamp accepts seconds since epoch as an integer, a numeric
// string, or a float spelling of either.
func parseTimestamp(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return seconds, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("timestamp %q is not numeric", raw)
	}
	return int64(value), nil
}
