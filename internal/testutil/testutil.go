package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"gramload.app/cloud/handlers"
	"gramload.app/cloud/internal/payment"
	"gramload.app/cloud/internal/quality"
	"gramload.app/cloud/internal/ratelimit"
	"gramload.app/cloud/models"
	"gramload.app/cloud/storage"
)

const GatewaySecret = "test-gateway-secret"

// TestStorage creates an empty in-memory storage.
func TestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// NewTestServer wires a server with in-memory backends and the default
// plan catalog.
func NewTestServer(db storage.Storage, freeLimit int, window time.Duration) *handlers.Server {
	limiter := ratelimit.NewMemory(freeLimit, window)
	settler := payment.NewProcessor(db, payment.NewMemoryNonceStore(), models.DefaultCatalog(), GatewaySecret, 5*time.Minute)
	return handlers.NewHTTPServer(db, limiter, quality.New(nil), settler)
}

// CreateTestAccount creates an account with the given tier. Paid tiers get
// a 30 day expiry.
func CreateTestAccount(id string, tier models.Tier, quota int64) models.Account {
	account := models.Account{
		ID:             id,
		Email:          id + "@example.com",
		APIToken:       "tok_" + id,
		Tier:           tier,
		RemainingQuota: quota,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if tier.Paid() {
		expiry := time.Now().AddDate(0, 0, 30)
		account.TierExpiry = &expiry
	}
	return account
}

// CreateTestOrder creates a pending order against the standard monthly
// plan unless another plan is given.
func CreateTestOrder(id, accountID, planID string) models.Order {
	if planID == "" {
		planID = "plan_standard_monthly"
	}
	plan := models.DefaultCatalog()[planID]
	return models.Order{
		ID:        id,
		AccountID: accountID,
		PlanID:    planID,
		Amount:    plan.Amount,
		Currency:  plan.Currency,
		Status:    models.OrderPending,
		Metadata:  map[string]string{"source": "test"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// CallbackFields builds a valid signed callback for the order, then
// applies the overrides. Overriding any field except "signature"
// invalidates the signature on purpose.
func CallbackFields(order models.Order, overrides map[string]string) map[string]string {
	fields := map[string]string{
		"orderId":       order.ID,
		"amount":        fmt.Sprintf("%.2f", float64(order.Amount)/100),
		"paymentId":     "pay_" + uuid.Must(uuid.NewRandom()).String()[:8],
		"paymentMethod": "alipay",
		"status":        "success",
		"timestamp":     strconv.FormatInt(time.Now().Unix(), 10),
		"nonce":         uuid.Must(uuid.NewRandom()).String(),
	}
	sign := true
	for key, value := range overrides {
		fields[key] = value
		if key == "signature" {
			sign = false
		}
	}
	if sign {
		fields["signature"] = payment.Sign(fields, GatewaySecret)
	}
	return fields
}

// MakeCallbackRequest posts the fields form-encoded to the callback
// endpoint.
func MakeCallbackRequest(t *testing.T, server *handlers.Server, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	for key, value := range fields {
		form.Set(key, value)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

// MakeAuthorizeRequest posts a download authorization request. An empty
// token means anonymous; remoteAddr feeds the X-Forwarded-For header.
func MakeAuthorizeRequest(t *testing.T, server *handlers.Server, token, remoteAddr string, body *handlers.DownloadRequest) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode request: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/downloads/authorize", &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if remoteAddr != "" {
		req.Header.Set("X-Forwarded-For", remoteAddr)
	}

	w := httptest.NewRecorder()
	server.Router.ServeHTTP(w, req)
	return w
}

// DecodeDownloadResponse decodes and sanity-checks an authorization
// response.
func DecodeDownloadResponse(t *testing.T, w *httptest.ResponseRecorder) handlers.DownloadResponse {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp handlers.DownloadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

// TestVariants is the canonical three-resolution variant list used across
// quality filtering tests.
func TestVariants() []models.Variant {
	return []models.Variant{
		{Width: 1080, Height: 1920, Src: "https://cdn.example.com/v/1080.mp4", Label: "1080p"},
		{Width: 720, Height: 1280, Src: "https://cdn.example.com/v/720.mp4", Label: "720p"},
		{Width: 360, Height: 640, Src: "https://cdn.example.com/v/360.mp4", Label: "360p"},
	}
}
