package handlers_test

import (
	"context"
	"testing"
	"time"

	"gramload.app/cloud/handlers"
	"gramload.app/cloud/internal/testutil"
	"gramload.app/cloud/models"
)

func downloadRequest() *handlers.DownloadRequest {
	return &handlers.DownloadRequest{
		ContentID: "reel_123",
		Variants:  testutil.TestVariants(),
	}
}

func TestAuthorizeDownload_Anonymous(t *testing.T) {
	server := testutil.NewTestServer(testutil.TestStorage(), 2, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, "", "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Expected first anonymous download to be allowed: %+v", resp)
	}
	if resp.AppliedTier != models.QualitySD {
		t.Errorf("Expected sd tier for anonymous, got %s", resp.AppliedTier)
	}
	if resp.Remaining == nil || *resp.Remaining != 1 {
		t.Errorf("Expected 1 remaining, got %v", resp.Remaining)
	}
	if len(resp.Variants) != 1 || resp.Variants[0].Width != 360 {
		t.Errorf("Expected only the lowest variant, got %+v", resp.Variants)
	}
	if resp.ResetAt == nil {
		t.Error("Expected a reset time")
	}
}

func TestAuthorizeDownload_AnonymousLimitReached(t *testing.T) {
	server := testutil.NewTestServer(testutil.TestStorage(), 2, time.Hour)

	for i := 0; i < 2; i++ {
		w := testutil.MakeAuthorizeRequest(t, server, "", "198.51.100.7", downloadRequest())
		if resp := testutil.DecodeDownloadResponse(t, w); !resp.Allowed {
			t.Fatalf("Download %d should be allowed", i+1)
		}
	}

	w := testutil.MakeAuthorizeRequest(t, server, "", "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if resp.Allowed {
		t.Fatal("Expected third download to be denied")
	}
	if resp.ResetAt == nil {
		t.Error("Denial must carry the reset time")
	}
	if len(resp.Variants) != 0 {
		t.Errorf("Denial must not carry content, got %+v", resp.Variants)
	}

	// A different address has its own budget.
	w = testutil.MakeAuthorizeRequest(t, server, "", "203.0.113.9", downloadRequest())
	if resp := testutil.DecodeDownloadResponse(t, w); !resp.Allowed {
		t.Error("Different address should not share the exhausted budget")
	}
}

func TestAuthorizeDownload_PremiumAccount(t *testing.T) {
	db := testutil.TestStorage()
	account := testutil.CreateTestAccount("prem", models.TierPremium, 0)
	if err := db.SaveAccount(context.Background(), &account); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}
	server := testutil.NewTestServer(db, 2, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, account.APIToken, "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Expected premium download to be allowed: %+v", resp)
	}
	if resp.AppliedTier != models.QualityOriginal {
		t.Errorf("Expected original tier, got %s", resp.AppliedTier)
	}
	if len(resp.Variants) != 3 {
		t.Errorf("Premium keeps all variants, got %d", len(resp.Variants))
	}
	if resp.UpdatedQuota != nil {
		t.Errorf("Premium must not spend quota, got %v", resp.UpdatedQuota)
	}
	if resp.Remaining != nil {
		t.Errorf("Premium is not window limited, got %v", resp.Remaining)
	}
}

func TestAuthorizeDownload_StandardAccountSpendsQuota(t *testing.T) {
	db := testutil.TestStorage()
	account := testutil.CreateTestAccount("std", models.TierStandard, 2)
	if err := db.SaveAccount(context.Background(), &account); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}
	server := testutil.NewTestServer(db, 2, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, account.APIToken, "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Expected download to be allowed: %+v", resp)
	}
	if resp.AppliedTier != models.QualityHD {
		t.Errorf("Expected hd tier, got %s", resp.AppliedTier)
	}
	if len(resp.Variants) != 2 {
		t.Errorf("HD drops only the top variant, got %d", len(resp.Variants))
	}
	if resp.UpdatedQuota == nil || *resp.UpdatedQuota != 1 {
		t.Errorf("Expected updated quota 1, got %v", resp.UpdatedQuota)
	}

	stored, _ := db.GetAccount(context.Background(), account.ID)
	if stored.RemainingQuota != 1 {
		t.Errorf("Expected stored quota 1, got %d", stored.RemainingQuota)
	}
}

func TestAuthorizeDownload_QuotaExhausted(t *testing.T) {
	db := testutil.TestStorage()
	account := testutil.CreateTestAccount("std", models.TierStandard, 0)
	if err := db.SaveAccount(context.Background(), &account); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}
	server := testutil.NewTestServer(db, 2, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, account.APIToken, "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if resp.Allowed {
		t.Fatal("Expected denial for exhausted quota")
	}
	if resp.AppliedTier != models.QualitySD {
		t.Errorf("Denial advertises sd, got %s", resp.AppliedTier)
	}
	if resp.ResetAt != nil {
		t.Errorf("Quota exhaustion has no window reset, got %v", resp.ResetAt)
	}
}

func TestAuthorizeDownload_ExpiredAccountIsWindowLimited(t *testing.T) {
	db := testutil.TestStorage()
	account := testutil.CreateTestAccount("lapsed", models.TierStandard, 100)
	expired := time.Now().AddDate(0, 0, -1)
	account.TierExpiry = &expired
	if err := db.SaveAccount(context.Background(), &account); err != nil {
		t.Fatalf("Failed to save account: %v", err)
	}
	server := testutil.NewTestServer(db, 1, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, account.APIToken, "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)
	if !resp.Allowed || resp.AppliedTier != models.QualitySD {
		t.Fatalf("Lapsed account should get one sd download: %+v", resp)
	}

	stored, _ := db.GetAccount(context.Background(), account.ID)
	if stored.RemainingQuota != 100 {
		t.Errorf("Lapsed account must not spend paid quota, got %d", stored.RemainingQuota)
	}

	// The budget follows the account, not the address.
	w = testutil.MakeAuthorizeRequest(t, server, account.APIToken, "203.0.113.9", downloadRequest())
	resp = testutil.DecodeDownloadResponse(t, w)
	if resp.Allowed {
		t.Error("Switching address must not reset the account budget")
	}
}

func TestAuthorizeDownload_UnknownTokenIsAnonymous(t *testing.T) {
	server := testutil.NewTestServer(testutil.TestStorage(), 1, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, "tok_ghost", "198.51.100.7", downloadRequest())
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Unknown token should fall back to the anonymous budget: %+v", resp)
	}
	if resp.AppliedTier != models.QualitySD {
		t.Errorf("Expected sd tier, got %s", resp.AppliedTier)
	}
}

func TestAuthorizeDownload_CompositePost(t *testing.T) {
	server := testutil.NewTestServer(testutil.TestStorage(), 5, time.Hour)

	req := &handlers.DownloadRequest{
		ContentID: "post_456",
		Items: []models.Item{
			{ID: "slide1", Variants: testutil.TestVariants()},
			{ID: "slide2", Variants: testutil.TestVariants()[:2]},
		},
	}

	w := testutil.MakeAuthorizeRequest(t, server, "", "198.51.100.7", req)
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Expected download to be allowed: %+v", resp)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(resp.Items))
	}
	for _, item := range resp.Items {
		if len(item.Variants) != 1 {
			t.Errorf("Item %s should keep one variant at sd, got %d", item.ID, len(item.Variants))
		}
	}
}

func TestAuthorizeDownload_EmptyBody(t *testing.T) {
	server := testutil.NewTestServer(testutil.TestStorage(), 5, time.Hour)

	w := testutil.MakeAuthorizeRequest(t, server, "", "198.51.100.7", nil)
	resp := testutil.DecodeDownloadResponse(t, w)

	if !resp.Allowed {
		t.Fatalf("Authorization without content should still work: %+v", resp)
	}
	if len(resp.Variants) != 0 {
		t.Errorf("Expected no variants, got %+v", resp.Variants)
	}
}
