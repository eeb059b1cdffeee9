package handlers

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"gramload.app/cloud/internal/entitlement"
	"gramload.app/cloud/internal/logger"
	"gramload.app/cloud/internal/metrics"
	"gramload.app/cloud/models"
)

type DownloadRequest struct {
	ContentID string           `json:"content_id"`
	Variants  []models.Variant `json:"variants,omitempty"`
	Items     []models.Item    `json:"items,omitempty"`
}

type DownloadResponse struct {
	Allowed      bool               `json:"allowed"`
	Remaining    *int               `json:"remaining,omitempty"`
	ResetAt      *time.Time         `json:"reset_at,omitempty"`
	AppliedTier  models.QualityTier `json:"applied_tier"`
	UpdatedQuota *int64             `json:"updated_quota,omitempty"`
	Variants     []models.Variant   `json:"variants,omitempty"`
	Items        []models.Item      `json:"items,omitempty"`
	Message      string             `json:"message"`
}

// forwardedHeaders are consulted in order; the first header present wins,
// and within a comma-separated list the first value wins.
var forwardedHeaders = []string{"X-Forwarded-For", "X-Real-IP", "CF-Connecting-IP"}

func (s *Server) AuthorizeDownload(w http.ResponseWriter, r *http.Request) {
	var req DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account := s.resolveAccount(r)
	if account == nil {
		s.authorizeLimited(w, r, &req, "ip:"+clientAddress(r))
		return
	}

	result := entitlement.Evaluate(account, time.Now())
	if !result.HasPermission {
		if result.Status.TierKind == entitlement.KindActive {
			// Active subscription, quota exhausted.
			metrics.DownloadsDenied.WithLabelValues("quota_exhausted").Inc()
			writeJSON(w, http.StatusOK, DownloadResponse{
				AppliedTier: models.QualitySD,
				Message:     "Download quota exhausted",
			})
			return
		}
		// Free or lapsed accounts are bounded like anonymous callers,
		// keyed by account so a login does not reset the budget per IP.
		s.authorizeLimited(w, r, &req, "account:"+account.ID)
		return
	}

	tier := account.Tier.Quality()
	resp := DownloadResponse{
		Allowed:     true,
		AppliedTier: tier,
		Message:     "Download authorized",
	}

	if !account.Tier.UnlimitedQuota() {
		remaining, debited, err := s.Storage.DebitQuota(r.Context(), account.ID)
		if err != nil {
			logger.Error("Quota debit failed", map[string]interface{}{
				"error":      err.Error(),
				"account_id": account.ID,
			})
			writeErrorResponse(w, http.StatusInternalServerError, "Temporary failure")
			return
		}
		if !debited {
			// Lost a race against a concurrent download; the conditional
			// decrement already clamped at zero.
			metrics.DownloadsDenied.WithLabelValues("quota_exhausted").Inc()
			writeJSON(w, http.StatusOK, DownloadResponse{
				AppliedTier: models.QualitySD,
				Message:     "Download quota exhausted",
			})
			return
		}
		resp.UpdatedQuota = &remaining
	}

	s.attachContent(&resp, &req, tier)
	metrics.DownloadsAllowed.WithLabelValues(string(tier)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

// authorizeLimited gates a request through the per-identity rolling window
// at reduced quality. A denial is a normal decision carrying the reset
// time, not an error.
func (s *Server) authorizeLimited(w http.ResponseWriter, r *http.Request, req *DownloadRequest, identity string) {
	decision, err := s.Limiter.TryConsume(r.Context(), identity)
	if err != nil {
		logger.Error("Rate limiter unavailable", map[string]interface{}{
			"error":    err.Error(),
			"identity": identity,
		})
		writeErrorResponse(w, http.StatusServiceUnavailable, "Temporary failure")
		return
	}

	if !decision.Allowed {
		metrics.DownloadsDenied.WithLabelValues("rate_limited").Inc()
		resp := DownloadResponse{
			AppliedTier: models.QualitySD,
			Message:     "Free download limit reached",
		}
		if !decision.ResetAt.IsZero() {
			resetAt := decision.ResetAt
			resp.ResetAt = &resetAt
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	remaining := decision.Remaining
	resp := DownloadResponse{
		Allowed:     true,
		Remaining:   &remaining,
		AppliedTier: models.QualitySD,
		Message:     "Download authorized",
	}
	if !decision.ResetAt.IsZero() {
		resetAt := decision.ResetAt
		resp.ResetAt = &resetAt
	}
	s.attachContent(&resp, req, models.QualitySD)
	metrics.DownloadsAllowed.WithLabelValues(string(models.QualitySD)).Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) attachContent(resp *DownloadResponse, req *DownloadRequest, tier models.QualityTier) {
	resp.Variants = s.Quality.Apply(req.Variants, tier)
	resp.Items = s.Quality.ApplyItems(req.Items, tier)
}

// resolveAccount looks up the account behind a bearer token. Anything
// ambiguous (missing header, unknown token, storage error) resolves to
// anonymous, never to access.
func (s *Server) resolveAccount(r *http.Request) *models.Account {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil
	}

	account, err := s.Storage.FindAccountByToken(r.Context(), token)
	if err != nil {
		logger.Error("Account lookup failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return account
}

func clientAddress(r *http.Request) string {
	for _, header := range forwardedHeaders {
		if value := r.Header.Get(header); value != "" {
			first, _, _ := strings.Cut(value, ",")
			if addr := strings.TrimSpace(first); addr != "" {
				return addr
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
