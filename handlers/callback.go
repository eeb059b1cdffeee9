package handlers

import (
	"errors"
	"net/http"

	"gramload.app/cloud/internal/email"
	"gramload.app/cloud/internal/logger"
	"gramload.app/cloud/internal/metrics"
	"gramload.app/cloud/internal/payment"
)

func (s *Server) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	logger.Info("Payment callback received", map[string]interface{}{
		"remote_addr": r.RemoteAddr,
		"user_agent":  r.Header.Get("User-Agent"),
	})

	if !s.callbackGuard.Allow() {
		metrics.CallbacksTotal.WithLabelValues("shed").Inc()
		writeErrorResponse(w, http.StatusServiceUnavailable, "Try again later")
		return
	}

	const MaxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	payload, err := payment.ParseRequest(r)
	if err != nil {
		logger.Warn("Malformed payment callback", map[string]interface{}{
			"error": err.Error(),
		})
		metrics.CallbacksTotal.WithLabelValues("validation_rejected").Inc()
		writeErrorResponse(w, http.StatusBadRequest, "Invalid callback")
		return
	}

	outcome, err := s.Settler.Process(r.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrValidation):
			logger.Warn("Payment callback rejected", map[string]interface{}{
				"error":    err.Error(),
				"order_id": payload.OrderID,
			})
			metrics.CallbacksTotal.WithLabelValues("validation_rejected").Inc()
			writeErrorResponse(w, http.StatusBadRequest, "Invalid callback")
		case errors.Is(err, payment.ErrNotFound):
			metrics.CallbacksTotal.WithLabelValues("not_found").Inc()
			writeErrorResponse(w, http.StatusNotFound, "Unknown order")
		default:
			// Transient failure: the order is still pending and the
			// gateway is expected to retry.
			logger.Error("Settlement failed, order left pending", map[string]interface{}{
				"error":    err.Error(),
				"order_id": payload.OrderID,
			})
			metrics.CallbacksTotal.WithLabelValues("retryable_failure").Inc()
			writeErrorResponse(w, http.StatusInternalServerError, "Temporary failure")
		}
		return
	}

	switch {
	case outcome.Settled:
		metrics.CallbacksTotal.WithLabelValues("settled").Inc()
		s.sendReceipt(r, outcome)
	case outcome.Duplicate:
		logger.Info("Duplicate callback delivery, order already paid", map[string]interface{}{
			"order_id": payload.OrderID,
		})
		metrics.CallbacksTotal.WithLabelValues("duplicate").Inc()
	default:
		metrics.CallbacksTotal.WithLabelValues("ignored").Inc()
	}

	writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
}

// sendReceipt is best effort; a mail failure never fails the settlement.
func (s *Server) sendReceipt(r *http.Request, outcome payment.Outcome) {
	account, err := s.Storage.GetAccount(r.Context(), outcome.Order.AccountID)
	if err != nil || account == nil || account.Email == "" {
		return
	}

	go func(to string) {
		body := email.ReceiptBody(outcome.Order, outcome.Plan)
		if err := email.Send(to, "Your Gramload receipt", body); err != nil {
			logger.Warn("Failed to send receipt email", map[string]interface{}{
				"error":    err.Error(),
				"order_id": outcome.Order.ID,
			})
		}
	}(account.Email)
}
