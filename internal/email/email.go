package email

import (
	"fmt"
	"net/smtp"
	"os"

	"gramload.app/cloud/internal/logger"
	"gramload.app/cloud/models"
)

func Send(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	if smtpHost == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" {
		logger.Error("SMTP configuration missing")
		return fmt.Errorf("SMTP configuration missing")
	}

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpHost)

	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", smtpUser, to, subject, body))

	addr := fmt.Sprintf("%s:%s", smtpHost, smtpPort)
	return smtp.SendMail(addr, auth, smtpUser, []string{to}, msg)
}

// ReceiptBody renders the plain-text receipt sent after an order settles.
func ReceiptBody(order *models.Order, plan models.Plan) string {
	return fmt.Sprintf(`Hello,

Thank you for your purchase! Your payment has been processed successfully.

ORDER DETAILS
Order ID: %s
Plan: %s
Amount Paid: %s

Your account has been upgraded and your downloads are ready.

If you have any questions, reply to this email.

The Gramload Team`,
		order.ID,
		plan.Name,
		FormatAmount(order.Amount, order.Currency))
}

func FormatAmount(amount int64, currency string) string {
	value := float64(amount) / 100.0
	switch currency {
	case "usd", "USD":
		return fmt.Sprintf("$%.2f", value)
	case "eur", "EUR":
		return fmt.Sprintf("€%.2f", value)
	case "cny", "CNY":
		return fmt.Sprintf("¥%.2f", value)
	default:
		return fmt.Sprintf("%.2f %s", value, currency)
	}
}
