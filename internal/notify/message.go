package notify

import (
	"fmt"
	"time"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

func formatDeadline(t time.Time) string {
	return t.Format("Monday, January 2, 2006 at 15:04")
}

// winnerEmail monta assunto e corpo HTML do e-mail de vitória com o link de
// pagamento e o prazo
func winnerEmail(det repo.WinnerDetails, payURL string) (subject, body string) {
	subject = fmt.Sprintf("Action Required: Complete Your Payment for %s", det.AuctionTitle)

	deadline := formatDeadline(det.PaymentDeadline)
	body = fmt.Sprintf(`<html>
  <body>
    <h1>Congratulations! You've Won a Spot in "%s"</h1>
    <p>Great news! You've successfully secured a spot in the auction with your bid of $%s.</p>
    <p><strong>Important:</strong> You must complete your payment within 24 hours (by %s) to secure your spot.</p>
    <p>If you don't complete your payment within this timeframe, your spot may be given to the next highest bidder.</p>
    <p><a href="%s">Complete Your Payment Now</a></p>
    <p>This is an automated email. Please do not reply to this message.</p>
  </body>
</html>`, det.AuctionTitle, det.Amount.StringFixed(2), deadline, payURL)

	return subject, body
}
