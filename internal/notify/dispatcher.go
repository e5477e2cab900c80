package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

var ErrNoEmail = errors.New("winner has no email address")

// Store define as leituras/escritas usadas pelo dispatcher
type Store interface {
	WinnerDetails(ctx context.Context, winnerID string) (repo.WinnerDetails, error)
	CreateNotification(ctx context.Context, userID, ntype, message string) error
}

// SessionCreator é o provider externo de sessão de pagamento (checkout).
// Falha aqui não tem retry automático: o reenvio fica pra próxima passada
// de liquidação ou pro reenvio manual.
type SessionCreator interface {
	CreateSession(ctx context.Context, bidID string) (url string, err error)
}

// Sender é o transporte externo de e-mail
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Dispatcher monta e entrega a notificação de vitória: busca os dados do
// vencedor, gera o link de pagamento, envia o e-mail e registra a notificação.
type Dispatcher struct {
	Log      *zap.Logger
	Store    Store
	Payments SessionCreator
	Mail     Sender
}

// Notify entrega a notificação de um vencedor. Qualquer falha é devolvida ao
// chamador, que trata como não-fatal: o registro do vencedor já está persistido.
// Sem link de pagamento não há e-mail acionável, então falha no provider de
// checkout aborta o envio.
func (d *Dispatcher) Notify(ctx context.Context, winnerID string) error {
	det, err := d.Store.WinnerDetails(ctx, winnerID)
	if err != nil {
		return fmt.Errorf("winner lookup: %w", err)
	}

	if det.Email == "" {
		return fmt.Errorf("winner %s: %w", winnerID, ErrNoEmail)
	}

	payURL, err := d.Payments.CreateSession(ctx, det.WinningBidID)
	if err != nil {
		return fmt.Errorf("create payment session: %w", err)
	}

	subject, body := winnerEmail(det, payURL)
	if err := d.Mail.Send(ctx, det.Email, subject, body); err != nil {
		return fmt.Errorf("send winner email: %w", err)
	}

	msg := fmt.Sprintf("You've won a spot in the auction: %s. Please complete your payment by %s.",
		det.AuctionTitle, formatDeadline(det.PaymentDeadline))
	if err := d.Store.CreateNotification(ctx, det.UserID, repo.NotificationTypeAuctionWin, msg); err != nil {
		// e-mail já saiu; a linha de notificação é best-effort
		d.Log.Warn("notification insert failed", zap.String("userId", det.UserID), zap.Error(err))
	}

	d.Log.Info("winner notified",
		zap.String("winnerId", det.WinnerID),
		zap.String("recipient", det.Email),
	)
	return nil
}
