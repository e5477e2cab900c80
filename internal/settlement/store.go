package settlement

import (
	"context"
	"time"

	"github.com/radieske/auction-marketplace-poc/internal/auction/repo"
)

// Prazo fixo que um vencedor tem pra concluir o pagamento antes de perder o spot
const PaymentGracePeriod = 24 * time.Hour

// Store define as operações de persistência usadas pelo engine de liquidação
// e pelo reaper de pagamentos. Toda transição que abre caminho pra trabalho
// adicional (claim do leilão, criação de vencedor, payment_missed) é um update
// condicional no banco, nunca um read-then-write.
type Store interface {
	ExpiredUnprocessedAuctions(ctx context.Context, now time.Time) ([]repo.Auction, error)
	ClaimAuction(ctx context.Context, auctionID string) (bool, error)
	TopActiveBids(ctx context.Context, auctionID string, limit int) ([]repo.Bid, error)
	CreateWinner(ctx context.Context, w *repo.Winner) (created bool, err error)

	ExpiredPendingWinners(ctx context.Context, now time.Time) ([]repo.Winner, error)
	MarkPaymentMissed(ctx context.Context, winnerID string) (bool, error)
	NextEligibleBid(ctx context.Context, auctionID string) (*repo.Bid, error)

	AuctionTitle(ctx context.Context, auctionID string) (string, error)
	CreateNotification(ctx context.Context, userID, ntype, message string) error
}

// Notifier entrega a notificação de vitória a um vencedor recém-criado.
// Falha de entrega nunca é fatal pra liquidação.
type Notifier interface {
	Notify(ctx context.Context, winnerID string) error
}
