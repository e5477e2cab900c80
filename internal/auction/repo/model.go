package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status de leilão
const (
	AuctionStatusActive = "active"
	AuctionStatusEnded  = "ended"
)

// Status de lance
const (
	BidStatusActive     = "active"
	BidStatusWithdrawn  = "withdrawn"
	BidStatusSuperseded = "superseded"
)

// Status de vencedor (máquina de estados: pending_payment -> paid |
// pending_payment -> payment_missed, terminal)
const (
	WinnerStatusPendingPayment = "pending_payment"
	WinnerStatusPaid           = "paid"
	WinnerStatusPaymentMissed  = "payment_missed"
)

// Tipos de notificação
const (
	NotificationTypeWinner        = "winner"
	NotificationTypeAuctionWin    = "auction_win"
	NotificationTypePaymentMissed = "payment_missed"
)

// Auction é o modelo persistido no Postgres.
type Auction struct {
	ID               string
	Title            string
	MaxSpots         int
	EndsAt           time.Time
	Status           string
	WinnersProcessed bool
	CreatedAt        time.Time
}

// Bid é imutável depois de criado, exceto transições de status.
// CreatedAt é o critério de desempate na ordenação por valor.
type Bid struct {
	ID        string
	AuctionID string
	UserID    string
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
}

type Winner struct {
	ID              string
	AuctionID       string
	UserID          string
	WinningBidID    string
	PaymentDeadline time.Time
	Status          string
	CreatedAt       time.Time
}

// Notification é append-only; nunca é mutada depois de inserida.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	CreatedAt time.Time
}

// WinnerDetails é a visão juntada usada pelo dispatcher de notificações:
// vencedor + título do leilão + contato do usuário + valor do lance vencedor.
type WinnerDetails struct {
	WinnerID        string
	AuctionID       string
	UserID          string
	WinningBidID    string
	PaymentDeadline time.Time
	AuctionTitle    string
	Username        string
	Email           string // vazio quando o perfil não tem e-mail
	Amount          decimal.Decimal
}
