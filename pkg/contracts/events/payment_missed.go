package events

import "time"

// Evento emitido pelo payment-reaper-worker quando um vencedor perde o prazo
// de pagamento e o spot é liberado.
type PaymentMissed struct {
	WinnerID  string    `json:"winner_id"`
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id"`
	Deadline  time.Time `json:"deadline"`
	Ts        time.Time `json:"ts"`
}

// Payload da DLQ winner_notify_dlq: notificação que não pôde ser entregue.
type WinnerNotifyFailed struct {
	WinnerID string    `json:"winner_id"`
	UserID   string    `json:"user_id"`
	Reason   string    `json:"reason"`
	Ts       time.Time `json:"ts"`
}
