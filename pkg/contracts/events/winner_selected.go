package events

import "time"

type WinnerSelected struct {
	WinnerID        string    `json:"winner_id"`
	AuctionID       string    `json:"auction_id"`
	UserID          string    `json:"user_id"`
	WinningBidID    string    `json:"winning_bid_id"`
	Amount          string    `json:"amount"` // valor decimal serializado como string
	PaymentDeadline time.Time `json:"payment_deadline"`
	Promoted        bool      `json:"promoted"` // true quando veio do reaper (spot reciclado)
	Ts              time.Time `json:"ts"`
}
