package events

import "time"

// Evento publicado no tópico "auction_settled" após o claim e a seleção
// de vencedores de um leilão encerrado.
type AuctionSettled struct {
	AuctionID   string    `json:"auction_id"`
	Title       string    `json:"title"`
	WinnerCount int       `json:"winner_count"`
	SettledAt   time.Time `json:"settled_at"`
}
