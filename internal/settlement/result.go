package settlement

import "time"

// WinnerOutcome é o resultado da criação (ou tentativa) de um vencedor
type WinnerOutcome struct {
	WinnerID        string    `json:"winner_id,omitempty"`
	UserID          string    `json:"user_id"`
	BidID           string    `json:"bid_id"`
	Amount          string    `json:"amount,omitempty"`
	PaymentDeadline time.Time `json:"payment_deadline,omitempty"`
	Created         bool      `json:"created"`
	Notified        bool      `json:"notified"`
	NotifyError     string    `json:"notify_error,omitempty"`
	Success         bool      `json:"success"`
	Message         string    `json:"message"`
}

// AuctionResult é o resultado isolado da liquidação de um leilão.
// Claimed indica que esta execução venceu o claim (eventos só são publicados
// pra leilões com Claimed=true).
type AuctionResult struct {
	AuctionID string          `json:"auction_id"`
	Title     string          `json:"title,omitempty"`
	Claimed   bool            `json:"claimed"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Winners   []WinnerOutcome `json:"winners,omitempty"`
}

// BatchResult agrega os resultados de uma passada de liquidação.
// Falha em um leilão não aborta os demais; cada um aparece em Details.
type BatchResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Details []AuctionResult `json:"details,omitempty"`
}

// ReapOutcome é o resultado isolado do processamento de um vencedor
// inadimplente. Missed indica que esta execução fez a transição (passadas
// redundantes devolvem Missed=false sem efeito colateral).
type ReapOutcome struct {
	WinnerID  string         `json:"winner_id"`
	AuctionID string         `json:"auction_id"`
	UserID    string         `json:"user_id"`
	Deadline  time.Time      `json:"deadline,omitempty"`
	Missed    bool           `json:"missed"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Promoted  *WinnerOutcome `json:"promoted,omitempty"`
}

// ReapResult agrega os resultados de uma passada do reaper
type ReapResult struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Details []ReapOutcome `json:"details,omitempty"`
}
