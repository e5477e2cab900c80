package dto

type PlaceBidRequest struct {
	AuctionID string `json:"auctionId"`
	UserID    string `json:"userId"`
	Amount    string `json:"amount"` // decimal como string, ex: "125.00"
}

type ConfirmPaymentRequest struct {
	WinnerID string `json:"winnerId"`
}

type ResendWinnerEmailRequest struct {
	WinnerID string `json:"winnerId"`
}
