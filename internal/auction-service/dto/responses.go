package dto

import "time"

type AuctionResponse struct {
	AuctionID        string    `json:"auction_id"`
	Title            string    `json:"title"`
	MaxSpots         int       `json:"max_spots"`
	EndsAt           time.Time `json:"ends_at"`
	Status           string    `json:"status"`
	WinnersProcessed bool      `json:"winners_processed"`
}

type PlaceBidResponse struct {
	BidID  string `json:"bid_id"`
	Status string `json:"status"`
}

type WinnerResponse struct {
	WinnerID        string    `json:"winner_id"`
	UserID          string    `json:"user_id"`
	WinningBidID    string    `json:"winning_bid_id"`
	PaymentDeadline time.Time `json:"payment_deadline"`
	Status          string    `json:"status"`
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
