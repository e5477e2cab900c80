package topics

const (
	// Liquidação de leilões
	AuctionSettled = "auction_settled"
	WinnerSelected = "winner_selected"

	// Pagamentos
	PaymentMissed = "payment_missed"

	// DLQ de notificações de vencedor que falharam (reenvio manual)
	WinnerNotifyDLQ = "winner_notify_dlq"
)
