package models

// OutboundMessageRequest represents requests to send a message manually via the API.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// AdjustRequest is the HTTP payload for a single stock adjustment.
type AdjustRequest struct {
	ID        int       `json:"id"`
	Query     string    `json:"query"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
	Direction Direction `json:"direction" binding:"required"`
}
