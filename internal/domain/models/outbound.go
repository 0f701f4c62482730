package models

// OutboundMessageRequest asks the server to push a WhatsApp text, e.g. a stock reminder to a farmer.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}
