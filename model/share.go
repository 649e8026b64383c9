package model

import "time"

// Share channels
const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// ShareRecord captures one share action so the shared-documents view can
// list what went out, to whom, and over which channel. Records live in
// memory only; the sheet backend is not written to.
type ShareRecord struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	SerialNos []string  `json:"serialNos"`
	SharedBy  string    `json:"sharedBy"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
