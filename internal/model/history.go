package model

import "time"

// NotificationHistory is the audit row written after a successful email send.
// Recording failures are logged and never escalate to the sender.
type NotificationHistory struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Channel   string    `json:"channel"`
	LineID    string    `json:"line_id"`
	Category  Category  `json:"category"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

// Channel names recorded in notification history.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)
