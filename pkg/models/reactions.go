package models

// Reaction is one (message, emoji, user) fact. A user may react to a message
// with the same emoji at most once; toggling removes it.
type Reaction struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
}
