package domain

// Message is a chat webhook payload.
type Message struct {
	Channel   string `json:"channel,omitempty"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
	Text      string `json:"text"`
}

// Mail is a plain-text email.
type Mail struct {
	From    string
	To      string
	Subject string
	Body    string
}
