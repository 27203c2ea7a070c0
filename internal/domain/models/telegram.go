package models

// Update mirrors the structure sent by the Telegram Bot API webhook callbacks.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message aggregates the inbound message shapes we care about.
type Message struct {
	MessageID int64        `json:"message_id"`
	From      *User        `json:"from,omitempty"`
	Chat      Chat         `json:"chat"`
	Text      string       `json:"text,omitempty"`
	Document  *DocumentRef `json:"document,omitempty"`
	Contact   *Contact     `json:"contact,omitempty"`
}

// User identifies the Telegram account that produced an update.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// Chat identifies the conversation an update belongs to. The chat ID is the
// session identifier for the dialogue state machine.
type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// DocumentRef represents a file attachment's minimal metadata.
type DocumentRef struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// Contact carries a shared phone number used for verification.
type Contact struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
}

// CallbackQuery models a pressed inline-keyboard button.
type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message,omitempty"`
	Data    string   `json:"data,omitempty"`
}
