package messages

import "time"

// ConversationHandled is published once per webhook command after the flow
// resolved a flag, keyed by contact so one customer's history stays ordered.
type ConversationHandled struct {
	ContactID string    `json:"contact_id"`
	SessionID string    `json:"session_id,omitempty"`
	Command   string    `json:"command"`
	Flag      string    `json:"flag"`
	Message   string    `json:"message,omitempty"`
	HandledAt time.Time `json:"handled_at"`
}
