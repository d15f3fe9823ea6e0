// Package collab pushes "document saved" updates to every editor that has a
// document open, so each can reconcile content written elsewhere.
package collab

import "encoding/json"

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type WelcomePayload struct {
	ClientID string `json:"clientId"`
}

// SavedPayload carries the full content just written to a document.
type SavedPayload struct {
	Revision int             `json:"revision"`
	Content  json.RawMessage `json:"content"`
}

type Viewer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceStatePayload struct {
	Viewers []Viewer `json:"viewers"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

const (
	TypeWelcome  = "welcome"
	TypeDocSaved = "doc.saved"

	TypePresenceState = "presence.state"
	TypePresenceJoin  = "presence.join"
	TypePresenceLeave = "presence.leave"
	TypeError         = "error"
)

func newMessage(typ string, payload any) *Message {
	data, _ := json.Marshal(payload)
	return &Message{Type: typ, Payload: data}
}
