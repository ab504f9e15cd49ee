package models

type ActionKind = uint8

const (
	ActionReply = ActionKind(iota)
	ActionEdit
	ActionDelete
	ActionReact
	ActionPin
	ActionCopy
)

// Action is a user-triggered operation on an existing message, routed
// through a single exhaustive dispatch in the session.
type Action struct {
	Kind      ActionKind `json:"kind"`
	MessageID string     `json:"message_id"`
	Content   string     `json:"content,omitempty"`
	Emoji     string     `json:"emoji,omitempty"`
}
