package models

import jsoniter "github.com/json-iterator/go"

const (
	EventMessageNew      = "messages.new"
	EventMessageIDChange = "messages.idchange"
	EventMessageEdit     = "messages.edit"
	EventMessageDelete   = "messages.delete"
	EventMessagePin      = "messages.pin"
	EventMessageUnpin    = "messages.unpin"
	EventReactionAdd     = "reactions.add"
	EventReactionRemove  = "reactions.remove"
	EventTypingStart     = "status.typing"
	EventTypingStop      = "status.typing.stop"
	EventRoomJoin        = "rooms.join"
	EventRoomLeave       = "rooms.leave"
)

// UnifiedCommand is the wire envelope used on the realtime channel,
// in both directions.
type UnifiedCommand struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

func UnifiedCommandFromError(err error) UnifiedCommand {
	return UnifiedCommand{
		Action:  "error",
		Message: err.Error(),
	}
}

func (v UnifiedCommand) Marshal() []byte {
	data, _ := jsoniter.Marshal(v)
	return data
}

func FitStruct(src any, out any) {
	raw, _ := jsoniter.Marshal(src)
	_ = jsoniter.Unmarshal(raw, out)
}

// Event is the canonical form every realtime payload is normalized into
// before it reaches the session. Which fields are set depends on Action.
type Event struct {
	Action       string          `json:"action"`
	Conversation ConversationKey `json:"conversation"`

	Message     *Message  `json:"message,omitempty"`
	MessageID   string    `json:"message_id,omitempty"`
	TempID      string    `json:"temp_id,omitempty"`
	PermanentID string    `json:"permanent_id,omitempty"`
	Content     string    `json:"content,omitempty"`
	Reaction    *Reaction `json:"reaction,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Username    string    `json:"username,omitempty"`
}
