package transport

import (
	"encoding/json"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	jsoniter "github.com/json-iterator/go"
)

// The realtime fabric carries payloads produced by several generations of
// clients, with inconsistent field names (channel_id vs channelId vs room_id)
// and ids that may be numbers or strings. Everything is normalized here into
// the canonical models.Event shape; nothing duck-typed leaves this package.

// FlexID accepts a JSON string or number and keeps its decimal string form.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := jsoniter.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := jsoniter.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func firstID(candidates ...FlexID) string {
	for _, item := range candidates {
		if len(item) > 0 {
			return string(item)
		}
	}
	return ""
}

func firstString(candidates ...string) string {
	for _, item := range candidates {
		if len(item) > 0 {
			return item
		}
	}
	return ""
}

type wireRoom struct {
	Conversation *models.ConversationKey `json:"conversation"`

	Room         FlexID `json:"room"`
	ChannelID    FlexID `json:"channel_id"`
	ChannelIDAlt FlexID `json:"channelId"`
	RoomID       FlexID `json:"room_id"`
	RoomIDAlt    FlexID `json:"roomId"`
	ChatRoomID   FlexID `json:"chatRoomId"`
	TargetID     FlexID `json:"target_id"`
	TargetType   string `json:"target_type"`
	RoomType     string `json:"type"`
}

func (w wireRoom) empty() bool {
	return w.Conversation == nil &&
		len(firstID(w.Room, w.ChannelID, w.ChannelIDAlt, w.RoomID, w.RoomIDAlt, w.ChatRoomID, w.TargetID)) == 0
}

func (w wireRoom) canonical() models.ConversationKey {
	if w.Conversation != nil && len(w.Conversation.TargetID) > 0 {
		return *w.Conversation
	}
	id := firstID(w.Room, w.ChannelID, w.ChannelIDAlt, w.RoomID, w.RoomIDAlt, w.ChatRoomID, w.TargetID)
	kind := models.ConversationTypeChannel
	switch strings.ToLower(firstString(w.TargetType, w.RoomType)) {
	case "direct", "dm":
		kind = models.ConversationTypeDirect
	}
	// Room keys of the "direct:123" form carry the type themselves.
	if prefix, rest, ok := strings.Cut(id, ":"); ok {
		if prefix == "direct" {
			kind = models.ConversationTypeDirect
			id = rest
		} else if prefix == "channel" {
			kind = models.ConversationTypeChannel
			id = rest
		}
	}
	return models.ConversationKey{Type: kind, TargetID: id}
}

type wireMessage struct {
	wireRoom

	ID          FlexID  `json:"id"`
	MessageID   FlexID  `json:"message_id"`
	TempID      FlexID  `json:"temp_id"`
	Content     string  `json:"content"`
	Text        string  `json:"text"`
	AuthorID    FlexID  `json:"author_id"`
	SenderID    FlexID  `json:"sender_id"`
	UserID      FlexID  `json:"user_id"`
	AuthorName  string  `json:"author_name"`
	Username    string  `json:"username"`
	ReplyToID   *FlexID `json:"reply_to_id"`
	ReplyToAlt  *FlexID `json:"replyToId"`
	IsPinned    bool    `json:"is_pinned"`
	TimestampMs int64   `json:"timestamp"`

	Attachments []models.Attachment `json:"attachments"`
	Mentions    []models.Mention    `json:"mentions"`

	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`
}

func (w wireMessage) canonical() models.Message {
	message := models.Message{
		ID:           firstID(w.ID, w.MessageID, w.TempID),
		Conversation: w.wireRoom.canonical(),
		AuthorID:     firstID(w.AuthorID, w.SenderID, w.UserID),
		AuthorName:   firstString(w.AuthorName, w.Username),
		Content:      firstString(w.Content, w.Text),
		Attachments:  w.Attachments,
		Mentions:     w.Mentions,
		IsPinned:     w.IsPinned,
		CreatedAt:    w.CreatedAt,
		EditedAt:     w.EditedAt,
		Status:       models.MessageStatusConfirmed,
		Origin:       models.MessageOriginRemoteSocket,
	}
	if message.CreatedAt.IsZero() && w.TimestampMs > 0 {
		message.CreatedAt = time.UnixMilli(w.TimestampMs)
	}
	if reply := w.ReplyToID; reply != nil && len(*reply) > 0 {
		id := string(*reply)
		message.ReplyToID = &id
	} else if reply := w.ReplyToAlt; reply != nil && len(*reply) > 0 {
		id := string(*reply)
		message.ReplyToID = &id
	}
	return message
}

type wireMessagePayload struct {
	wireMessage
	Message *wireMessage `json:"message"`
}

func (w wireMessagePayload) pick() wireMessage {
	if w.Message != nil && len(firstID(w.Message.ID, w.Message.MessageID, w.Message.TempID)) > 0 {
		// The outer object may still be the only carrier of the room key.
		if w.Message.wireRoom.empty() {
			w.Message.wireRoom = w.wireRoom
		}
		return *w.Message
	}
	return w.wireMessage
}

type wireIDChange struct {
	wireRoom

	TempID      FlexID       `json:"temp_id"`
	TempIDAlt   FlexID       `json:"tempId"`
	PermanentID FlexID       `json:"permanent_id"`
	RealID      FlexID       `json:"real_id"`
	NewID       FlexID       `json:"newId"`
	Message     *wireMessage `json:"message"`
}

type wireReaction struct {
	wireRoom

	MessageID    FlexID `json:"message_id"`
	MessageIDAlt FlexID `json:"messageId"`
	Emoji        string `json:"emoji"`
	Reaction     string `json:"reaction"`
	UserID       FlexID `json:"user_id"`
	UserIDAlt    FlexID `json:"userId"`
	Username     string `json:"username"`
}

type wireTyping struct {
	wireRoom

	UserID    FlexID `json:"user_id"`
	UserIDAlt FlexID `json:"userId"`
	Username  string `json:"username"`
}

// NormalizeEvent converts a raw realtime envelope into a canonical event.
// Returns false for unknown actions or payloads missing required fields.
func NormalizeEvent(command models.UnifiedCommand) (models.Event, bool) {
	event := models.Event{Action: command.Action}

	switch command.Action {
	case models.EventMessageNew:
		var w wireMessagePayload
		models.FitStruct(command.Payload, &w)
		message := w.pick().canonical()
		event.Conversation = message.Conversation
		event.Message = &message
		event.MessageID = message.ID
		return event, len(message.ID) > 0
	case models.EventMessageIDChange:
		var w wireIDChange
		models.FitStruct(command.Payload, &w)
		event.TempID = firstID(w.TempID, w.TempIDAlt)
		event.PermanentID = firstID(w.PermanentID, w.RealID, w.NewID)
		event.Conversation = w.wireRoom.canonical()
		if w.Message != nil {
			message := w.Message.canonical()
			event.Message = &message
			if len(event.Conversation.TargetID) == 0 {
				event.Conversation = message.Conversation
			}
		}
		return event, len(event.TempID) > 0 && len(event.PermanentID) > 0
	case models.EventMessageEdit:
		var w wireMessagePayload
		models.FitStruct(command.Payload, &w)
		message := w.pick()
		event.Conversation = message.wireRoom.canonical()
		event.MessageID = firstID(message.ID, message.MessageID)
		event.Content = firstString(message.Content, message.Text)
		return event, len(event.MessageID) > 0
	case models.EventMessageDelete, models.EventMessagePin, models.EventMessageUnpin:
		var w wireMessage
		models.FitStruct(command.Payload, &w)
		event.Conversation = w.wireRoom.canonical()
		event.MessageID = firstID(w.ID, w.MessageID)
		return event, len(event.MessageID) > 0
	case models.EventReactionAdd, models.EventReactionRemove:
		var w wireReaction
		models.FitStruct(command.Payload, &w)
		event.Conversation = w.wireRoom.canonical()
		event.Reaction = &models.Reaction{
			MessageID: firstID(w.MessageID, w.MessageIDAlt),
			Emoji:     firstString(w.Emoji, w.Reaction),
			UserID:    firstID(w.UserID, w.UserIDAlt),
			Username:  w.Username,
		}
		return event, len(event.Reaction.MessageID) > 0 && len(event.Reaction.Emoji) > 0
	case models.EventTypingStart, models.EventTypingStop:
		var w wireTyping
		models.FitStruct(command.Payload, &w)
		event.Conversation = w.wireRoom.canonical()
		event.UserID = firstID(w.UserID, w.UserIDAlt)
		event.Username = w.Username
		return event, len(event.UserID) > 0
	}

	return event, false
}
