package transport

import (
	"context"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
)

// ComposeRequest is the durable-send payload. The temporary id rides along so
// the server can echo it back in the idchange broadcast.
type ComposeRequest struct {
	Conversation models.ConversationKey `json:"conversation"`
	Content      string                 `json:"content"`
	Attachments  []models.Attachment    `json:"attachments,omitempty"`
	Mentions     []models.Mention       `json:"mentions,omitempty"`
	ReplyToID    *string                `json:"reply_to_id,omitempty"`
	TempID       string                 `json:"temp_id"`
}

// DurableSender is the HTTP-style request channel, expected to return
// authoritative server-computed fields.
type DurableSender interface {
	SendMessage(ctx context.Context, request ComposeRequest) (models.Message, error)
	ListMessages(ctx context.Context, conversation models.ConversationKey, take, offset int) ([]models.Message, error)
	EditMessage(ctx context.Context, conversation models.ConversationKey, id, content string) (models.Message, error)
	DeleteMessage(ctx context.Context, conversation models.ConversationKey, id string) error
	ReactMessage(ctx context.Context, conversation models.ConversationKey, id, emoji string, add bool) error
}

// Realtime is the best-effort room-scoped publish/subscribe channel. Incoming
// traffic is surfaced as canonical events; the channel is closed when the
// connection drops.
type Realtime interface {
	JoinRoom(room string) error
	LeaveRoom(room string) error
	Publish(command models.UnifiedCommand) error
	Events() <-chan models.Event
}
