package models

import (
	"strings"
	"time"
)

// TemporaryIDPrefix marks a client-minted identifier that has not been
// replaced with a server-assigned one yet.
const TemporaryIDPrefix = "tmp_"

type MessageStatus = uint8

const (
	MessageStatusProvisional = MessageStatus(iota)
	MessageStatusConfirmed
	MessageStatusFailed
)

type MessageOrigin = uint8

const (
	MessageOriginLocalCompose = MessageOrigin(iota)
	MessageOriginRemoteSocket
	MessageOriginRestFetch
)

type MentionKind = uint8

const (
	MentionKindUser = MentionKind(iota)
	MentionKindRole
	MentionKindAll
)

type Attachment struct {
	Url      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimetype"`
}

type Mention struct {
	Kind     MentionKind `json:"kind"`
	TargetID string      `json:"target_id"`
}

type Message struct {
	ID           string          `json:"id"`
	Conversation ConversationKey `json:"conversation"`
	AuthorID     string          `json:"author_id"`
	AuthorName   string          `json:"author_name"`
	Content      string          `json:"content"`
	Attachments  []Attachment    `json:"attachments,omitempty"`
	Mentions     []Mention       `json:"mentions,omitempty"`
	ReplyToID    *string         `json:"reply_to_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	EditedAt     *time.Time      `json:"edited_at,omitempty"`
	IsPinned     bool            `json:"is_pinned,omitempty"`
	Status       MessageStatus   `json:"status"`
	Origin       MessageOrigin   `json:"origin"`
}

func (v Message) IsProvisional() bool {
	return strings.HasPrefix(v.ID, TemporaryIDPrefix)
}
