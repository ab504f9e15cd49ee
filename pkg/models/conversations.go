package models

import "fmt"

type ConversationType = uint8

const (
	ConversationTypeChannel = ConversationType(iota)
	ConversationTypeDirect
)

// ConversationKey identifies one channel or direct-message thread.
// It doubles as the realtime room key via RoomID.
type ConversationKey struct {
	Type     ConversationType `json:"type"`
	TargetID string           `json:"target_id"`
}

func (v ConversationKey) RoomID() string {
	if v.Type == ConversationTypeDirect {
		return fmt.Sprintf("direct:%s", v.TargetID)
	}
	return fmt.Sprintf("channel:%s", v.TargetID)
}

func (v ConversationKey) DisplayText() string {
	if v.Type == ConversationTypeDirect {
		return fmt.Sprintf("DM #%s", v.TargetID)
	}
	return fmt.Sprintf("#%s", v.TargetID)
}
