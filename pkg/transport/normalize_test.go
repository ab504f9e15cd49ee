package transport

import (
	"testing"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexIDAcceptsStringsAndNumbers(t *testing.T) {
	var payload struct {
		A FlexID `json:"a"`
		B FlexID `json:"b"`
		C FlexID `json:"c"`
	}
	err := jsoniter.Unmarshal([]byte(`{"a":"42","b":42,"c":null}`), &payload)
	require.NoError(t, err)
	assert.Equal(t, FlexID("42"), payload.A)
	assert.Equal(t, FlexID("42"), payload.B)
	assert.Equal(t, FlexID(""), payload.C)
}

func TestNormalizeMessageNewWithCamelAliases(t *testing.T) {
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action: models.EventMessageNew,
		Payload: map[string]any{
			"channelId": 42,
			"message": map[string]any{
				"id":        1001,
				"text":      "hello",
				"sender_id": 7,
				"replyToId": "999",
				"timestamp": 1717000000000,
			},
		},
	})
	require.True(t, ok)
	assert.Equal(t, models.ConversationKey{
		Type:     models.ConversationTypeChannel,
		TargetID: "42",
	}, event.Conversation)
	require.NotNil(t, event.Message)
	assert.Equal(t, "1001", event.Message.ID)
	assert.Equal(t, "hello", event.Message.Content)
	assert.Equal(t, "7", event.Message.AuthorID)
	require.NotNil(t, event.Message.ReplyToID)
	assert.Equal(t, "999", *event.Message.ReplyToID)
	assert.Equal(t, time.UnixMilli(1717000000000), event.Message.CreatedAt)
}

func TestNormalizeMessageNewFlatPayload(t *testing.T) {
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action: models.EventMessageNew,
		Payload: map[string]any{
			"room":      "direct:9",
			"id":        "tmp_1717_ab12cd34",
			"content":   "optimistic",
			"author_id": "u1",
		},
	})
	require.True(t, ok)
	assert.Equal(t, models.ConversationKey{
		Type:     models.ConversationTypeDirect,
		TargetID: "9",
	}, event.Conversation)
	assert.Equal(t, "tmp_1717_ab12cd34", event.MessageID)
	assert.True(t, event.Message.IsProvisional())
}

func TestNormalizeMessageNewRequiresAnID(t *testing.T) {
	_, ok := NormalizeEvent(models.UnifiedCommand{
		Action:  models.EventMessageNew,
		Payload: map[string]any{"room": "channel:1", "content": "no id"},
	})
	assert.False(t, ok)
}

func TestNormalizeIDChangeVariants(t *testing.T) {
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action: models.EventMessageIDChange,
		Payload: map[string]any{
			"tempId": "tmp_1",
			"newId":  555,
			"room":   "channel:12",
		},
	})
	require.True(t, ok)
	assert.Equal(t, "tmp_1", event.TempID)
	assert.Equal(t, "555", event.PermanentID)
	assert.Equal(t, "12", event.Conversation.TargetID)

	event, ok = NormalizeEvent(models.UnifiedCommand{
		Action: models.EventMessageIDChange,
		Payload: map[string]any{
			"temp_id": "tmp_2",
			"real_id": "600",
			"message": map[string]any{"id": "600", "content": "final", "channel_id": 12},
		},
	})
	require.True(t, ok)
	assert.Equal(t, "600", event.PermanentID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "final", event.Message.Content)
	assert.Equal(t, "12", event.Conversation.TargetID)

	_, ok = NormalizeEvent(models.UnifiedCommand{
		Action:  models.EventMessageIDChange,
		Payload: map[string]any{"temp_id": "tmp_3"},
	})
	assert.False(t, ok)
}

func TestNormalizeReactionAliases(t *testing.T) {
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action: models.EventReactionAdd,
		Payload: map[string]any{
			"room_id":   "5",
			"messageId": 77,
			"reaction":  "👍",
			"userId":    "u2",
			"username":  "bob",
		},
	})
	require.True(t, ok)
	require.NotNil(t, event.Reaction)
	assert.Equal(t, "77", event.Reaction.MessageID)
	assert.Equal(t, "👍", event.Reaction.Emoji)
	assert.Equal(t, "u2", event.Reaction.UserID)
	assert.Equal(t, "bob", event.Reaction.Username)
}

func TestNormalizeTypingAndUnknownActions(t *testing.T) {
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action:  models.EventTypingStart,
		Payload: map[string]any{"room": "channel:1", "user_id": "u2", "username": "bob"},
	})
	require.True(t, ok)
	assert.Equal(t, "u2", event.UserID)

	_, ok = NormalizeEvent(models.UnifiedCommand{
		Action:  models.EventTypingStart,
		Payload: map[string]any{"room": "channel:1"},
	})
	assert.False(t, ok)

	_, ok = NormalizeEvent(models.UnifiedCommand{Action: "calls.start"})
	assert.False(t, ok)
}

func TestNormalizeRoundTripsOwnPublishes(t *testing.T) {
	// The session broadcasts canonical structs; those payloads must survive
	// the same normalization path remote peers run them through.
	message := models.Message{
		ID:           "tmp_1717_ab12cd34",
		Conversation: models.ConversationKey{Type: models.ConversationTypeChannel, TargetID: "42"},
		AuthorID:     "u1",
		AuthorName:   "alice",
		Content:      "hello there",
		CreatedAt:    time.UnixMilli(1717000000000),
	}
	event, ok := NormalizeEvent(models.UnifiedCommand{
		Action: models.EventMessageNew,
		Payload: map[string]any{
			"room":    message.Conversation.RoomID(),
			"message": message,
		},
	})
	require.True(t, ok)
	assert.Equal(t, message.Conversation, event.Conversation)
	assert.Equal(t, message.ID, event.Message.ID)
	assert.Equal(t, message.Content, event.Message.Content)
	assert.Equal(t, message.AuthorID, event.Message.AuthorID)
}
