package session

import (
	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/samber/lo"
)

// Do routes a user-triggered message action through one exhaustive dispatch.
func (s *Session) Do(action models.Action) error {
	switch action.Kind {
	case models.ActionReply:
		_, err := s.ComposeAndSend(action.Content, nil, nil, lo.ToPtr(action.MessageID))
		return err
	case models.ActionEdit:
		return s.EditMessage(action.MessageID, action.Content)
	case models.ActionDelete:
		return s.DeleteMessage(action.MessageID)
	case models.ActionReact:
		_, err := s.ToggleReaction(action.MessageID, action.Emoji)
		return err
	case models.ActionPin:
		return s.TogglePin(action.MessageID)
	case models.ActionCopy:
		s.mux.Lock()
		id := s.registry.Resolve(action.MessageID)
		item, ok := s.store.Get(id)
		s.mux.Unlock()
		if !ok {
			return newError(models.ReasonValidation, "no such message")
		}
		if s.callbacks.OnCopy != nil {
			s.callbacks.OnCopy(item.Content)
		}
		return nil
	default:
		return newError(models.ReasonValidation, "unknown action kind %d", action.Kind)
	}
}

// TogglePin flips the pinned flag locally and broadcasts the change; pins
// are a realtime-only concern, peers and later fetches carry the flag.
func (s *Session) TogglePin(messageID string) error {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return newError(models.ReasonStaleConversation, "no active conversation")
	}

	id := s.registry.Resolve(messageID)
	if item, ok := s.store.Get(id); !ok {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "no such message")
	} else if item.IsProvisional() {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "the message has not been delivered yet")
	} else {
		s.store.SetPinned(id, !item.IsPinned)
		action := models.EventMessagePin
		if item.IsPinned {
			action = models.EventMessageUnpin
		}
		conversation := s.conversation
		s.mux.Unlock()

		s.notifyUpdate()
		return s.rt.Publish(models.UnifiedCommand{
			Action: action,
			Payload: map[string]any{
				"room": conversation.RoomID(),
				"id":   id,
			},
		})
	}
}
