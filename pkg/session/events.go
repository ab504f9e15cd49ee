package session

import (
	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/rs/zerolog/log"
)

// HandleEvent applies one normalized realtime event. Events for a
// conversation that is no longer active are discarded without side effects;
// duplicate deliveries are absorbed by the registry and the ledger.
func (s *Session) HandleEvent(event models.Event) {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return
	}
	if event.Conversation != s.conversation {
		s.mux.Unlock()
		log.Debug().
			Str("action", event.Action).
			Str("room", event.Conversation.RoomID()).
			Msg("Discarded an event for an inactive conversation.")
		return
	}

	switch event.Action {
	case models.EventMessageNew:
		s.handleMessageNewLocked(event)
	case models.EventMessageIDChange:
		s.handleIDChangeLocked(event)
	case models.EventMessageEdit:
		id := s.registry.Resolve(event.MessageID)
		changed := s.store.SetEdited(id, event.Content, s.now())
		s.mux.Unlock()
		if changed {
			s.notifyUpdate()
		}
	case models.EventMessageDelete:
		id := s.registry.Resolve(event.MessageID)
		removed := s.store.Remove(id)
		s.ledger.RemoveMessage(id)
		s.mux.Unlock()
		if removed {
			s.notifyUpdate()
		}
	case models.EventMessagePin, models.EventMessageUnpin:
		id := s.registry.Resolve(event.MessageID)
		changed := s.store.SetPinned(id, event.Action == models.EventMessagePin)
		s.mux.Unlock()
		if changed {
			s.notifyUpdate()
		}
	case models.EventReactionAdd, models.EventReactionRemove:
		changed := s.ledger.Apply(event)
		s.mux.Unlock()
		if changed {
			s.notifyUpdate()
		}
	case models.EventTypingStart, models.EventTypingStop:
		conversation := s.conversation
		s.mux.Unlock()
		if s.callbacks.OnTyping != nil && event.UserID != s.identity.ID {
			s.callbacks.OnTyping(conversation, event.UserID, event.Username, event.Action == models.EventTypingStart)
		}
	default:
		s.mux.Unlock()
	}
}

// handleMessageNewLocked renders an incoming message once: self-echoes and
// double deliveries fall out of RecordSeen. Releases the session lock.
func (s *Session) handleMessageNewLocked(event models.Event) {
	if event.Message == nil {
		s.mux.Unlock()
		return
	}

	message := *event.Message
	message.Conversation = s.conversation
	if !s.registry.RecordSeen(message.ID) {
		s.mux.Unlock()
		return
	}

	message.Origin = models.MessageOriginRemoteSocket
	if message.IsProvisional() {
		// A peer broadcast ahead of its own confirmation; the idchange
		// event will reconcile it on our side too.
		message.Status = models.MessageStatusProvisional
	} else {
		message.Status = models.MessageStatusConfirmed
	}
	s.store.Insert(message)
	s.mux.Unlock()

	s.notifyUpdate()
}

// handleIDChangeLocked reconciles a temporary id, whether it belongs to a
// local compose or to a peer's provisional broadcast. Releases the session
// lock.
func (s *Session) handleIDChangeLocked(event models.Event) {
	tempID := event.TempID
	permanentID := event.PermanentID

	if s.registry.IsPending(tempID) {
		// One of our own; run the full confirmation path.
		epoch := s.epoch
		s.mux.Unlock()

		confirmed := models.Message{ID: permanentID}
		if event.Message != nil {
			confirmed = *event.Message
			confirmed.ID = permanentID
		}
		s.confirm(epoch, tempID, confirmed)
		return
	}

	// A peer's provisional message received its permanent id.
	s.registry.RecordSeen(permanentID)
	changed := s.store.ReplaceID(tempID, permanentID)
	if changed {
		s.store.SetStatus(permanentID, models.MessageStatusConfirmed)
	}
	s.store.RewriteReplyTargets(tempID, permanentID)
	s.ledger.RewriteMessageID(tempID, permanentID)
	s.mux.Unlock()

	if changed {
		s.notifyUpdate()
	}
}
