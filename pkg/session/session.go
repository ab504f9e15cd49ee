package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/guard"
	"git.solsynth.dev/hypernet/chatkit/pkg/ledger"
	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"git.solsynth.dev/hypernet/chatkit/pkg/registry"
	"git.solsynth.dev/hypernet/chatkit/pkg/store"
	"git.solsynth.dev/hypernet/chatkit/pkg/transport"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Callbacks connect the session to the rendering layer. OnUpdate is invoked
// with a full snapshot after every mutation; rendering the same snapshot
// twice must be a no-op on the caller's side.
type Callbacks struct {
	OnUpdate  func(messages []models.Message)
	OnWarning func(reason string, message string)
	OnTyping  func(conversation models.ConversationKey, userID, username string, active bool)
	OnCopy    func(content string)
}

// Session owns the state of one active conversation: the message store,
// identifier registry, reaction ledger and rate guard. All mutation routes
// through it; a compose action is rendered optimistically under a temporary
// id, dispatched over the durable and realtime channels in parallel, and
// reconciled with the server-assigned id when either channel confirms first.
type Session struct {
	mux sync.Mutex

	opts      Options
	identity  Identity
	callbacks Callbacks

	registry *registry.Registry
	store    *store.Store
	ledger   *ledger.Ledger
	guard    *guard.Guard

	rest transport.DurableSender
	rt   transport.Realtime

	conversation models.ConversationKey
	active       bool

	// epoch is bumped on every conversation switch; continuations captured
	// under an older epoch discard their effects when they finally arrive.
	epoch uint64

	inflight string
	timers   map[string]*time.Timer

	closed bool

	now func() time.Time
}

func New(identity Identity, rest transport.DurableSender, rt transport.Realtime, opts Options, callbacks Callbacks) *Session {
	opts = opts.withDefaults()
	reg := registry.New()
	return &Session{
		opts:      opts,
		identity:  identity,
		callbacks: callbacks,
		registry:  reg,
		store:     store.New(),
		ledger:    ledger.New(reg),
		guard:     guard.New(opts.RateLimit, opts.RateWindow),
		rest:      rest,
		rt:        rt,
		timers:    make(map[string]*time.Timer),
		now:       time.Now,
	}
}

// Run consumes the realtime event stream until the context ends or the
// transport closes its channel.
func (s *Session) Run(ctx context.Context) {
	events := s.rt.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.HandleEvent(event)
		}
	}
}

func (s *Session) Close() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
}

// SwitchConversation tears down the previous conversation's state, joins the
// new room and loads the first history page. In-flight confirmations of the
// old conversation are abandoned: their network calls may still complete but
// the results are discarded via the epoch check.
func (s *Session) SwitchConversation(conversation models.ConversationKey) error {
	s.mux.Lock()
	if s.closed {
		s.mux.Unlock()
		return newError(models.ReasonStaleConversation, "session is closed")
	}
	if s.active && conversation == s.conversation {
		s.mux.Unlock()
		return nil
	}

	previous := s.conversation
	wasActive := s.active
	s.epoch++
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.inflight = ""
	s.guard.Release()
	s.registry.Clear()
	s.ledger.Clear()
	s.store.Clear()
	s.conversation = conversation
	s.active = true
	s.mux.Unlock()

	if wasActive {
		if err := s.rt.LeaveRoom(previous.RoomID()); err != nil {
			log.Warn().Err(err).Str("room", previous.RoomID()).Msg("Unable to leave the previous room...")
		}
	}
	if err := s.rt.JoinRoom(conversation.RoomID()); err != nil {
		// Not live in the room; a later SwitchConversation may retry.
		s.mux.Lock()
		s.active = false
		s.mux.Unlock()
		return newError(models.ReasonTransport, "unable to join the conversation room: %v", err)
	}

	_, err := s.LoadOlderMessages()
	return err
}

// ComposeAndSend validates the draft, runs the rate/concurrency guard, then
// renders a provisional message and dispatches it over both channels. The
// provisional message is returned immediately; its fate is reported through
// status transitions and the warning callback.
func (s *Session) ComposeAndSend(content string, attachments []models.Attachment, mentions []models.Mention, replyToID *string) (models.Message, error) {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return models.Message{}, newError(models.ReasonStaleConversation, "no active conversation")
	}
	if verr := s.validateCompose(content, attachments); verr != nil {
		s.mux.Unlock()
		s.warn(models.ReasonValidation, verr.Message)
		return models.Message{}, verr
	}
	if err := s.guard.Admit(); err != nil {
		s.mux.Unlock()
		return models.Message{}, translateGuardError(err)
	}

	tempID := mintTempID()
	if replyToID != nil {
		resolved := s.registry.Resolve(*replyToID)
		replyToID = &resolved
	}
	message := models.Message{
		ID:           tempID,
		Conversation: s.conversation,
		AuthorID:     s.identity.ID,
		AuthorName:   s.identity.Username,
		Content:      strings.TrimSpace(content),
		Attachments:  attachments,
		Mentions:     mentions,
		ReplyToID:    replyToID,
		CreatedAt:    s.now(),
		Status:       models.MessageStatusProvisional,
		Origin:       models.MessageOriginLocalCompose,
	}

	s.registry.RegisterPending(tempID)
	s.registry.RecordSeen(tempID)
	s.store.Insert(message)
	s.inflight = tempID

	epoch := s.epoch
	conversation := s.conversation
	s.timers[tempID] = time.AfterFunc(s.opts.ConfirmTimeout, func() {
		s.fail(epoch, tempID, models.ReasonTimeout, "message confirmation timed out")
	})
	s.mux.Unlock()

	s.notifyUpdate()

	// Best-effort broadcast so peers can render it right away.
	if err := s.rt.Publish(models.UnifiedCommand{
		Action: models.EventMessageNew,
		Payload: map[string]any{
			"room":    conversation.RoomID(),
			"message": message,
		},
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to broadcast the provisional message...")
	}

	// The durable call carries the authoritative reply.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConfirmTimeout)
		defer cancel()

		confirmed, err := s.rest.SendMessage(ctx, transport.ComposeRequest{
			Conversation: conversation,
			Content:      message.Content,
			Attachments:  attachments,
			Mentions:     mentions,
			ReplyToID:    replyToID,
			TempID:       tempID,
		})
		if err != nil {
			s.fail(epoch, tempID, models.ReasonTransport, err.Error())
			return
		}
		s.confirm(epoch, tempID, confirmed)
	}()

	return message, nil
}

// confirm finishes reconciliation for a locally composed message: first
// confirmation wins, the other channel degrades to a no-op.
func (s *Session) confirm(epoch uint64, tempID string, confirmed models.Message) {
	s.mux.Lock()
	if s.closed || epoch != s.epoch {
		s.mux.Unlock()
		return
	}
	s.stopTimerLocked(tempID)

	if s.registry.Resolve(tempID) != tempID {
		// Already reconciled through the other channel.
		s.mux.Unlock()
		return
	}
	if _, ok := s.store.Get(tempID); !ok {
		// Deleted locally before the server answered; drop the payload.
		s.registry.Forget(tempID)
		s.releaseInflightLocked(tempID)
		s.mux.Unlock()
		return
	}

	permanentID := confirmed.ID
	if len(permanentID) == 0 || strings.HasPrefix(permanentID, models.TemporaryIDPrefix) {
		// A confirmation that carries no usable server id cannot reconcile
		// the message; degrade it to a failed send so the slot frees up.
		s.mux.Unlock()
		s.fail(epoch, tempID, models.ReasonTransport, "server did not assign a permanent id")
		return
	}

	s.registry.MapTemporaryToPermanent(tempID, permanentID)
	s.registry.RecordSeen(permanentID)
	s.store.ReplaceID(tempID, permanentID)
	s.store.Patch(permanentID, func(m *models.Message) {
		m.Status = models.MessageStatusConfirmed
		if !confirmed.CreatedAt.IsZero() {
			m.CreatedAt = confirmed.CreatedAt
		}
		if confirmed.ReplyToID != nil {
			m.ReplyToID = confirmed.ReplyToID
		}
		if len(confirmed.Attachments) > 0 {
			m.Attachments = confirmed.Attachments
		}
	})

	// Sweep every dependent reference still keyed by the temporary id.
	s.store.RewriteReplyTargets(tempID, permanentID)
	s.ledger.RewriteMessageID(tempID, permanentID)

	s.releaseInflightLocked(tempID)
	s.mux.Unlock()

	s.notifyUpdate()
}

// fail marks a dispatched message as failed; it stays visible in the store
// until the user removes it explicitly.
func (s *Session) fail(epoch uint64, tempID string, reason, message string) {
	s.mux.Lock()
	if s.closed || epoch != s.epoch {
		s.mux.Unlock()
		return
	}
	s.stopTimerLocked(tempID)
	if s.registry.Resolve(tempID) != tempID {
		s.mux.Unlock()
		return
	}
	if item, ok := s.store.Get(tempID); !ok || item.Status == models.MessageStatusFailed {
		s.releaseInflightLocked(tempID)
		s.mux.Unlock()
		return
	}

	changed := s.store.SetStatus(tempID, models.MessageStatusFailed)
	s.releaseInflightLocked(tempID)
	s.mux.Unlock()

	if changed {
		s.notifyUpdate()
		s.warn(reason, message)
	}
}

// ToggleReaction applies the toggle optimistically, then mirrors it over
// both channels. A failed durable call rolls the toggle back.
func (s *Session) ToggleReaction(messageID, emoji string) (ledger.ToggleResult, error) {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return ledger.ToggleAdded, newError(models.ReasonStaleConversation, "no active conversation")
	}
	result, err := s.ledger.Toggle(messageID, emoji, s.identity.ID)
	if err != nil {
		s.mux.Unlock()
		return result, newError(models.ReasonValidation, "%v", err)
	}
	resolved := s.registry.Resolve(messageID)
	conversation := s.conversation
	epoch := s.epoch
	s.mux.Unlock()

	s.notifyUpdate()

	added := result == ledger.ToggleAdded
	action := models.EventReactionAdd
	if !added {
		action = models.EventReactionRemove
	}
	if err := s.rt.Publish(models.UnifiedCommand{
		Action: action,
		Payload: map[string]any{
			"room":       conversation.RoomID(),
			"message_id": resolved,
			"emoji":      emoji,
			"user_id":    s.identity.ID,
			"username":   s.identity.Username,
		},
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to broadcast the reaction...")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConfirmTimeout)
		defer cancel()
		err := s.rest.ReactMessage(ctx, conversation, resolved, emoji, added)
		if err == nil {
			return
		}
		log.Warn().Err(err).Msg("Unable to persist the reaction, rolling it back...")

		revert := models.EventReactionRemove
		if !added {
			revert = models.EventReactionAdd
		}
		s.mux.Lock()
		if !s.closed && epoch == s.epoch {
			s.ledger.Apply(models.Event{
				Action: revert,
				Reaction: &models.Reaction{
					MessageID: resolved,
					Emoji:     emoji,
					UserID:    s.identity.ID,
				},
			})
		}
		s.mux.Unlock()
		s.notifyUpdate()
		s.warn(models.ReasonTransport, "your reaction could not be saved")
	}()

	return result, nil
}

// LoadOlderMessages fetches the next history page and prepends it. Returns
// how many previously unseen messages were added.
func (s *Session) LoadOlderMessages() (int, error) {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return 0, newError(models.ReasonStaleConversation, "no active conversation")
	}
	if !s.store.HasMore() {
		s.mux.Unlock()
		return 0, nil
	}
	conversation := s.conversation
	epoch := s.epoch
	offset := s.store.NextOffset()
	pageSize := s.opts.PageSize
	s.mux.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConfirmTimeout)
	defer cancel()
	page, err := s.rest.ListMessages(ctx, conversation, pageSize, offset)
	if err != nil {
		return 0, newError(models.ReasonTransport, "unable to load history: %v", err)
	}

	s.mux.Lock()
	if s.closed || epoch != s.epoch {
		s.mux.Unlock()
		return 0, newError(models.ReasonStaleConversation, "conversation changed while loading")
	}
	// The API returns newest first; flip to chronological before prepending.
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	for i := range page {
		page[i].Conversation = conversation
		page[i].Origin = models.MessageOriginRestFetch
		page[i].Status = models.MessageStatusConfirmed
		s.registry.RecordSeen(page[i].ID)
	}
	fresh := s.store.Prepend(page)
	s.store.AdvancePage(len(page), pageSize)
	s.mux.Unlock()

	s.notifyUpdate()
	return fresh, nil
}

// EditMessage rewrites a delivered message's content optimistically and
// mirrors the edit over both channels (last write wins).
func (s *Session) EditMessage(messageID, content string) error {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return newError(models.ReasonStaleConversation, "no active conversation")
	}
	if verr := s.validateCompose(content, nil); verr != nil {
		s.mux.Unlock()
		s.warn(models.ReasonValidation, verr.Message)
		return verr
	}

	id := s.registry.Resolve(messageID)
	if strings.HasPrefix(id, models.TemporaryIDPrefix) {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "the message has not been delivered yet")
	}
	item, ok := s.store.Get(id)
	if !ok {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "no such message")
	}
	if item.AuthorID != s.identity.ID {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "cannot edit messages sent by others")
	}

	trimmed := strings.TrimSpace(content)
	s.store.SetEdited(id, trimmed, s.now())
	conversation := s.conversation
	s.mux.Unlock()

	s.notifyUpdate()

	if err := s.rt.Publish(models.UnifiedCommand{
		Action: models.EventMessageEdit,
		Payload: map[string]any{
			"room":    conversation.RoomID(),
			"id":      id,
			"content": trimmed,
		},
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to broadcast the edit...")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConfirmTimeout)
		defer cancel()
		if _, err := s.rest.EditMessage(ctx, conversation, id, trimmed); err != nil {
			log.Warn().Err(err).Msg("Unable to persist the edit...")
			s.warn(models.ReasonTransport, "your edit could not be saved")
		}
	}()

	return nil
}

// DeleteMessage removes a message. A still-provisional message is only
// removed locally; any confirmation arriving later is discarded.
func (s *Session) DeleteMessage(messageID string) error {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return newError(models.ReasonStaleConversation, "no active conversation")
	}

	id := s.registry.Resolve(messageID)
	if strings.HasPrefix(id, models.TemporaryIDPrefix) {
		removed := s.store.Remove(id)
		s.ledger.RemoveMessage(id)
		s.registry.Forget(id)
		s.stopTimerLocked(id)
		s.releaseInflightLocked(id)
		s.mux.Unlock()
		if removed {
			s.notifyUpdate()
		}
		return nil
	}

	item, ok := s.store.Get(id)
	if !ok {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "no such message")
	}
	if item.AuthorID != s.identity.ID {
		s.mux.Unlock()
		return newError(models.ReasonValidation, "cannot delete messages sent by others")
	}

	s.store.Remove(id)
	s.ledger.RemoveMessage(id)
	conversation := s.conversation
	s.mux.Unlock()

	s.notifyUpdate()

	if err := s.rt.Publish(models.UnifiedCommand{
		Action: models.EventMessageDelete,
		Payload: map[string]any{
			"room": conversation.RoomID(),
			"id":   id,
		},
	}); err != nil {
		log.Warn().Err(err).Msg("Unable to broadcast the deletion...")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConfirmTimeout)
		defer cancel()
		if err := s.rest.DeleteMessage(ctx, conversation, id); err != nil {
			log.Warn().Err(err).Msg("Unable to persist the deletion...")
			s.warn(models.ReasonTransport, "the message could not be deleted on the server")
		}
	}()

	return nil
}

// NotifyTyping broadcasts the local typing state, best effort.
func (s *Session) NotifyTyping(active bool) {
	s.mux.Lock()
	if s.closed || !s.active {
		s.mux.Unlock()
		return
	}
	conversation := s.conversation
	s.mux.Unlock()

	action := models.EventTypingStart
	if !active {
		action = models.EventTypingStop
	}
	if err := s.rt.Publish(models.UnifiedCommand{
		Action: action,
		Payload: map[string]any{
			"room":     conversation.RoomID(),
			"user_id":  s.identity.ID,
			"username": s.identity.Username,
		},
	}); err != nil {
		log.Debug().Err(err).Msg("Unable to broadcast typing status.")
	}
}

// Housekeeping trims bookkeeping that only grows; wired to a periodic job.
func (s *Session) Housekeeping() {
	pruned := s.registry.PruneSeen(s.opts.SeenCapacity)
	s.guard.Prune()
	if pruned > 0 {
		log.Debug().Int("pruned", pruned).Msg("Cleaned up the duplicate-detection records.")
	}
}

// Snapshot accessors for the rendering layer.

func (s *Session) Messages() []models.Message {
	return s.store.List()
}

func (s *Session) ReactionCounts(messageID string) map[string]int {
	return s.ledger.CountsByEmoji(messageID)
}

func (s *Session) HasUserReacted(messageID, emoji, userID string) bool {
	return s.ledger.HasUserReacted(messageID, emoji, userID)
}

func (s *Session) Reactions(messageID string) []models.Reaction {
	return s.ledger.ListByMessage(messageID)
}

func (s *Session) Conversation() (models.ConversationKey, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.conversation, s.active
}

func (s *Session) HasMoreHistory() bool {
	return s.store.HasMore()
}

func (s *Session) stopTimerLocked(tempID string) {
	if timer, ok := s.timers[tempID]; ok {
		timer.Stop()
		delete(s.timers, tempID)
	}
}

func (s *Session) releaseInflightLocked(tempID string) {
	if s.inflight == tempID {
		s.inflight = ""
		s.guard.Release()
	}
}

func (s *Session) notifyUpdate() {
	if s.callbacks.OnUpdate != nil {
		s.callbacks.OnUpdate(s.store.List())
	}
}

func (s *Session) warn(reason, message string) {
	if s.callbacks.OnWarning != nil {
		s.callbacks.OnWarning(reason, message)
	}
}

func mintTempID() string {
	return fmt.Sprintf("%s%d_%s", models.TemporaryIDPrefix, time.Now().UnixMilli(), uuid.NewString()[:8])
}
