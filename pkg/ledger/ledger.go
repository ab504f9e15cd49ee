package ledger

import (
	"errors"
	"strings"
	"sync"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
	"github.com/forPelevin/gomoji"
	"github.com/samber/lo"
)

type ToggleResult = uint8

const (
	ToggleAdded = ToggleResult(iota)
	ToggleRemoved
)

var (
	ErrInvalidReaction   = errors.New("the reaction is not valid, it must be a single emoji")
	ErrProvisionalTarget = errors.New("reactions are not available until the message is delivered")
)

// Resolver maps a possibly temporary message id to its current canonical
// form; satisfied by registry.Registry.
type Resolver interface {
	Resolve(id string) string
}

// Ledger holds the per-conversation (message, emoji, user) reaction facts.
// Counts and per-user flags are derived views, recomputed from the facts
// rather than cached, so they cannot drift.
type Ledger struct {
	mux      sync.Mutex
	resolver Resolver
	entries  []models.Reaction
}

func New(resolver Resolver) *Ledger {
	return &Ledger{resolver: resolver}
}

// ValidateReaction checks that the reaction contains exactly one emoji and
// nothing else.
func ValidateReaction(reaction string) error {
	if len(gomoji.RemoveEmojis(reaction)) > 0 {
		return ErrInvalidReaction
	}
	if len(gomoji.FindAll(reaction)) != 1 {
		return ErrInvalidReaction
	}
	return nil
}

// Toggle adds the reaction when absent and removes it when present. The
// message id is resolved through the registry first; targets still in
// temporary form are rejected until reconciliation completes.
func (l *Ledger) Toggle(messageID, emoji, userID string) (ToggleResult, error) {
	if err := ValidateReaction(emoji); err != nil {
		return ToggleAdded, err
	}

	id := l.resolver.Resolve(messageID)
	if strings.HasPrefix(id, models.TemporaryIDPrefix) {
		return ToggleAdded, ErrProvisionalTarget
	}

	l.mux.Lock()
	defer l.mux.Unlock()

	if l.removeLocked(id, emoji, userID) {
		return ToggleRemoved, nil
	}
	l.entries = append(l.entries, models.Reaction{
		MessageID: id,
		Emoji:     emoji,
		UserID:    userID,
	})
	return ToggleAdded, nil
}

// Apply replays a remote reaction event. Duplicate deliveries are absorbed:
// adding an existing triple or removing a missing one is a no-op.
func (l *Ledger) Apply(event models.Event) bool {
	if event.Reaction == nil {
		return false
	}
	reaction := *event.Reaction
	reaction.MessageID = l.resolver.Resolve(reaction.MessageID)

	l.mux.Lock()
	defer l.mux.Unlock()

	switch event.Action {
	case models.EventReactionAdd:
		if l.hasLocked(reaction.MessageID, reaction.Emoji, reaction.UserID) {
			return false
		}
		l.entries = append(l.entries, reaction)
		return true
	case models.EventReactionRemove:
		return l.removeLocked(reaction.MessageID, reaction.Emoji, reaction.UserID)
	}
	return false
}

func (l *Ledger) CountsByEmoji(messageID string) map[string]int {
	id := l.resolver.Resolve(messageID)

	l.mux.Lock()
	defer l.mux.Unlock()

	counts := make(map[string]int)
	for _, entry := range l.entries {
		if entry.MessageID == id {
			counts[entry.Emoji]++
		}
	}
	return counts
}

func (l *Ledger) HasUserReacted(messageID, emoji, userID string) bool {
	id := l.resolver.Resolve(messageID)

	l.mux.Lock()
	defer l.mux.Unlock()
	return l.hasLocked(id, emoji, userID)
}

func (l *Ledger) ListByMessage(messageID string) []models.Reaction {
	id := l.resolver.Resolve(messageID)

	l.mux.Lock()
	defer l.mux.Unlock()
	return lo.Filter(l.entries, func(entry models.Reaction, _ int) bool {
		return entry.MessageID == id
	})
}

// RewriteMessageID repoints entries keyed by a temporary id at the permanent
// one; part of the reconciliation sweep.
func (l *Ledger) RewriteMessageID(oldID, newID string) int {
	l.mux.Lock()
	defer l.mux.Unlock()

	var count int
	for idx := range l.entries {
		if l.entries[idx].MessageID == oldID {
			l.entries[idx].MessageID = newID
			count++
		}
	}
	return count
}

// RemoveMessage drops all entries of a deleted message.
func (l *Ledger) RemoveMessage(messageID string) int {
	id := l.resolver.Resolve(messageID)

	l.mux.Lock()
	defer l.mux.Unlock()

	before := len(l.entries)
	l.entries = lo.Filter(l.entries, func(entry models.Reaction, _ int) bool {
		return entry.MessageID != id
	})
	return before - len(l.entries)
}

func (l *Ledger) Clear() {
	l.mux.Lock()
	defer l.mux.Unlock()
	l.entries = nil
}

func (l *Ledger) hasLocked(messageID, emoji, userID string) bool {
	for _, entry := range l.entries {
		if entry.MessageID == messageID && entry.Emoji == emoji && entry.UserID == userID {
			return true
		}
	}
	return false
}

func (l *Ledger) removeLocked(messageID, emoji, userID string) bool {
	for idx, entry := range l.entries {
		if entry.MessageID == messageID && entry.Emoji == emoji && entry.UserID == userID {
			l.entries = append(l.entries[:idx], l.entries[idx+1:]...)
			return true
		}
	}
	return false
}
