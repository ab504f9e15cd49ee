package store

import (
	"sync"
	"time"

	"git.solsynth.dev/hypernet/chatkit/pkg/models"
)

// Store is the in-memory ordered message collection for the active
// conversation. Insertion order reflects the order optimistic sends were
// issued; remote messages interleave in arrival order.
type Store struct {
	mux sync.Mutex

	order []string
	items map[string]models.Message

	hasMore    bool
	nextOffset int
}

func New() *Store {
	return &Store{
		items:   make(map[string]models.Message),
		hasMore: true,
	}
}

// Insert appends the message, or replaces it in place when the id already
// exists. Re-insertion from duplicate socket deliveries is therefore
// idempotent with respect to ordering.
func (s *Store) Insert(message models.Message) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.items[message.ID]; !ok {
		s.order = append(s.order, message.ID)
	}
	s.items[message.ID] = message
}

// ReplaceID rewrites the stored message's id in place, preserving its
// position. Returns false when oldID is not present or newID already is.
func (s *Store) ReplaceID(oldID, newID string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	item, ok := s.items[oldID]
	if !ok {
		return false
	}
	if _, taken := s.items[newID]; taken && oldID != newID {
		return false
	}

	item.ID = newID
	delete(s.items, oldID)
	s.items[newID] = item
	for idx, id := range s.order {
		if id == oldID {
			s.order[idx] = newID
			break
		}
	}
	return true
}

func (s *Store) Remove(id string) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for idx, item := range s.order {
		if item == id {
			s.order = append(s.order[:idx], s.order[idx+1:]...)
			break
		}
	}
	return true
}

// Prepend puts an older history page in front of the current collection,
// keeping the given order and skipping ids that are already present.
func (s *Store) Prepend(messages []models.Message) int {
	s.mux.Lock()
	defer s.mux.Unlock()

	var fresh []string
	for _, message := range messages {
		if _, ok := s.items[message.ID]; ok {
			continue
		}
		s.items[message.ID] = message
		fresh = append(fresh, message.ID)
	}
	s.order = append(fresh, s.order...)
	return len(fresh)
}

func (s *Store) Get(id string) (models.Message, bool) {
	s.mux.Lock()
	defer s.mux.Unlock()
	item, ok := s.items[id]
	return item, ok
}

// List returns a snapshot of the collection in insertion order.
func (s *Store) List() []models.Message {
	s.mux.Lock()
	defer s.mux.Unlock()

	out := make([]models.Message, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return len(s.order)
}

// Patch applies fn to the stored message with the given id, if present.
func (s *Store) Patch(id string, fn func(*models.Message)) bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	item, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&item)
	item.ID = id
	s.items[id] = item
	return true
}

func (s *Store) SetStatus(id string, status models.MessageStatus) bool {
	return s.Patch(id, func(m *models.Message) {
		m.Status = status
	})
}

func (s *Store) SetEdited(id string, content string, at time.Time) bool {
	return s.Patch(id, func(m *models.Message) {
		m.Content = content
		m.EditedAt = &at
	})
}

func (s *Store) SetPinned(id string, pinned bool) bool {
	return s.Patch(id, func(m *models.Message) {
		m.IsPinned = pinned
	})
}

// RewriteReplyTargets repoints every reply backlink holding oldID at newID.
func (s *Store) RewriteReplyTargets(oldID, newID string) int {
	s.mux.Lock()
	defer s.mux.Unlock()

	var count int
	for id, item := range s.items {
		if item.ReplyToID != nil && *item.ReplyToID == oldID {
			item.ReplyToID = &newID
			s.items[id] = item
			count++
		}
	}
	return count
}

func (s *Store) HasMore() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.hasMore
}

func (s *Store) NextOffset() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.nextOffset
}

// AdvancePage moves the pagination cursor after a successful history fetch.
// A short page means the top of the history was reached.
func (s *Store) AdvancePage(fetched, pageSize int) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.nextOffset += fetched
	s.hasMore = fetched >= pageSize
}

// Clear resets the collection and pagination; used on conversation switch.
func (s *Store) Clear() {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.order = nil
	s.items = make(map[string]models.Message)
	s.hasMore = true
	s.nextOffset = 0
}
