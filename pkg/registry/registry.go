package registry

import "sync"

// Registry tracks which message identifiers were already observed and maps
// temporary identifiers to their server-assigned permanent ones. It is scoped
// to a single conversation and cleared on every switch.
type Registry struct {
	mux sync.Mutex

	seen     map[string]struct{}
	seenList []string
	pending  map[string]struct{}
	mapping  map[string]string
}

func New() *Registry {
	return &Registry{
		seen:    make(map[string]struct{}),
		pending: make(map[string]struct{}),
		mapping: make(map[string]string),
	}
}

// RecordSeen returns true on the first observation of id, false on any
// duplicate. The id is resolved through the mapping first, so the temporary
// and permanent forms of one logical message count as the same observation.
func (r *Registry) RecordSeen(id string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()

	canonical := r.resolveLocked(id)
	if _, ok := r.seen[canonical]; ok {
		return false
	}
	r.seen[canonical] = struct{}{}
	r.seenList = append(r.seenList, canonical)
	return true
}

// RegisterPending marks a freshly minted temporary id as awaiting its
// permanent counterpart.
func (r *Registry) RegisterPending(tempID string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.pending[tempID] = struct{}{}
}

func (r *Registry) IsPending(tempID string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	_, ok := r.pending[tempID]
	return ok
}

// MapTemporaryToPermanent records tempID -> permanentID. It is idempotent and
// a safe no-op when the temporary id is unknown, which happens when the user
// deleted the message locally before the server confirmed it.
func (r *Registry) MapTemporaryToPermanent(tempID, permanentID string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()

	if existing, ok := r.mapping[tempID]; ok {
		return existing == permanentID
	}
	if _, ok := r.pending[tempID]; !ok {
		return false
	}

	delete(r.pending, tempID)
	r.mapping[tempID] = permanentID

	// The two forms are one logical message; transfer the seen mark so a
	// later echo under the permanent id is treated as a duplicate.
	if _, ok := r.seen[tempID]; ok {
		delete(r.seen, tempID)
		if _, dup := r.seen[permanentID]; !dup {
			r.seen[permanentID] = struct{}{}
			r.seenList = append(r.seenList, permanentID)
		}
	}
	return true
}

// Resolve returns the permanent id when a mapping exists, else id unchanged.
func (r *Registry) Resolve(id string) string {
	r.mux.Lock()
	defer r.mux.Unlock()
	return r.resolveLocked(id)
}

func (r *Registry) resolveLocked(id string) string {
	if mapped, ok := r.mapping[id]; ok {
		return mapped
	}
	return id
}

// Forget drops a temporary id that was deleted locally before confirmation.
// Any reconciliation payload arriving for it afterwards is discarded.
func (r *Registry) Forget(id string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	delete(r.pending, id)
	delete(r.mapping, id)
}

// PruneSeen trims the duplicate-detection set down to the newest max entries.
// Messages older than that are long off screen and re-rendering them is
// prevented by the store anyway.
func (r *Registry) PruneSeen(max int) int {
	r.mux.Lock()
	defer r.mux.Unlock()

	if max < 0 || len(r.seenList) <= max {
		return 0
	}
	victims := r.seenList[:len(r.seenList)-max]
	for _, id := range victims {
		delete(r.seen, id)
	}
	kept := make([]string, len(r.seenList)-len(victims))
	copy(kept, r.seenList[len(victims):])
	r.seenList = kept
	return len(victims)
}

// Clear wipes everything; used when the conversation is switched away.
func (r *Registry) Clear() {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.seen = make(map[string]struct{})
	r.seenList = nil
	r.pending = make(map[string]struct{})
	r.mapping = make(map[string]string)
}
