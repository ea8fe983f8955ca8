package notify

import (
	"encoding/json"
	"sort"
	"time"
)

// State is a client-side view of one kind rebuilt from events. Applying the
// same event twice, or an event older than what was already applied for that
// id, leaves the view unchanged. Deletions leave a tombstone so a late
// created or updated event cannot resurrect the entity.
type State struct {
	docs       map[int64]json.RawMessage
	applied    map[int64]time.Time
	tombstones map[int64]time.Time
}

func NewState() *State {
	return &State{
		docs:       make(map[int64]json.RawMessage),
		applied:    make(map[int64]time.Time),
		tombstones: make(map[int64]time.Time),
	}
}

// Load seeds the view from a fetched list, e.g. the initial GET.
func (s *State) Load(snap Snapshot, at time.Time) {
	for id, it := range snap {
		if _, dead := s.tombstones[id]; dead {
			continue
		}
		s.docs[id] = it.Doc
		if at.After(s.applied[id]) {
			s.applied[id] = at
		}
	}
}

// Apply folds ev into the view and reports whether anything changed.
func (s *State) Apply(ev Event) bool {
	id := ev.EntityID
	if last, ok := s.applied[id]; ok && ev.Timestamp.Before(last) {
		return false
	}
	if dead, ok := s.tombstones[id]; ok && !ev.Timestamp.After(dead) {
		return false
	}

	switch ev.Action {
	case Deleted:
		_, existed := s.docs[id]
		delete(s.docs, id)
		s.tombstones[id] = ev.Timestamp
		s.applied[id] = ev.Timestamp
		return existed
	case Created, Updated:
		if len(ev.Entity) == 0 {
			return false
		}
		prev, existed := s.docs[id]
		s.docs[id] = ev.Entity
		s.applied[id] = ev.Timestamp
		return !existed || string(prev) != string(ev.Entity)
	default:
		return false
	}
}

// Get returns the current document of id.
func (s *State) Get(id int64) (json.RawMessage, bool) {
	doc, ok := s.docs[id]
	return doc, ok
}

// IDs lists the live ids in ascending order.
func (s *State) IDs() []int64 {
	ids := make([]int64, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *State) Len() int { return len(s.docs) }
