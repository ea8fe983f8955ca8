package notify

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
)

// Item is what the poller remembers about one entity between fetches.
type Item struct {
	ID        int64
	UserID    int64
	Completed bool
	Doc       json.RawMessage
}

// Snapshot is one fetched list keyed by entity id.
type Snapshot map[int64]Item

type completable interface{ IsCompleted() bool }

// SnapshotOf encodes a fetched list. The completion flag is read from
// entities that have one.
func SnapshotOf[T entity.Owned](items []T) (Snapshot, error) {
	snap := make(Snapshot, len(items))
	for _, it := range items {
		doc, err := json.Marshal(it)
		if err != nil {
			return nil, err
		}
		item := Item{ID: it.EntityID(), UserID: it.OwnerID(), Doc: doc}
		if c, ok := any(it).(completable); ok {
			item.Completed = c.IsCompleted()
		}
		snap[item.ID] = item
	}
	return snap, nil
}

// Diff synthesizes the events that turn prev into next: ids only in next are
// created, ids only in prev are deleted and a flipped completion flag is an
// update. Events come out created, updated, deleted, each group by id.
func Diff(kind entity.Kind, prev, next Snapshot, at time.Time) []Event {
	var created, updated, deleted []Event
	for _, id := range sortedIDs(next) {
		cur := next[id]
		old, seen := prev[id]
		switch {
		case !seen:
			created = append(created, diffEvent(kind, Created, cur, nil, at))
		case old.Completed != cur.Completed:
			updated = append(updated, diffEvent(kind, Updated, cur, []string{"completed"}, at))
		}
	}
	for _, id := range sortedIDs(prev) {
		if _, ok := next[id]; !ok {
			deleted = append(deleted, diffEvent(kind, Deleted, prev[id], nil, at))
		}
	}
	out := append(created, updated...)
	return append(out, deleted...)
}

func diffEvent(kind entity.Kind, action Action, it Item, changes []string, at time.Time) Event {
	ev := Event{
		Type:      EventType(kind, action),
		Kind:      kind.String(),
		Action:    action,
		EntityID:  it.ID,
		UserID:    it.UserID,
		Changes:   changes,
		Timestamp: at.UTC(),
	}
	if action != Deleted {
		ev.Entity = it.Doc
	}
	return ev
}

func sortedIDs(s Snapshot) []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Poller periodically re-fetches a list and emits the differences. Baseline,
// when set, is the list the caller already has; otherwise the first successful
// fetch only sets the baseline.
type Poller struct {
	Kind     entity.Kind
	Interval time.Duration
	Fetch    func(ctx context.Context) (Snapshot, error)
	Baseline Snapshot
	Logger   *logrus.Logger
	Now      func() time.Time
}

// Run polls until ctx is done or emit fails. A failed fetch keeps the last
// snapshot and is retried on the next tick.
func (p *Poller) Run(ctx context.Context, emit func(Event) error) error {
	now := p.Now
	if now == nil {
		now = time.Now
	}
	interval := p.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	prev, baseline := p.Baseline, p.Baseline != nil
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		next, err := p.Fetch(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil
			}
			if p.Logger != nil {
				p.Logger.WithError(err).Warn("poll fetch failed")
			}
		case !baseline:
			prev, baseline = next, true
		default:
			for _, ev := range Diff(p.Kind, prev, next, now()) {
				if err := emit(ev); err != nil {
					return err
				}
			}
			prev = next
		}

		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}
