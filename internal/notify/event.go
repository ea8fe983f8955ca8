// Package notify carries entity change notifications: an append-only audit
// stream per kind plus a live pub/sub fan-out, and the polling fallback that
// synthesizes the same events from list snapshots.
//
// Delivery is at-most-once on the live path. A message published while no
// subscriber is connected is lost and a new subscription never replays
// history, so clients that cannot tolerate gaps should poll.
package notify

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/oksasatya/redis-task-tracker/internal/domain/entity"
)

// Action is the kind of mutation an event describes.
type Action string

const (
	Created Action = "created"
	Updated Action = "updated"
	Deleted Action = "deleted"
)

// channel suffixes, e.g. "tasks:new".
var channelSuffix = map[Action]string{
	Created: "new",
	Updated: "updated",
	Deleted: "deleted",
}

// Actions lists every action in a stable order.
func Actions() []Action { return []Action{Created, Updated, Deleted} }

// Event is one change message. Entity holds the document after the mutation
// and is empty for deletions, which only carry EntityID.
type Event struct {
	Type      string          `json:"type"`
	Kind      string          `json:"kind"`
	Action    Action          `json:"action"`
	EntityID  int64           `json:"entity_id"`
	UserID    int64           `json:"user_id"`
	Entity    json.RawMessage `json:"entity,omitempty"`
	Changes   []string        `json:"changes,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent builds an event for kind. doc is encoded unless the action is a
// deletion.
func NewEvent(kind entity.Kind, action Action, entityID, userID int64, doc any, changes []string, at time.Time) (Event, error) {
	ev := Event{
		Type:      EventType(kind, action),
		Kind:      kind.String(),
		Action:    action,
		EntityID:  entityID,
		UserID:    userID,
		Changes:   changes,
		Timestamp: at.UTC(),
	}
	if action != Deleted && doc != nil {
		b, err := json.Marshal(doc)
		if err != nil {
			return ev, err
		}
		ev.Entity = b
	}
	return ev, nil
}

// EventType is "{kind}_{action}", e.g. "task_created".
func EventType(kind entity.Kind, action Action) string {
	return kind.String() + "_" + string(action)
}

// Channel is the pub/sub channel for kind and action, e.g. "tasks:new".
func Channel(kind entity.Kind, action Action) string {
	return kind.String() + "s:" + channelSuffix[action]
}

// Channels returns the channels of every action for kind.
func Channels(kind entity.Kind) []string {
	out := make([]string, 0, len(channelSuffix))
	for _, a := range Actions() {
		out = append(out, Channel(kind, a))
	}
	return out
}

// Stream is the audit stream name for kind, e.g. "stream:task-events".
func Stream(kind entity.Kind) string {
	return "stream:" + kind.String() + "-events"
}

// AuditFields flattens ev into the field set appended to the audit stream.
func AuditFields(ev Event) map[string]string {
	fields := map[string]string{
		"event":         ev.Type,
		ev.Kind + "_id": strconv.FormatInt(ev.EntityID, 10),
		"user_id":       strconv.FormatInt(ev.UserID, 10),
		"timestamp":     ev.Timestamp.Format(time.RFC3339Nano),
	}
	if ev.Action == Updated {
		changes := ev.Changes
		if changes == nil {
			changes = []string{}
		}
		b, _ := json.Marshal(changes)
		fields["changes"] = string(b)
	}
	return fields
}
