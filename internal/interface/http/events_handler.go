package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/redis-task-tracker/internal/application"
	"github.com/oksasatya/redis-task-tracker/internal/infrastructure/redisstore"
	"github.com/oksasatya/redis-task-tracker/internal/notify"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams the caller's task changes as server-sent events.
// The default mode relays the live pub/sub feed, which drops anything
// published while the client is disconnected. mode=poll diffs the task list
// every PollInterval instead and survives gaps. In both modes the stream
// starts from the caller's list at connect time and events that would not
// change that view (duplicates, stale or post-delete deliveries) are dropped.
type EventsHandler struct {
	Svc          *application.TaskService
	Store        *redisstore.Store
	PollInterval time.Duration
	Logger       *logrus.Logger
}

func NewEventsHandler(svc *application.TaskService, store *redisstore.Store, poll time.Duration, logger *logrus.Logger) *EventsHandler {
	return &EventsHandler{Svc: svc, Store: store, PollInterval: poll, Logger: logger}
}

// Stream - GET /api/tasks/events[?mode=poll]
func (h *EventsHandler) Stream(c *gin.Context) {
	ident, ok := identity(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	mode := c.DefaultQuery("mode", "push")
	if mode != "push" && mode != "poll" {
		writeError(c, h.Logger, &application.ValidationError{Fields: map[string]string{"mode": "must be one of: push, poll"}})
		return
	}

	// subscribe before reading the list so no change falls between the two
	var feed *notify.Feed
	if mode == "push" {
		var err error
		if feed, err = notify.Listen(ctx, h.Store, h.Svc.Kind(), h.Logger); err != nil {
			writeError(c, h.Logger, err)
			return
		}
	}
	// events stamped before this instant are already reflected in snap
	loadedAt := time.Now()
	snap, err := h.snapshot(ctx, ident)
	if err != nil {
		if feed != nil {
			_ = feed.Close()
		}
		writeError(c, h.Logger, err)
		return
	}
	view := notify.NewState()
	view.Load(snap, loadedAt)

	var events <-chan notify.Event
	if feed != nil {
		events = h.push(ctx, feed, ident)
	} else {
		events = h.poll(ctx, ident, snap)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent("ready", gin.H{"mode": mode, "user_id": ident.UserID()})
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, open := <-events:
			if !open {
				return false
			}
			if view.Apply(ev) {
				c.SSEvent(ev.Type, ev)
			}
			return true
		case t := <-keepAlive.C:
			c.SSEvent("ping", t.UTC().Format(time.RFC3339))
			return true
		}
	})
}

func (h *EventsHandler) snapshot(ctx context.Context, ident application.Identity) (notify.Snapshot, error) {
	tasks, err := h.Svc.ListOwned(ctx, ident)
	if err != nil {
		return nil, err
	}
	return notify.SnapshotOf(tasks)
}

// push relays the live feed, keeping only the caller's own changes.
func (h *EventsHandler) push(ctx context.Context, feed *notify.Feed, ident application.Identity) <-chan notify.Event {
	out := make(chan notify.Event, 16)
	go func() {
		defer close(out)
		defer func() { _ = feed.Close() }()
		for {
			ev, ok := feed.Next(ctx)
			if !ok {
				return
			}
			if ev.UserID != ident.UserID() {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// poll diffs the caller's list on an interval, starting from base.
func (h *EventsHandler) poll(ctx context.Context, ident application.Identity, base notify.Snapshot) <-chan notify.Event {
	out := make(chan notify.Event, 16)
	p := &notify.Poller{
		Kind:     h.Svc.Kind(),
		Interval: h.PollInterval,
		Baseline: base,
		Logger:   h.Logger,
		Fetch: func(ctx context.Context) (notify.Snapshot, error) {
			return h.snapshot(ctx, ident)
		},
	}
	go func() {
		defer close(out)
		_ = p.Run(ctx, func(ev notify.Event) error {
			select {
			case out <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()
	return out
}
