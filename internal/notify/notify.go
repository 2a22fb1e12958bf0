// Package notify delivers roster events to the optional downstream sinks.
package notify

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"activity-signups/internal/common/logger"
	"activity-signups/internal/common/metrics"
	"activity-signups/internal/models"
)

const defaultTimeout = 3 * time.Second

// Notifier is one downstream sink for roster events.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, event models.RosterEvent) error
}

// Fanout hands every event to each notifier concurrently. A failing sink is
// logged and counted; it never reaches the caller.
type Fanout struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    logger.Logger
}

func NewFanout(log logger.Logger, timeout time.Duration, notifiers ...Notifier) *Fanout {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fanout{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Len reports how many sinks are attached.
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.notifiers)
}

// Dispatch blocks until every sink has returned or timed out. Cancellation of
// ctx does not cut deliveries short; only the per-sink timeout does.
func (f *Fanout) Dispatch(ctx context.Context, event models.RosterEvent) {
	if f.Len() == 0 {
		return
	}
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, n := range f.notifiers {
		wg.Add(1)
		go func(n Notifier) {
			defer wg.Done()

			sinkCtx, cancel := context.WithTimeout(base, f.timeout)
			defer cancel()

			if err := n.Notify(sinkCtx, event); err != nil {
				metrics.NotificationsFailed.WithLabelValues(n.Name()).Inc()
				f.logger.Warn("roster notification failed", map[string]interface{}{
					"notifier": n.Name(),
					"eventId":  event.ID,
					"activity": event.Activity,
					"error":    err,
				})
				return
			}
			f.logger.Debug("roster notification delivered", map[string]interface{}{
				"notifier": n.Name(),
				"eventId":  event.ID,
			})
		}(n)
	}
	wg.Wait()
}

func encodeEvent(event models.RosterEvent) ([]byte, error) {
	return json.Marshal(event)
}
