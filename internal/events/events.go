// Package events exposes application lifecycle notifications (launch,
// stop, fault, watchdog, shutdown) to whatever is watching the daemon —
// a log shipper, a metrics scraper. It is a thin
// domain wrapper around hashicorp/nomad's task eventer, the same
// publish/subscribe primitive the teacher driver already holds as its
// `eventer` field for emitting task lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/nomad/drivers/shared/eventer"
	"github.com/hashicorp/nomad/plugins/drivers"
)

// Kind categorizes a Notification the way the supervisor's own state
// machine distinguishes its transitions.
type Kind string

const (
	KindLaunched  Kind = "launched"
	KindStopped   Kind = "stopped"
	KindFault     Kind = "fault"
	KindWatchdog  Kind = "watchdog"
	KindShutdown  Kind = "shutdown"
	KindInstalled Kind = "installed"
)

// Notification is the domain-shaped event delivered to subscribers,
// decoded from the underlying drivers.TaskEvent so nothing outside this
// package needs to know about the nomad plugin types.
type Notification struct {
	App       string
	Kind      Kind
	Message   string
	Timestamp time.Time
}

// Bus publishes and fans out Notifications. Publish is safe to call from
// the single supervisor goroutine; Subscribe is safe to call concurrently
// from IPC client goroutines.
type Bus struct {
	ev *eventer.Eventer
}

// New creates a Bus bound to ctx: the underlying eventer stops emitting
// once ctx is cancelled, which the daemon ties to process shutdown.
func New(ctx context.Context, logger hclog.Logger) *Bus {
	return &Bus{ev: eventer.NewEventer(ctx, logger.Named("events"))}
}

// Publish emits a Notification for app.
func (b *Bus) Publish(app string, kind Kind, message string) {
	b.ev.EmitEvent(&drivers.TaskEvent{
		TaskID:      app,
		Timestamp:   time.Now(),
		Message:     message,
		Annotations: map[string]string{"kind": string(kind)},
	})
}

// Notify implements supervisor.Notifier, letting the core depend only on
// that narrow interface while this package does the real publishing.
func (b *Bus) Notify(app, kind, message string) {
	b.Publish(app, Kind(kind), message)
}

// Subscribe returns a channel of Notifications for the lifetime of ctx.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *Notification, error) {
	raw, err := b.ev.TaskEvents(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan *Notification, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				out <- &Notification{
					App:       ev.TaskID,
					Kind:      Kind(ev.Annotations["kind"]),
					Message:   ev.Message,
					Timestamp: ev.Timestamp,
				}
			}
		}
	}()
	return out, nil
}
