package fake

import (
	"sync"

	"github.com/imamik/stackctl/internal/provisioning"
)

// Observer records every event it receives.
type Observer struct {
	mu     *sync.Mutex
	events *[]provisioning.Event
	fields map[string]string
}

// NewObserver returns an empty recording observer.
func NewObserver() *Observer {
	return &Observer{mu: &sync.Mutex{}, events: &[]provisioning.Event{}}
}

// Event implements provisioning.Observer.
func (o *Observer) Event(event provisioning.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.fields) > 0 {
		merged := make(map[string]string, len(o.fields)+len(event.Fields))
		for k, v := range o.fields {
			merged[k] = v
		}
		for k, v := range event.Fields {
			merged[k] = v
		}
		event.Fields = merged
	}
	*o.events = append(*o.events, event)
}

// WithFields implements provisioning.Observer. Derived observers share the
// parent's event log.
func (o *Observer) WithFields(fields map[string]string) provisioning.Observer {
	merged := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Observer{mu: o.mu, events: o.events, fields: merged}
}

// Events returns a copy of the recorded events.
func (o *Observer) Events() []provisioning.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]provisioning.Event(nil), *o.events...)
}

// Count returns how many events of type t were recorded.
func (o *Observer) Count(t provisioning.EventType) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range *o.events {
		if e.Type == t {
			n++
		}
	}
	return n
}
