// Package inspect provides an opt-in registry of live channels and a small
// debug HTTP surface over it. Tracking is explicit: production code that
// wants its channels visible registers them, typically right after
// construction, and forgets them when done.
package inspect

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orizon-lang/coopchan"
)

// Channelish is the read-only face a channel shows the registry. Every
// *coopchan.Channel[T] satisfies it.
type Channelish interface {
	Cap() int
	Len() int
	Concurrency() int
	Stats() coopchan.ChannelStats
}

// Registry tracks named channels by id.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*entry
}

type entry struct {
	name  string
	ch    Channelish
	since time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]*entry)}
}

// Default is the process-wide registry used when callers do not carry their
// own.
var Default = NewRegistry()

// Track registers ch under name and returns the assigned id.
func (r *Registry) Track(name string, ch Channelish) string {
	id := uuid.NewString()
	r.mu.Lock()
	r.channels[id] = &entry{name: name, ch: ch, since: time.Now()}
	r.mu.Unlock()
	return id
}

// Forget removes a tracked channel. Unknown ids are ignored.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	delete(r.channels, id)
	r.mu.Unlock()
}

// ChannelSnapshot is a point-in-time view of one tracked channel.
type ChannelSnapshot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Capacity    int       `json:"capacity"`
	Buffered    int       `json:"buffered"`
	Concurrency int       `json:"concurrency"`
	Sent        uint64    `json:"sent"`
	Received    uint64    `json:"received"`
	Since       time.Time `json:"since"`
}

// Snapshot captures every tracked channel, ordered by name then id for
// stable output.
func (r *Registry) Snapshot() []ChannelSnapshot {
	r.mu.RLock()
	out := make([]ChannelSnapshot, 0, len(r.channels))
	for id, e := range r.channels {
		st := e.ch.Stats()
		out = append(out, ChannelSnapshot{
			ID:          id,
			Name:        e.name,
			Capacity:    e.ch.Cap(),
			Buffered:    e.ch.Len(),
			Concurrency: e.ch.Concurrency(),
			Sent:        st.Sent,
			Received:    st.Received,
			Since:       e.since,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
