// Package refresh decides when a data-owning caller should re-fetch.
//
// A Registration listens to page lifecycle events (focus, visibility,
// back/forward restore, unload) and an optional polling interval, and invokes
// the caller's refresh callback only when the staleness window has elapsed.
// Unload is authoritative: once observed, nothing fires until the page is
// restored from cache.
package refresh

import (
	"sort"
	"sync"
)

// EventKind names a page lifecycle event.
type EventKind string

// Host lifecycle events.
const (
	EventFocus        EventKind = "focus"
	EventBlur         EventKind = "blur"
	EventVisible      EventKind = "visible"
	EventHidden       EventKind = "hidden"
	EventPageShow     EventKind = "pageshow"
	EventPageHide     EventKind = "pagehide"
	EventBeforeUnload EventKind = "beforeunload"
)

// Internal events, never emitted by a Page.
const (
	eventMount   EventKind = "mount"
	eventPoll    EventKind = "poll"
	eventSettled EventKind = "settled"
)

// Event is one lifecycle notification.
type Event struct {
	Kind EventKind
	// Persisted is set on pageshow when the page came from the
	// back/forward cache.
	Persisted bool
}

// Page is the host the scheduler listens to: an in-process lifecycle event
// bus standing in for window/document listeners. The zero value is not
// usable; call NewPage.
type Page struct {
	mu      sync.Mutex
	visible bool
	subs    map[int]func(Event)
	nextID  int
}

// NewPage returns a visible page with no listeners.
func NewPage() *Page {
	return &Page{visible: true, subs: make(map[int]func(Event))}
}

// Subscribe adds a listener and returns the function removing it. The
// returned function is safe to call more than once.
func (p *Page) Subscribe(fn func(Event)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Emit delivers ev to every listener, in subscription order, on the calling
// goroutine.
func (p *Page) Emit(ev Event) {
	p.mu.Lock()
	switch ev.Kind {
	case EventVisible:
		p.visible = true
	case EventHidden:
		p.visible = false
	case EventPageShow:
		p.visible = true
	}
	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, p.subs[id])
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Visible reports the document visibility.
func (p *Page) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

// Listeners returns the number of subscribed listeners.
func (p *Page) Listeners() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}
