package refresh

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/jvetere1999/passion-os-sub013/internal/session"
	"github.com/jvetere1999/passion-os-sub013/pkg/types"
)

// KeyPrefix prefixes persisted staleness timestamps: refresh_<refreshKey>.
const KeyPrefix = "refresh_"

// Decision outcomes reported to the Observer.
const (
	OutcomeFired     = "fired"
	OutcomeFresh     = "fresh"
	OutcomeUnloading = "unloading"
	OutcomeDisabled  = "disabled"
	OutcomeHidden    = "hidden"
)

// State is the scheduler state of one registration.
type State int

const (
	Idle State = iota
	Refreshing
	Unloading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case Unloading:
		return "unloading"
	default:
		return "unknown"
	}
}

// Observer receives scheduler decisions.
type Observer interface {
	// RecordDecision is called for every trigger that reached a decision.
	RecordDecision(trigger, outcome string)
	// RecordRefresh is called when a refresh callback returns.
	RecordRefresh(duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) RecordDecision(string, string)      {}
func (nopObserver) RecordRefresh(time.Duration, error) {}

// Options configures a registration.
type Options struct {
	// OnRefresh re-fetches the caller's data. It runs on its own goroutine;
	// errors are logged and never retried.
	OnRefresh func(ctx context.Context) error

	// RefreshKey persists the last fetch time under refresh_<key> in
	// Storage. Empty keeps it in memory only.
	RefreshKey string
	Storage    session.Storage

	// Staleness is the minimum age before a trigger is honored.
	Staleness time.Duration

	RefreshOnMount   bool
	RefetchOnFocus   bool
	RefetchOnVisible bool

	// PollingInterval enables a fixed re-check. Zero disables polling.
	PollingInterval        time.Duration
	PausePollingWhenHidden bool

	// Enabled false yields an inert registration.
	Enabled bool

	Clock    func() time.Time
	Logger   *slog.Logger
	Observer Observer
}

// action handles one event in one state and returns the next state.
type action func(r *Registration, ev Event) State

// transitions is the complete scheduler state machine. Events without an
// entry for the current state are ignored. Built in init because the actions
// dispatch back into the table.
var transitions map[State]map[EventKind]action

func init() {
	transitions = map[State]map[EventKind]action{
		Idle: {
			eventMount:        (*Registration).onMount,
			EventFocus:        (*Registration).onFocus,
			EventVisible:      (*Registration).onVisible,
			eventPoll:         (*Registration).onPoll,
			EventPageHide:     (*Registration).onUnload,
			EventBeforeUnload: (*Registration).onUnload,
		},
		Refreshing: {
			EventFocus:        (*Registration).onFocus,
			EventVisible:      (*Registration).onVisible,
			eventPoll:         (*Registration).onPoll,
			eventSettled:      (*Registration).onSettled,
			EventPageHide:     (*Registration).onUnload,
			EventBeforeUnload: (*Registration).onUnload,
		},
		Unloading: {
			EventFocus:    (*Registration).onBlocked,
			EventVisible:  (*Registration).onBlocked,
			eventPoll:     (*Registration).onBlocked,
			eventSettled:  (*Registration).onSettled,
			EventPageShow: (*Registration).onPageShow,
		},
	}
}

// Registration is one caller's refresh schedule.
type Registration struct {
	opts     Options
	page     *Page
	clock    func() time.Time
	logger   *slog.Logger
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	unsubscribe func()
	stopPoll    chan struct{}
	pollDone    chan struct{}

	mu        sync.Mutex
	state     State
	lastFetch time.Time
	inflight  int
	closed    bool
}

// Register starts scheduling refreshes for opts against page. The mount
// check runs before Register returns. Close must be called to release the
// listeners and the polling goroutine.
func Register(page *Page, opts Options) *Registration {
	r := &Registration{
		opts:     opts,
		page:     page,
		clock:    opts.Clock,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	if opts.RefreshKey != "" {
		r.logger = r.logger.With("refresh_key", opts.RefreshKey)
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())

	if !opts.Enabled || opts.OnRefresh == nil || page == nil {
		if opts.Enabled {
			r.logger.Warn("refresh registration has no callback or page, staying inert")
		}
		return r
	}

	r.unsubscribe = page.Subscribe(r.dispatch)
	r.dispatch(Event{Kind: eventMount})

	if opts.PollingInterval > 0 {
		r.stopPoll = make(chan struct{})
		r.pollDone = make(chan struct{})
		go r.poll(opts.PollingInterval)
	}
	return r
}

// poll feeds ticks into the state machine until Close.
func (r *Registration) poll(interval time.Duration) {
	defer close(r.pollDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopPoll:
			return
		case <-ticker.C:
			r.dispatch(Event{Kind: eventPoll})
		}
	}
}

// dispatch runs one event through the transition table. Events are
// serialized per registration.
func (r *Registration) dispatch(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	act, ok := transitions[r.state][ev.Kind]
	if !ok {
		return
	}
	next := act(r, ev)
	if next != r.state {
		r.logger.Debug("refresh state changed", "from", r.state, "to", next, "event", ev.Kind)
	}
	r.state = next
}

func (r *Registration) onMount(ev Event) State {
	now := r.clock()
	persisted, ok := r.loadPersisted()
	switch {
	case !ok:
		// The caller's own initial fetch counts as the first refresh.
		r.lastFetch = now
		r.persist(now)
		r.observer.RecordDecision(string(ev.Kind), OutcomeFresh)
	case r.isStale(persisted, now):
		r.lastFetch = persisted
		if !r.opts.RefreshOnMount {
			r.observer.RecordDecision(string(ev.Kind), OutcomeDisabled)
			return r.activeState()
		}
		return r.fire(ev.Kind, now)
	default:
		r.lastFetch = persisted
		r.observer.RecordDecision(string(ev.Kind), OutcomeFresh)
	}
	return r.activeState()
}

func (r *Registration) onFocus(ev Event) State {
	return r.trigger(ev.Kind, r.opts.RefetchOnFocus)
}

func (r *Registration) onVisible(ev Event) State {
	return r.trigger(ev.Kind, r.opts.RefetchOnVisible)
}

func (r *Registration) onPoll(ev Event) State {
	if r.opts.PausePollingWhenHidden && !r.page.Visible() {
		r.observer.RecordDecision(string(ev.Kind), OutcomeHidden)
		return r.activeState()
	}
	return r.trigger(ev.Kind, true)
}

func (r *Registration) onUnload(ev Event) State {
	r.logger.Debug("page unloading, refresh triggers suspended", "event", ev.Kind)
	return Unloading
}

func (r *Registration) onBlocked(ev Event) State {
	r.observer.RecordDecision(string(ev.Kind), OutcomeUnloading)
	return Unloading
}

// onPageShow leaves Unloading only for a back/forward cache restore, which is
// treated like a fresh mount.
func (r *Registration) onPageShow(ev Event) State {
	if !ev.Persisted {
		return Unloading
	}
	now := r.clock()
	if persisted, ok := r.loadPersisted(); ok && persisted.After(r.lastFetch) {
		r.lastFetch = persisted
	}
	if !r.opts.RefreshOnMount {
		r.observer.RecordDecision(string(ev.Kind), OutcomeDisabled)
		return r.activeState()
	}
	if !r.isStale(r.lastFetch, now) {
		r.observer.RecordDecision(string(ev.Kind), OutcomeFresh)
		return r.activeState()
	}
	return r.fire(ev.Kind, now)
}

func (r *Registration) onSettled(Event) State {
	r.inflight--
	if r.state == Unloading {
		return Unloading
	}
	return r.activeState()
}

// trigger fires a refresh when enabled and stale.
func (r *Registration) trigger(kind EventKind, enabled bool) State {
	if !enabled {
		r.observer.RecordDecision(string(kind), OutcomeDisabled)
		return r.activeState()
	}
	now := r.clock()
	if !r.isStale(r.lastFetch, now) {
		r.observer.RecordDecision(string(kind), OutcomeFresh)
		return r.activeState()
	}
	return r.fire(kind, now)
}

// fire records the fetch time optimistically and starts the callback.
func (r *Registration) fire(kind EventKind, now time.Time) State {
	r.lastFetch = now
	r.persist(now)
	r.inflight++
	r.observer.RecordDecision(string(kind), OutcomeFired)
	r.logger.Debug("refresh fired", "trigger", kind)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start := time.Now()
		err := r.opts.OnRefresh(r.ctx)
		r.observer.RecordRefresh(time.Since(start), err)
		if err != nil {
			r.logger.Warn("refresh failed", "trigger", kind, "error", err)
		}
		r.dispatch(Event{Kind: eventSettled})
	}()
	return Refreshing
}

func (r *Registration) activeState() State {
	if r.inflight > 0 {
		return Refreshing
	}
	return Idle
}

// isStale reports whether more than the staleness window has passed since
// last. A zero last is always stale.
func (r *Registration) isStale(last, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > r.opts.Staleness
}

func (r *Registration) storageKey() string {
	return KeyPrefix + r.opts.RefreshKey
}

func (r *Registration) loadPersisted() (time.Time, bool) {
	if r.opts.RefreshKey == "" || r.opts.Storage == nil {
		return time.Time{}, false
	}
	raw, ok, err := r.opts.Storage.Get(r.ctx, r.storageKey())
	if err != nil {
		r.logger.Warn("failed to read refresh timestamp", "error", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		r.logger.Warn("ignoring corrupt refresh timestamp", "value", raw)
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (r *Registration) persist(t time.Time) {
	if r.opts.RefreshKey == "" || r.opts.Storage == nil {
		return
	}
	if err := MarkFetched(r.ctx, r.opts.Storage, r.opts.RefreshKey, t); err != nil {
		r.logger.Warn("failed to persist refresh timestamp", "error", err)
	}
}

// MarkFetched persists t as the last fetch time of refreshKey. Callers that
// load their data before Register use it so the mount check sees that load.
func MarkFetched(ctx context.Context, storage session.Storage, refreshKey string, t time.Time) error {
	return storage.Set(ctx, KeyPrefix+refreshKey, strconv.FormatInt(t.UnixMilli(), 10))
}

// Invalidate forgets the last fetch time so the next enabled trigger
// refreshes regardless of the staleness window.
func (r *Registration) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.lastFetch = time.Time{}
	if r.opts.RefreshKey != "" && r.opts.Storage != nil {
		if err := r.opts.Storage.Delete(r.ctx, r.storageKey()); err != nil {
			r.logger.Warn("failed to drop refresh timestamp", "error", err)
		}
	}
}

// State returns the current scheduler state.
func (r *Registration) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Snapshot returns the staleness bookkeeping of the registration.
func (r *Registration) Snapshot() types.RefreshContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc := types.RefreshContext{
		LastFetchTime: r.lastFetch,
		StalenessMs:   r.opts.Staleness.Milliseconds(),
	}
	if r.opts.RefreshKey != "" {
		rc.PersistedKey = r.storageKey()
	}
	return rc
}

// Close removes the listeners, stops polling and waits for in-flight
// callbacks. No callback starts after Close returns. Close is idempotent.
func (r *Registration) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.stopPoll != nil {
		close(r.stopPoll)
		<-r.pollDone
	}
	r.cancel()
	r.wg.Wait()
}
