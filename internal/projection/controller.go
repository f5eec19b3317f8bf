package projection

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"orbit/api/internal/store"
)

// State is the sync controller's connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateSubscribed
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// View is the rendering surface diffs are applied to. The live graph
// implements it in-process; tests use a recording fake.
type View interface {
	Apply(diff Diff)
	Focus(id string)
}

// Lister loads a full collection snapshot from the store.
type Lister interface {
	ListRecords(ctx context.Context) ([]store.KnowledgeRecord, error)
}

// Authenticator establishes the anonymous session before the subscription
// opens. May be nil when auth is not configured.
type Authenticator interface {
	SignInAnonymously(ctx context.Context) error
}

// ChangeSource delivers collection change signals.
type ChangeSource interface {
	Run(ctx context.Context)
	Events() <-chan struct{}
	Errors() <-chan error
}

// Update is pushed to listeners after every completed projection cycle.
type Update struct {
	Diff    Diff            `json:"diff"`
	Counts  []CategoryCount `json:"counts"`
	FocusID string          `json:"focusId,omitempty"`
	Total   int             `json:"total"`
}

type Listener func(Update)

// ConnectionLabel is a resolved connection shown in the detail view.
type ConnectionLabel struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// EntityDetail is the payload behind a selected entity.
type EntityDetail struct {
	ID          string            `json:"id"`
	Kind        EntityKind        `json:"kind"`
	Label       string            `json:"label"`
	Category    string            `json:"category,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Analogy     string            `json:"analogy,omitempty"`
	Role        string            `json:"role,omitempty"`
	ParentID    string            `json:"parentId,omitempty"`
	Connections []ConnectionLabel `json:"connections,omitempty"`
}

// Controller owns the projection state and is its only writer. The cache is
// replaced wholesale on every snapshot event; everything downstream
// (filter, extract, reconcile) is a pure function of that cache, so a
// superseded in-flight cycle is wasted work but never harmful.
type Controller struct {
	lister Lister
	auth   Authenticator
	source ChangeSource
	view   View

	focusRetryDelay time.Duration

	mu             sync.Mutex
	state          State
	records        []store.KnowledgeRecord
	byID           map[string]store.KnowledgeRecord
	activeCategory string
	renderedIDs    map[string]struct{}
	pendingFocusID string
	focusRetried   bool
	listeners      []Listener
}

// Option tweaks controller construction.
type Option func(*Controller)

// WithFocusRetryDelay overrides the single post-write focus retry delay.
func WithFocusRetryDelay(d time.Duration) Option {
	return func(c *Controller) { c.focusRetryDelay = d }
}

func NewController(lister Lister, auth Authenticator, source ChangeSource, view View, opts ...Option) *Controller {
	c := &Controller{
		lister:          lister,
		auth:            auth,
		source:          source,
		view:            view,
		focusRetryDelay: 1500 * time.Millisecond,
		state:           StateDisconnected,
		byID:            make(map[string]store.KnowledgeRecord),
		renderedIDs:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe registers a listener for projection updates. Not safe to call
// concurrently with delivery ordering expectations; register before Run.
func (c *Controller) Subscribe(fn Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Run drives the state machine until ctx is canceled:
// Disconnected → Authenticating → Subscribed, with Error on auth or
// subscription failure. An Error state leaves the cache stale and the rest of
// the service usable; the change source keeps reconnecting underneath.
func (c *Controller) Run(ctx context.Context) {
	c.setState(StateAuthenticating)
	if c.auth != nil {
		if err := c.auth.SignInAnonymously(ctx); err != nil {
			c.setState(StateError)
			log.Printf("projection: anonymous sign-in failed, staying offline: %v", err)
			return
		}
	}
	c.setState(StateSubscribed)

	go c.source.Run(ctx)

	if err := c.Refresh(ctx); err != nil {
		log.Printf("projection: initial snapshot failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-c.source.Events():
			if err := c.Refresh(ctx); err != nil {
				log.Printf("projection: snapshot refresh failed: %v", err)
			}
		case err := <-c.source.Errors():
			c.setState(StateError)
			log.Printf("projection: subscription error: %v", err)
		}
	}
}

// Refresh loads a full snapshot and runs one projection cycle. This is the
// only place the document cache is mutated.
func (c *Controller) Refresh(ctx context.Context) error {
	records, err := c.lister.ListRecords(ctx)
	if err != nil {
		c.setState(StateError)
		return err
	}

	c.mu.Lock()
	if c.state == StateError {
		c.state = StateSubscribed
	}
	c.records = records
	c.byID = make(map[string]store.KnowledgeRecord, len(records))
	for _, rec := range records {
		c.byID[rec.ID] = rec
	}
	update, listeners := c.projectLocked()
	c.mu.Unlock()

	emit(listeners, update)
	return nil
}

// SetFilter switches the active category predicate and re-projects. An empty
// category clears the filter.
func (c *Controller) SetFilter(category string) {
	c.mu.Lock()
	if category == AllCategory {
		category = ""
	}
	c.activeCategory = category
	update, listeners := c.projectLocked()
	c.mu.Unlock()

	emit(listeners, update)
}

// SetPendingFocus arms the one-shot post-write camera focus for the record a
// capture is about to create.
func (c *Controller) SetPendingFocus(id string) {
	c.mu.Lock()
	c.pendingFocusID = id
	c.focusRetried = false
	c.mu.Unlock()
}

// projectLocked runs one cycle: filter → extract → reconcile → apply. After
// it returns, renderedIDs equals exactly the extracted target set.
func (c *Controller) projectLocked() (Update, []Listener) {
	visible := Filter(c.records, c.activeCategory)
	visibleByID := make(map[string]store.KnowledgeRecord, len(visible))
	for _, rec := range visible {
		visibleByID[rec.ID] = rec
	}

	entities, edges := Extract(visible, visibleByID)
	diff := Reconcile(c.renderedIDs, entities, edges)

	if c.view != nil {
		c.view.Apply(diff)
	}

	rendered := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		rendered[e.ID] = struct{}{}
	}
	c.renderedIDs = rendered

	update := Update{
		Diff:   diff,
		Counts: CategoryCounts(c.records),
		Total:  len(c.records),
	}
	update.FocusID = c.consumeFocusLocked()

	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	return update, listeners
}

// consumeFocusLocked applies the pending one-shot focus if its target is now
// rendered. A target that has not appeared yet gets exactly one delayed
// retry, then the pending value is discarded rather than held forever.
func (c *Controller) consumeFocusLocked() string {
	if c.pendingFocusID == "" {
		return ""
	}
	id := c.pendingFocusID
	if _, ok := c.renderedIDs[id]; ok {
		c.pendingFocusID = ""
		c.focusRetried = false
		if c.view != nil {
			c.view.Focus(id)
		}
		return id
	}
	if c.focusRetried {
		c.pendingFocusID = ""
		c.focusRetried = false
		return ""
	}
	c.focusRetried = true
	time.AfterFunc(c.focusRetryDelay, c.retryFocus)
	return ""
}

func (c *Controller) retryFocus() {
	c.mu.Lock()
	id := c.pendingFocusID
	if id == "" {
		c.mu.Unlock()
		return
	}
	c.pendingFocusID = ""
	c.focusRetried = false
	_, present := c.renderedIDs[id]
	view := c.view
	listeners := make([]Listener, len(c.listeners))
	copy(listeners, c.listeners)
	counts := CategoryCounts(c.records)
	total := len(c.records)
	c.mu.Unlock()

	if !present {
		return
	}
	if view != nil {
		view.Focus(id)
	}
	emit(listeners, Update{Counts: counts, Total: total, FocusID: id})
}

// Snapshot returns an immutable copy of the projection state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]store.KnowledgeRecord, len(c.records))
	copy(all, c.records)
	rendered := make(map[string]struct{}, len(c.renderedIDs))
	for id := range c.renderedIDs {
		rendered[id] = struct{}{}
	}
	return Snapshot{
		Records:        Filter(c.records, c.activeCategory),
		AllRecords:     all,
		ActiveCategory: c.activeCategory,
		Counts:         CategoryCounts(c.records),
		RenderedIDs:    rendered,
		State:          c.state,
	}
}

// RecordByID looks a record up in the current cache.
func (c *Controller) RecordByID(id string) (store.KnowledgeRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.byID[id]
	return rec, ok
}

// EntityDetail resolves a selected entity into its detail payload. Primary
// entities compose summary, category, analogy and resolved connection
// labels; derived entities resolve back through their parent record.
func (c *Controller) EntityDetail(id string) (EntityDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.byID[id]; ok {
		detail := EntityDetail{
			ID:       rec.ID,
			Kind:     KindPrimary,
			Label:    rec.Word,
			Category: normalizeCategory(rec.Category),
			Summary:  rec.Summary,
			Analogy:  rec.Analogy,
		}
		for _, connID := range rec.Connections {
			if target, ok := c.byID[connID]; ok {
				detail.Connections = append(detail.Connections, ConnectionLabel{ID: target.ID, Label: target.Word})
			}
		}
		return detail, true
	}

	parentID, index, ok := parseDerivedID(id)
	if !ok {
		return EntityDetail{}, false
	}
	rec, ok := c.byID[parentID]
	if !ok || index >= len(rec.KeyPlayers) {
		return EntityDetail{}, false
	}
	player := rec.KeyPlayers[index]
	return EntityDetail{
		ID:       id,
		Kind:     KindDerived,
		Label:    player.Name,
		Role:     player.Role,
		ParentID: rec.ID,
	}, true
}

func parseDerivedID(id string) (parentID string, index int, ok bool) {
	i := strings.LastIndex(id, "_p_")
	if i <= 0 {
		return "", 0, false
	}
	index, err := strconv.Atoi(id[i+len("_p_"):])
	if err != nil || index < 0 {
		return "", 0, false
	}
	return id[:i], index, true
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	if prev != next {
		log.Printf("projection: %s -> %s", prev, next)
	}
}

func emit(listeners []Listener, update Update) {
	for _, fn := range listeners {
		fn(update)
	}
}
