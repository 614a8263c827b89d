package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/nccc-portal-client/internal/errors"
	"github.com/jrsteele09/nccc-portal-client/realtime"
	"github.com/rs/zerolog/log"
)

// Status lines.
const (
	StatusConnecting     = "Connecting..."
	statusCompleteFormat = "%d results found"
	statusErrorPrefix    = "Error: "
	msgConnectionLost    = "connection lost"
	msgTimedOut          = "search timed out"
	msgConnectFailed     = "unable to reach the search service"
)

var (
	// ErrEmptyQuery is returned by Submit for a blank query.
	ErrEmptyQuery = errors.Wrapf(errors.ErrInvalidInput, "search query is empty")
	// ErrInvalidTab is returned by Submit for an unknown tab.
	ErrInvalidTab = errors.Wrapf(errors.ErrInvalidInput, "unknown search tab")
	// ErrSuperseded is returned by Wait when a newer query or Clear replaced
	// the awaited session.
	ErrSuperseded = errors.New("search superseded")
)

// ChannelProvider hands out the live realtime channel. realtime.Manager is
// the production implementation.
type ChannelProvider interface {
	Connect(ctx context.Context) (*realtime.Channel, error)
}

// SessionListener observes session changes.
type SessionListener func(Session)

// Controller runs one search session at a time over the realtime channel.
// Submitting a new query supersedes the live one: the server is not told,
// it simply stops being listened to, and any late event for the old query is
// dropped by correlation id.
type Controller struct {
	channels    ChannelProvider
	idleTimeout time.Duration

	lock        sync.Mutex
	session     Session
	done        *doneSignal
	sessionChan *realtime.Channel
	consuming   map[*realtime.Channel]struct{}
	timer       *time.Timer
	rev         uint64

	// notifyLock orders listener calls by rev; notified is the last rev
	// delivered.
	notifyLock sync.Mutex
	notified   uint64

	listenerLock sync.RWMutex
	onUpdate     SessionListener
	onComplete   SessionListener
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithIdleTimeout fails a session that receives no event for d. Zero, the
// default, waits indefinitely.
func WithIdleTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.idleTimeout = d
	}
}

// NewController creates a Controller.
func NewController(channels ChannelProvider, options ...ControllerOption) (*Controller, error) {
	if channels == nil {
		return nil, errors.New("[NewController] channel provider is required")
	}
	c := &Controller{
		channels:  channels,
		session:   Session{Phase: PhaseIdle},
		done:      firedSignal(),
		consuming: make(map[*realtime.Channel]struct{}),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// OnUpdate registers a listener called after every change. Listeners see
// changes in order and never see a snapshot older than one already
// delivered. They must not call Submit or Clear.
func (c *Controller) OnUpdate(l SessionListener) {
	c.listenerLock.Lock()
	defer c.listenerLock.Unlock()
	c.onUpdate = l
}

// OnComplete registers a listener called once when a session reaches
// complete or error.
func (c *Controller) OnComplete(l SessionListener) {
	c.listenerLock.Lock()
	defer c.listenerLock.Unlock()
	c.onComplete = l
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Session {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.session.clone()
}

// Submit starts a new session for query, superseding any live one, and
// sends the query over the channel. tab defaults to "all".
func (c *Controller) Submit(ctx context.Context, query, tab string) (Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Session{}, ErrEmptyQuery
	}
	if tab == "" {
		tab = TabAll
	}
	if _, ok := validTabs[tab]; !ok {
		return Session{}, errors.Wrapf(ErrInvalidTab, "%q", tab)
	}

	id := uuid.New().String()
	c.lock.Lock()
	c.supersede()
	c.session = Session{ID: id, Query: query, Tab: tab, Phase: PhaseConnecting, Status: StatusConnecting}
	c.done = newDoneSignal()
	c.armTimer(id)
	snapshot, rev := c.session.clone(), c.nextRev()
	c.lock.Unlock()
	c.notify(rev, snapshot, false)

	ch, err := c.channels.Connect(ctx)
	if err != nil {
		c.failSession(id, nil, msgConnectFailed)
		return c.Snapshot(), errors.Wrapf(err, "[Submit] connect")
	}

	c.lock.Lock()
	if c.session.ID == id {
		c.sessionChan = ch
	}
	if _, ok := c.consuming[ch]; !ok {
		c.consuming[ch] = struct{}{}
		go c.consume(ch)
	}
	c.lock.Unlock()

	msg, err := realtime.NewMessage(realtime.EventSearch, id, realtime.SearchRequest{Query: query, Tab: tab})
	if err != nil {
		c.failSession(id, nil, msgConnectFailed)
		return c.Snapshot(), err
	}
	if err := ch.Send(ctx, msg); err != nil {
		c.failSession(id, nil, msgConnectionLost)
		return c.Snapshot(), errors.Wrapf(err, "[Submit] send query")
	}
	log.Debug().Str("query_id", id).Str("tab", tab).Msg("Search submitted")
	return snapshot, nil
}

// Wait blocks until the session live at call time reaches a terminal phase
// or is superseded, and returns the latest snapshot. ErrSuperseded is
// returned when a newer session replaced the awaited one.
func (c *Controller) Wait(ctx context.Context) (Session, error) {
	c.lock.Lock()
	id, done := c.session.ID, c.done
	c.lock.Unlock()

	select {
	case <-done.ch:
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	}
	s := c.Snapshot()
	if s.ID != id {
		return s, ErrSuperseded
	}
	return s, nil
}

// Clear abandons the live session and returns to idle.
func (c *Controller) Clear() {
	c.lock.Lock()
	c.supersede()
	c.session = Session{Phase: PhaseIdle}
	snapshot, rev := c.session.clone(), c.nextRev()
	c.lock.Unlock()
	c.notify(rev, snapshot, false)
}

// supersede releases waiters of the current session. Callers hold lock.
func (c *Controller) supersede() {
	if c.session.ID != "" && !c.session.Phase.Terminal() {
		log.Debug().Str("query_id", c.session.ID).Msg("Search superseded")
	}
	c.stopTimer()
	c.sessionChan = nil
	c.done.fire()
}

func (c *Controller) consume(ch *realtime.Channel) {
	for msg := range ch.Events() {
		c.handle(msg)
	}

	c.lock.Lock()
	delete(c.consuming, ch)
	c.lock.Unlock()
	c.failSession("", ch, msgConnectionLost)
}

func (c *Controller) handle(msg realtime.Message) {
	c.lock.Lock()
	s := &c.session
	if s.ID == "" || msg.QueryID != s.ID || s.Phase == PhaseIdle || s.Phase.Terminal() {
		c.lock.Unlock()
		log.Debug().Str("query_id", msg.QueryID).Str("type", string(msg.Type)).Msg("Dropping stale search event")
		return
	}

	if err := apply(s, msg); err != nil {
		c.lock.Unlock()
		log.Warn().Err(err).Str("query_id", msg.QueryID).Msg("Dropping unreadable search event")
		return
	}

	terminal := s.Phase.Terminal()
	if terminal {
		c.stopTimer()
	} else {
		c.armTimer(s.ID)
	}
	snapshot, done, rev := s.clone(), c.done, c.nextRev()
	c.lock.Unlock()

	c.notify(rev, snapshot, terminal)
	if terminal {
		done.fire()
	}
}

// apply mutates s for one event. Unknown event types are ignored.
func apply(s *Session, msg realtime.Message) error {
	switch msg.Type {
	case realtime.EventSearchStart:
		var p realtime.Started
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.Phase = PhaseRunning
		s.Status = p.Message
		s.Results = nil

	case realtime.EventSearchProgress:
		var p realtime.Progress
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.Status = p.Message

	case realtime.EventSearchResult:
		var p realtime.Result
		if err := msg.Decode(&p); err != nil {
			return err
		}
		var contract Contract
		if err := json.Unmarshal(p.Contract, &contract); err != nil {
			return errors.Wrapf(errors.ErrBadEnvelope, "contract record: %v", err)
		}
		s.Phase = PhaseRunning
		s.Results = append(s.Results, contract)

	case realtime.EventSearchComplete:
		var p realtime.Complete
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.Phase = PhaseComplete
		s.Total = p.Total
		s.Status = fmt.Sprintf(statusCompleteFormat, p.Total)

	case realtime.EventSearchError:
		var p realtime.Failure
		if err := msg.Decode(&p); err != nil {
			return err
		}
		s.Phase = PhaseError
		s.Status = statusErrorPrefix + p.Message
	}
	return nil
}

// failSession moves a live session to error, keeping its partial results.
// A non-empty id restricts it to that session; a non-nil ch restricts it to
// the session sent over ch.
func (c *Controller) failSession(id string, ch *realtime.Channel, reason string) {
	c.lock.Lock()
	s := &c.session
	if s.ID == "" || s.Phase.Terminal() || (id != "" && s.ID != id) || (ch != nil && c.sessionChan != ch) {
		c.lock.Unlock()
		return
	}
	s.Phase = PhaseError
	s.Status = statusErrorPrefix + reason
	c.stopTimer()
	snapshot, done, rev := s.clone(), c.done, c.nextRev()
	c.lock.Unlock()

	log.Warn().Str("query_id", snapshot.ID).Str("reason", reason).Msg("Search failed")
	c.notify(rev, snapshot, true)
	done.fire()
}

// armTimer (re)starts the idle timer for session id. Callers hold lock.
func (c *Controller) armTimer(id string) {
	if c.idleTimeout <= 0 {
		return
	}
	c.stopTimer()
	c.timer = time.AfterFunc(c.idleTimeout, func() {
		c.failSession(id, nil, msgTimedOut)
	})
}

func (c *Controller) stopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// nextRev numbers a session change. Callers hold lock.
func (c *Controller) nextRev() uint64 {
	c.rev++
	return c.rev
}

// notify delivers the change numbered rev unless a later one already went
// out, so a superseded session's snapshot never follows its successor's.
func (c *Controller) notify(rev uint64, s Session, terminal bool) {
	c.notifyLock.Lock()
	defer c.notifyLock.Unlock()
	if rev <= c.notified {
		log.Debug().Str("query_id", s.ID).Msg("Skipping out of order search update")
		return
	}
	c.notified = rev

	c.listenerLock.RLock()
	onUpdate, onComplete := c.onUpdate, c.onComplete
	c.listenerLock.RUnlock()

	if onUpdate != nil {
		onUpdate(s)
	}
	if terminal && onComplete != nil {
		onComplete(s)
	}
}

// doneSignal is closed once per session, after listeners have seen its
// terminal state, or when the session is superseded.
type doneSignal struct {
	ch   chan struct{}
	once sync.Once
}

func newDoneSignal() *doneSignal {
	return &doneSignal{ch: make(chan struct{})}
}

func firedSignal() *doneSignal {
	d := newDoneSignal()
	d.fire()
	return d
}

func (d *doneSignal) fire() {
	d.once.Do(func() { close(d.ch) })
}
