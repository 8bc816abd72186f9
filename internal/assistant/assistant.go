// Package assistant implements the interactive query assistant: a per-session
// finite state machine that collects entity, action, filter, fields, ordering,
// and limit across multiple user turns, then runs the built query.
package assistant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"crmbridge/internal/connector"
	"crmbridge/internal/lexicon"
	"crmbridge/internal/metadata"
	"crmbridge/internal/query"
)

// Step identifies the FSM state a session is waiting on.
type Step string

const (
	StepEntity  Step = "entity"
	StepAction  Step = "action"
	StepFilter  Step = "filter"
	StepFields  Step = "fields"
	StepOrderBy Step = "orderBy"
	StepLimit   Step = "limit"
	StepConfirm Step = "confirm"
)

// Session accumulates one user's query across turns. Fields fill strictly in
// step order. The per-session mutex serializes concurrent steps on the same
// session id; LastActivity is guarded by the assistant's mutex instead, so the
// expiry sweep can read it without taking every session lock.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
	Step         Step
	Entity       string
	Action       string
	Filters      query.Filters
	Fields       []string
	OrderBy      string
	Limit        int
	Completed    bool

	mu sync.Mutex
}

// StepResult is the outcome of one assistant turn. An unknown or expired
// session id yields a normal result with a not-found message, never an error.
type StepResult struct {
	Message   string      `json:"message"`
	Completed bool        `json:"completed"`
	Result    *ExecResult `json:"result,omitempty"`
}

// ExecResult carries the outcome of the executed query.
type ExecResult struct {
	Entity  string             `json:"entity"`
	Count   int                `json:"count"`
	Records []connector.Record `json:"records,omitempty"`
}

// Options configure session lifetime and query defaults.
type Options struct {
	SessionTimeout time.Duration
	SweepInterval  time.Duration
	PageSize       int
	OrderBy        string
}

// Assistant owns the session store and the expiry sweep. Construct with New
// and release with Close.
type Assistant struct {
	conn    connector.Connector
	cache   *metadata.Cache
	lex     *lexicon.Lexicon
	phrases []PhraseRule
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds an assistant and starts its background expiry sweep.
func New(conn connector.Connector, cache *metadata.Cache, lex *lexicon.Lexicon, opts Options) *Assistant {
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 30 * time.Minute
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 5 * time.Minute
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.OrderBy == "" {
		opts.OrderBy = "createdon desc"
	}

	a := &Assistant{
		conn:     conn,
		cache:    cache,
		lex:      lex,
		phrases:  DefaultPhraseRules(),
		opts:     opts,
		now:      time.Now,
		sessions: map[string]*Session{},
		done:     make(chan struct{}),
	}

	a.wg.Add(1)
	go a.sweepLoop()
	return a
}

// SetPhraseRules swaps the filter phrase bank, e.g. for another locale. Rules
// are tried in order; the first match wins.
func (a *Assistant) SetPhraseRules(rules []PhraseRule) {
	a.phrases = rules
}

// Close stops the expiry sweep. Sessions are in-memory only, so nothing else
// needs releasing.
func (a *Assistant) Close() {
	close(a.done)
	a.wg.Wait()
}

// Start creates a new session and returns its id plus the opening prompt.
func (a *Assistant) Start() (string, string) {
	now := a.now()
	session := &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		Step:         StepEntity,
		Filters:      query.Filters{},
	}

	a.mu.Lock()
	a.sessions[session.ID] = session
	a.mu.Unlock()

	return session.ID, msgAskEntity
}

// ProcessInput advances a session's state machine by one turn. LastActivity
// is updated under the assistant's mutex, the same lock Sweep reads it under.
func (a *Assistant) ProcessInput(ctx context.Context, sessionID, input string) StepResult {
	a.mu.Lock()
	session, ok := a.sessions[sessionID]
	if ok {
		session.LastActivity = a.now()
	}
	a.mu.Unlock()
	if !ok {
		return StepResult{Message: msgSessionNotFound, Completed: false}
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return a.step(ctx, session, input)
}

// EndSession removes a session. It reports whether the session existed.
func (a *Assistant) EndSession(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[sessionID]
	delete(a.sessions, sessionID)
	return ok
}

// SessionCount returns the number of live sessions.
func (a *Assistant) SessionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func (a *Assistant) sweepLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.Sweep()
		}
	}
}

// Sweep deletes sessions idle past the session timeout.
func (a *Assistant) Sweep() {
	cutoff := a.now().Add(-a.opts.SessionTimeout)

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, session := range a.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(a.sessions, id)
			slog.Debug("expired assistant session removed", slog.String("session", id))
		}
	}
}
