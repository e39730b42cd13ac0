// Package session keeps per-login UI state: the current screen, the form
// being edited and the last search. Each login gets its own Context.
package session

import (
	"strings"
	"sync"
	"time"

	"facility-inspect/internal/logger"
	"facility-inspect/internal/model"

	"github.com/google/uuid"
)

const sweepInterval = 5 * time.Minute

type Screen string

const (
	ScreenLogin      Screen = "login"
	ScreenHome       Screen = "home"
	ScreenSelectType Screen = "select_type"
	ScreenNewForm    Screen = "new_form"
	ScreenEdit       Screen = "edit"
	ScreenEditForm   Screen = "edit_form"
	ScreenAdmin      Screen = "admin_page"
)

type User struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

type Entry struct {
	Category string       `json:"category"`
	Item     string       `json:"item"`
	Rating   model.Rating `json:"rating"`
	Notes    string       `json:"notes"`
}

// Form is the in-progress inspection. Entries are keyed "category|item".
type Form struct {
	Type      string           `json:"type"`
	Building  string           `json:"building"`
	Date      string           `json:"date"`
	Inspector string           `json:"inspector"`
	Keys      []string         `json:"keys"`
	Entries   map[string]Entry `json:"entries"`
}

func EntryKey(category, item string) string { return category + "|" + item }

// Input turns the form into a submit request. editID is 0 for a new record.
func (f Form) Input(editID uint, aiReport string) model.InspectionInput {
	in := model.InspectionInput{
		ID:        editID,
		Building:  f.Building,
		Type:      f.Type,
		Date:      f.Date,
		Inspector: f.Inspector,
		AIReport:  aiReport,
	}
	for _, k := range f.Keys {
		e := f.Entries[k]
		in.Items = append(in.Items, model.ItemInput{Category: e.Category, Item: e.Item, Rating: e.Rating, Notes: e.Notes})
	}
	return in
}

// State is a point-in-time copy of a Context.
type State struct {
	ID            string             `json:"sid"`
	Screen        Screen             `json:"screen"`
	User          User               `json:"user"`
	EditID        uint               `json:"edit_id,omitempty"`
	NewType       string             `json:"new_type,omitempty"`
	Form          Form               `json:"form"`
	SearchResults []model.Inspection `json:"search_results,omitempty"`
	AIReport      string             `json:"ai_report,omitempty"`
	Touched       bool               `json:"touched"`
}

type Context struct {
	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Form.Keys = append([]string(nil), c.state.Form.Keys...)
	s.Form.Entries = make(map[string]Entry, len(c.state.Form.Entries))
	for k, v := range c.state.Form.Entries {
		s.Form.Entries[k] = v
	}
	s.SearchResults = append([]model.Inspection(nil), c.state.SearchResults...)
	return s
}

// Store maps session ids to contexts and drops the ones left idle.
type Store struct {
	sessions sync.Map // sid -> *Context
	ttl      time.Duration
	now      func() time.Time
	done     chan struct{}
	once     sync.Once
}

func NewStore(ttl time.Duration) *Store {
	s := &Store{ttl: ttl, now: time.Now, done: make(chan struct{})}
	go s.janitor()
	return s
}

func (s *Store) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() int {
	cutoff := s.now().Add(-s.ttl)
	dropped := 0
	s.sessions.Range(func(k, v any) bool {
		c := v.(*Context)
		c.mu.Lock()
		idle := c.lastSeen.Before(cutoff)
		c.mu.Unlock()
		if idle {
			s.sessions.Delete(k)
			dropped++
		}
		return true
	})
	if dropped > 0 {
		logger.Info("session.sweep", "dropped", dropped)
	}
	return dropped
}

// Start opens a session on the home screen.
func (s *Store) Start(u User) *Context {
	c := &Context{
		state:    State{ID: uuid.NewString(), Screen: ScreenHome, User: u},
		lastSeen: s.now(),
	}
	s.sessions.Store(c.state.ID, c)
	logger.Info("session.start", "sid", c.state.ID, "user", u.Email)
	return c
}

// Get returns the context for sid and marks it active.
func (s *Store) Get(sid string) (*Context, bool) {
	v, ok := s.sessions.Load(sid)
	if !ok {
		return nil, false
	}
	c := v.(*Context)
	c.mu.Lock()
	c.lastSeen = s.now()
	c.mu.Unlock()
	return c, true
}

func (s *Store) End(sid string) {
	if _, ok := s.sessions.LoadAndDelete(sid); ok {
		logger.Info("session.end", "sid", sid)
	}
}

// EndUser drops every session opened by email and returns how many.
func (s *Store) EndUser(email string) int {
	n := 0
	s.each(email, func(k any, _ *Context) {
		s.sessions.Delete(k)
		n++
	})
	if n > 0 {
		logger.Info("session.end_user", "user", email, "sessions", n)
	}
	return n
}

// SetAdmin updates the role held by email's open sessions. A session that
// loses the role while on the admin page is sent home.
func (s *Store) SetAdmin(email string, admin bool) int {
	n := 0
	s.each(email, func(_ any, c *Context) {
		c.mu.Lock()
		c.state.User.IsAdmin = admin
		if !admin && c.state.Screen == ScreenAdmin {
			c.state.Screen = ScreenHome
		}
		c.mu.Unlock()
		n++
	})
	return n
}

func (s *Store) each(email string, fn func(k any, c *Context)) {
	s.sessions.Range(func(k, v any) bool {
		c := v.(*Context)
		c.mu.Lock()
		match := strings.EqualFold(c.state.User.Email, email)
		c.mu.Unlock()
		if match {
			fn(k, c)
		}
		return true
	})
}

// Close stops the janitor. It is safe to call more than once.
func (s *Store) Close() {
	s.once.Do(func() { close(s.done) })
}
