package service

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// memStore is an in-memory Transactor.  Each unit of work mutates a copy of
// the data that replaces the committed state only when fn returns nil, and
// the unique keys of the MySQL schema are enforced on write.
type memStore struct {
	mu         sync.Mutex
	data       *memData
	historyErr error
}

type memData struct {
	movies   map[string]model.Movie
	sessions map[string]model.Session
	tickets  map[string]model.Ticket
	users    map[string]model.User
	history  []model.WatchHistory
}

func newMemStore() *memStore {
	return &memStore{data: &memData{
		movies:   map[string]model.Movie{},
		sessions: map[string]model.Session{},
		tickets:  map[string]model.Ticket{},
		users:    map[string]model.User{},
	}}
}

func (d *memData) clone() *memData {
	cp := &memData{
		movies:   make(map[string]model.Movie, len(d.movies)),
		sessions: make(map[string]model.Session, len(d.sessions)),
		tickets:  make(map[string]model.Ticket, len(d.tickets)),
		users:    make(map[string]model.User, len(d.users)),
		history:  append([]model.WatchHistory(nil), d.history...),
	}
	for k, v := range d.movies {
		cp.movies[k] = v
	}
	for k, v := range d.sessions {
		cp.sessions[k] = v
	}
	for k, v := range d.tickets {
		cp.tickets[k] = v
	}
	for k, v := range d.users {
		cp.users[k] = v
	}
	return cp
}

func (s *memStore) WithinTx(_ context.Context, fn func(uow repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(memUnitOfWork{d: work, historyErr: s.historyErr}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// snapshot returns the committed state.
func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

func (s *memStore) seedUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[u.ID] = u
}

func (s *memStore) seedMovie(m model.Movie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.movies[m.ID] = m
}

func (s *memStore) seedSession(sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sessions[sess.ID] = sess
}

type memUnitOfWork struct {
	d          *memData
	historyErr error
}

func (u memUnitOfWork) Sessions() repository.SessionRepository { return memSessions{u.d} }
func (u memUnitOfWork) Tickets() repository.TicketRepository   { return memTickets{u.d} }
func (u memUnitOfWork) Movies() repository.MovieRepository     { return memMovies{u.d} }
func (u memUnitOfWork) WatchHistory() repository.WatchHistoryRepository {
	return memHistory{d: u.d, err: u.historyErr}
}

type memSessions struct{ d *memData }

func (r memSessions) clash(s *model.Session) bool {
	for id, o := range r.d.sessions {
		if id != s.ID && o.Date.Equal(s.Date) && o.TimeSlot == s.TimeSlot && o.RoomNumber == s.RoomNumber {
			return true
		}
	}
	return false
}

func (r memSessions) Create(_ context.Context, s *model.Session) error {
	if r.clash(s) {
		return repository.ErrDuplicate
	}
	r.d.sessions[s.ID] = *s
	return nil
}

func (r memSessions) Update(_ context.Context, s *model.Session) error {
	if _, ok := r.d.sessions[s.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.clash(s) {
		return repository.ErrDuplicate
	}
	r.d.sessions[s.ID] = *s
	return nil
}

func (r memSessions) GetByID(_ context.Context, id string) (*model.Session, error) {
	s, ok := r.d.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r memSessions) GetWithMovie(ctx context.Context, id string) (*model.Session, error) {
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m, ok := r.d.movies[s.MovieID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Movie = &m
	return s, nil
}

func (r memSessions) FindBySlot(_ context.Context, date time.Time, slot model.TimeSlot, room int, excludeID string) (*model.Session, error) {
	for id, s := range r.d.sessions {
		if id != excludeID && s.Date.Equal(date) && s.TimeSlot == slot && s.RoomNumber == room {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memSessions) DeleteByMovie(_ context.Context, movieID string) (int64, error) {
	var n int64
	for id, s := range r.d.sessions {
		if s.MovieID != movieID {
			continue
		}
		delete(r.d.sessions, id)
		n++
		for tid, t := range r.d.tickets {
			if t.SessionID == id {
				delete(r.d.tickets, tid)
			}
		}
	}
	return n, nil
}

type memTickets struct{ d *memData }

func (r memTickets) Create(_ context.Context, t *model.Ticket) error {
	for _, o := range r.d.tickets {
		if o.UserID == t.UserID && o.SessionID == t.SessionID {
			return repository.ErrDuplicate
		}
	}
	r.d.tickets[t.ID] = *t
	return nil
}

func (r memTickets) GetWithRelations(ctx context.Context, id string) (*model.Ticket, error) {
	t, ok := r.d.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u, ok := r.d.users[t.UserID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s, err := memSessions{r.d}.GetWithMovie(ctx, t.SessionID)
	if err != nil {
		return nil, err
	}
	t.User = &u
	t.Session = s
	return &t, nil
}

func (r memTickets) MarkUsed(_ context.Context, id string) error {
	t, ok := r.d.tickets[id]
	if !ok || t.Used {
		return repository.ErrNoChange
	}
	t.Used = true
	r.d.tickets[id] = t
	return nil
}

type memMovies struct{ d *memData }

func (r memMovies) Create(_ context.Context, m *model.Movie) error {
	for _, o := range r.d.movies {
		if o.Name == m.Name {
			return repository.ErrDuplicate
		}
	}
	r.d.movies[m.ID] = *m
	return nil
}

func (r memMovies) GetByID(_ context.Context, id string) (*model.Movie, error) {
	m, ok := r.d.movies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &m, nil
}

func (r memMovies) GetByName(_ context.Context, name string) (*model.Movie, error) {
	for _, m := range r.d.movies {
		if m.Name == name {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memMovies) Update(_ context.Context, m *model.Movie) error {
	cur, ok := r.d.movies[m.ID]
	if !ok {
		return repository.ErrNotFound
	}
	for id, o := range r.d.movies {
		if id != m.ID && o.Name == m.Name {
			return repository.ErrDuplicate
		}
	}
	cur.Name, cur.AgeRestriction = m.Name, m.AgeRestriction
	r.d.movies[m.ID] = cur
	*m = cur
	return nil
}

func (r memMovies) UpdateStatus(_ context.Context, id string, status model.MovieStatus) error {
	m, ok := r.d.movies[id]
	if !ok {
		return repository.ErrNotFound
	}
	m.Status = status
	r.d.movies[id] = m
	return nil
}

type memHistory struct {
	d   *memData
	err error
}

func (r memHistory) Create(_ context.Context, h *model.WatchHistory) error {
	if r.err != nil {
		return r.err
	}
	r.d.history = append(r.d.history, *h)
	return nil
}

func (r memHistory) ListByUser(_ context.Context, userID string) ([]model.WatchHistory, error) {
	out := []model.WatchHistory{}
	for i := len(r.d.history) - 1; i >= 0; i-- {
		h := r.d.history[i]
		if h.UserID != userID {
			continue
		}
		if m, ok := r.d.movies[h.MovieID]; ok {
			h.Movie = &m
		}
		out = append(out, h)
	}
	return out, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	err    error
	events []publishedEvent
}

type publishedEvent struct {
	routingKey string
	payload    any
	retry      int
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, payload any, retryCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{routingKey, payload, retryCount})
	return nil
}
