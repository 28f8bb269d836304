package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/apperr"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

var (
	showDay   = time.Date(2025, 1, 21, 0, 0, 0, 0, time.UTC)
	dayBefore = func() time.Time { return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) }
)

type fixture struct {
	store     *memStore
	publisher *recordingPublisher
	tickets   *TicketService
	sessions  *SessionService
	movies    *MovieService
	movie     model.Movie
	session   model.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	movie := model.Movie{ID: "movie-1", Name: "Dune", AgeRestriction: 16, Status: model.MovieActive}
	session := model.Session{ID: "session-1", MovieID: movie.ID, Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 5}
	store.seedMovie(movie)
	store.seedSession(session)
	store.seedUser(model.User{ID: "adult", Age: 17, Email: "adult@example.com"})
	store.seedUser(model.User{ID: "teen", Age: 15, Email: "teen@example.com"})
	store.seedUser(model.User{ID: "sixteen", Age: 16})

	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		publisher: pub,
		tickets:   NewTicketService(store, pub).WithClock(dayBefore),
		sessions:  NewSessionService(store),
		movies:    NewMovieService(store),
		movie:     movie,
		session:   session,
	}
}

func user(id string, age int) *model.User { return &model.User{ID: id, Age: age} }

func TestSessionConflictOnSameTriple(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 5})
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)

	created, err := f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 6})
	require.NoError(t, err)
	assert.Equal(t, 6, created.RoomNumber)
	assert.Len(t, f.store.snapshot().sessions, 2)
}

func TestSessionCreateNormalizesDate(t *testing.T) {
	f := newFixture(t)
	// same calendar day, different time of day
	_, err := f.sessions.Create(context.Background(), f.movie.ID,
		SessionInput{Date: showDay.Add(9 * time.Hour), TimeSlot: model.Slot14To16, RoomNumber: 5})
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)
}

func TestSessionCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Create(ctx, "missing", SessionInput{Date: showDay, TimeSlot: model.Slot08To10, RoomNumber: 1})
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)

	_, err = f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: "09:00-11:00", RoomNumber: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	_, err = f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: model.Slot08To10, RoomNumber: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestSessionUpdateExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := 5
	slot := model.Slot14To16

	updated, err := f.sessions.Update(ctx, f.session.ID, SessionPatch{RoomNumber: &room, TimeSlot: &slot})
	require.NoError(t, err)
	assert.Equal(t, f.session.ID, updated.ID)

	other, err := f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: model.Slot16To18, RoomNumber: 5})
	require.NoError(t, err)

	// moving the new session onto the existing one's slot must fail
	_, err = f.sessions.Update(ctx, other.ID, SessionPatch{TimeSlot: &slot})
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)
	assert.Equal(t, model.Slot16To18, f.store.snapshot().sessions[other.ID].TimeSlot)

	_, err = f.sessions.Update(ctx, "missing", SessionPatch{})
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)
}

func TestPurchaseAgeRestriction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Purchase(ctx, user("teen", 15), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrUserNotOldEnough)

	_, err = f.tickets.Purchase(ctx, user("sixteen", 16), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrUserNotOldEnough, "equal age is not enough")

	ticket, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)
	assert.False(t, ticket.Used)
	assert.Len(t, f.store.snapshot().tickets, 1)
}

func TestPurchaseCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := NewTicketService(f.store, f.publisher).WithClock(func() time.Time { return showDay.Add(48 * time.Hour) })
	inactive := f.movie
	inactive.Status = model.MovieInactive
	f.store.seedMovie(inactive)

	// inactive movie wins over age and time checks
	_, err := late.Purchase(ctx, user("teen", 15), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrMovieNotActive)

	f.store.seedMovie(f.movie)
	// age wins over time
	_, err = late.Purchase(ctx, user("teen", 15), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrUserNotOldEnough)

	_, err = late.Purchase(ctx, user("adult", 17), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyPassed)
	assert.Empty(t, f.store.snapshot().tickets)
	assert.Empty(t, f.publisher.events)
}

func TestPurchaseSessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.Purchase(context.Background(), user("adult", 17), "missing")
	assert.ErrorIs(t, err, apperr.ErrSessionNotFound)
}

func TestPurchaseTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)
	_, err = f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrTicketAlreadyExists)
	assert.Len(t, f.store.snapshot().tickets, 1)
	assert.Len(t, f.publisher.events, 1)
}

func TestConcurrentPurchasesIssueOneTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.store.snapshot().tickets, 1)
}

func TestPurchasePublishesAfterCommit(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.Purchase(context.Background(), user("adult", 17), f.session.ID)
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, queue.RoutingKeyBuyTicket, ev.routingKey)
	assert.Equal(t, 0, ev.retry)
	assert.Equal(t, queue.TicketPurchasedEvent{UserID: "adult", TicketID: ticket.ID}, ev.payload)
}

func TestPurchaseSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker unreachable")

	ticket, err := f.tickets.Purchase(context.Background(), user("adult", 17), f.session.ID)
	require.NoError(t, err)
	assert.Contains(t, f.store.snapshot().tickets, ticket.ID)
}

func TestRedeemTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adult := user("adult", 17)

	ticket, err := f.tickets.Purchase(ctx, adult, f.session.ID)
	require.NoError(t, err)

	redeemed, err := f.tickets.Redeem(ctx, adult, ticket.ID)
	require.NoError(t, err)
	assert.True(t, redeemed.Used)

	_, err = f.tickets.Redeem(ctx, adult, ticket.ID)
	assert.ErrorIs(t, err, apperr.ErrTicketAlreadyUsed)

	snap := f.store.snapshot()
	assert.True(t, snap.tickets[ticket.ID].Used)
	require.Len(t, snap.history, 1)
	assert.Equal(t, "adult", snap.history[0].UserID)
	assert.Equal(t, f.movie.ID, snap.history[0].MovieID)
}

func TestRedeemChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)

	_, err = f.tickets.Redeem(ctx, user("teen", 15), ticket.ID)
	assert.ErrorIs(t, err, apperr.ErrTicketDoesNotBelongToUser)

	_, err = f.tickets.Redeem(ctx, user("adult", 17), "missing")
	assert.ErrorIs(t, err, apperr.ErrTicketNotFound)

	late := NewTicketService(f.store, f.publisher).WithClock(func() time.Time { return showDay.Add(15 * time.Hour) })
	_, err = late.Redeem(ctx, user("adult", 17), ticket.ID)
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyPassed)

	snap := f.store.snapshot()
	assert.False(t, snap.tickets[ticket.ID].Used)
	assert.Empty(t, snap.history)
}

func TestRedeemIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)

	f.store.historyErr = errors.New("insert failed")
	_, err = f.tickets.Redeem(ctx, user("adult", 17), ticket.ID)
	require.Error(t, err)

	snap := f.store.snapshot()
	assert.False(t, snap.tickets[ticket.ID].Used, "used flag must roll back with the history insert")
	assert.Empty(t, snap.history)
}

func TestGetTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)

	got, err := f.tickets.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "adult@example.com", got.User.Email)
	assert.Equal(t, "Dune", got.Session.Movie.Name)

	_, err = f.tickets.GetTicket(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrTicketNotFound)
}

func TestMovieCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.movies.Create(ctx, MovieInput{
		Name:           "Arrival",
		AgeRestriction: 12,
		Sessions: []SessionInput{
			{Date: showDay, TimeSlot: model.Slot18To20, RoomNumber: 1},
			{Date: showDay, TimeSlot: model.Slot20To22, RoomNumber: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, model.MovieActive, m.Status)
	assert.Len(t, m.Sessions, 2)

	_, err = f.movies.Create(ctx, MovieInput{Name: "Arrival"})
	assert.ErrorIs(t, err, apperr.ErrMovieAlreadyExists)

	_, err = f.movies.Create(ctx, MovieInput{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)
}

func TestMovieCreateRollsBackOnSessionConflict(t *testing.T) {
	f := newFixture(t)

	_, err := f.movies.Create(context.Background(), MovieInput{
		Name: "Tenet",
		Sessions: []SessionInput{
			{Date: showDay, TimeSlot: model.Slot10To12, RoomNumber: 5},
			{Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 5},
		},
	})
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)

	snap := f.store.snapshot()
	assert.Len(t, snap.movies, 1)
	assert.Len(t, snap.sessions, 1)
}

func TestMovieSoftDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)

	removed, err := f.movies.SoftDelete(ctx, f.movie.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	snap := f.store.snapshot()
	assert.Equal(t, model.MovieInactive, snap.movies[f.movie.ID].Status)
	assert.Empty(t, snap.sessions)
	assert.Empty(t, snap.tickets)

	_, err = f.sessions.Create(ctx, f.movie.ID, SessionInput{Date: showDay, TimeSlot: model.Slot08To10, RoomNumber: 1})
	assert.ErrorIs(t, err, apperr.ErrMovieNotActive)

	_, err = f.movies.SoftDelete(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)
}

func TestSessionUpdateRequiresActiveMovie(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.seedMovie(model.Movie{ID: "retired", Name: "Alien", Status: model.MovieInactive})
	f.store.seedSession(model.Session{ID: "old", MovieID: "retired", Date: showDay, TimeSlot: model.Slot08To10, RoomNumber: 2})
	f.store.seedSession(model.Session{ID: "orphan", MovieID: "gone", Date: showDay, TimeSlot: model.Slot10To12, RoomNumber: 2})
	room := 3

	_, err := f.sessions.Update(ctx, "old", SessionPatch{RoomNumber: &room})
	assert.ErrorIs(t, err, apperr.ErrMovieNotActive)
	assert.Equal(t, 2, f.store.snapshot().sessions["old"].RoomNumber)

	_, err = f.sessions.Update(ctx, "orphan", SessionPatch{RoomNumber: &room})
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)
}

func TestPurchaseUsesCinemaTimeZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 22:00 UTC the evening before is already the show day in UTC+3.
	evening := func() time.Time { return showDay.Add(-2 * time.Hour) }

	local := NewTicketService(f.store, f.publisher).WithClock(evening).WithLocation(time.FixedZone("UTC+3", 3*60*60))
	_, err := local.Purchase(ctx, user("adult", 17), f.session.ID)
	assert.ErrorIs(t, err, apperr.ErrSessionAlreadyPassed)

	utc := NewTicketService(f.store, f.publisher).WithClock(evening)
	_, err = utc.Purchase(ctx, user("adult", 17), f.session.ID)
	assert.NoError(t, err)
}

func TestMovieUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	name, age := "  Dune: Part Two ", 13

	m, err := f.movies.Update(ctx, f.movie.ID, MoviePatch{
		Name:           &name,
		AgeRestriction: &age,
		Sessions:       []SessionInput{{Date: showDay, TimeSlot: model.Slot20To22, RoomNumber: 5}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dune: Part Two", m.Name)
	assert.Equal(t, 13, m.AgeRestriction)
	require.Len(t, m.Sessions, 1)

	snap := f.store.snapshot()
	assert.Equal(t, "Dune: Part Two", snap.movies[f.movie.ID].Name)
	assert.Len(t, snap.sessions, 2)
}

func TestMovieUpdateRollsBackOnSessionConflict(t *testing.T) {
	f := newFixture(t)
	age := 18

	_, err := f.movies.Update(context.Background(), f.movie.ID, MoviePatch{
		AgeRestriction: &age,
		Sessions:       []SessionInput{{Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 5}},
	})
	assert.ErrorIs(t, err, apperr.ErrSessionConflict)
	assert.Equal(t, 16, f.store.snapshot().movies[f.movie.ID].AgeRestriction)
}

func TestMovieUpdateChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.seedMovie(model.Movie{ID: "other", Name: "Arrival", Status: model.MovieActive})
	f.store.seedMovie(model.Movie{ID: "retired", Name: "Alien", Status: model.MovieInactive})
	taken, same, negative := "Arrival", "Dune", -1

	_, err := f.movies.Update(ctx, f.movie.ID, MoviePatch{Name: &taken})
	assert.ErrorIs(t, err, apperr.ErrMovieAlreadyExists)

	// keeping its own name is not a conflict
	_, err = f.movies.Update(ctx, f.movie.ID, MoviePatch{Name: &same})
	assert.NoError(t, err)

	_, err = f.movies.Update(ctx, f.movie.ID, MoviePatch{AgeRestriction: &negative})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	_, err = f.movies.Update(ctx, "retired", MoviePatch{Name: &same})
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)

	_, err = f.movies.Update(ctx, "missing", MoviePatch{})
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)
}

func TestMovieBulkCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	movies, err := f.movies.BulkCreate(ctx, []MovieInput{
		{Name: "Arrival", AgeRestriction: 12, Sessions: []SessionInput{{Date: showDay, TimeSlot: model.Slot08To10, RoomNumber: 1}}},
		{Name: "Tenet", AgeRestriction: 13},
	})
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "Arrival", movies[0].Name)
	assert.Len(t, movies[0].Sessions, 1)

	snap := f.store.snapshot()
	assert.Len(t, snap.movies, 3)
	assert.Len(t, snap.sessions, 2)
}

func TestMovieBulkCreateIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name string
		ins  []MovieInput
		want error
	}{
		{"existing name", []MovieInput{{Name: "Arrival"}, {Name: "Dune"}}, apperr.ErrMovieAlreadyExists},
		{"session conflict", []MovieInput{
			{Name: "Arrival"},
			{Name: "Tenet", Sessions: []SessionInput{{Date: showDay, TimeSlot: model.Slot14To16, RoomNumber: 5}}},
		}, apperr.ErrSessionConflict},
		{"duplicate name in batch", []MovieInput{{Name: "Arrival"}, {Name: " Arrival"}}, apperr.ErrInvalidRequest},
		{"empty batch", nil, apperr.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.movies.BulkCreate(context.Background(), tt.ins)
			assert.ErrorIs(t, err, tt.want)

			snap := f.store.snapshot()
			assert.Len(t, snap.movies, 1)
			assert.Len(t, snap.sessions, 1)
		})
	}
}

func TestMovieBulkSoftDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.seedMovie(model.Movie{ID: "other", Name: "Arrival", Status: model.MovieActive})

	_, err := f.movies.BulkSoftDelete(ctx, []string{f.movie.ID, "missing"})
	assert.ErrorIs(t, err, apperr.ErrMovieNotFound)
	snap := f.store.snapshot()
	assert.Equal(t, model.MovieActive, snap.movies[f.movie.ID].Status)
	assert.Len(t, snap.sessions, 1)

	_, err = f.movies.BulkSoftDelete(ctx, []string{"other", "other"})
	assert.ErrorIs(t, err, apperr.ErrInvalidRequest)

	deleted, err := f.movies.BulkSoftDelete(ctx, []string{f.movie.ID, "other"})
	require.NoError(t, err)
	assert.Equal(t, []DeletedMovie{
		{ID: f.movie.ID, Status: model.MovieInactive, DeletedSessions: 1},
		{ID: "other", Status: model.MovieInactive, DeletedSessions: 0},
	}, deleted)

	snap = f.store.snapshot()
	assert.Equal(t, model.MovieInactive, snap.movies["other"].Status)
	assert.Empty(t, snap.sessions)
}

func TestWatchHistoryListsRedeemedTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	history := NewWatchHistoryService(f.store)

	ticket, err := f.tickets.Purchase(ctx, user("adult", 17), f.session.ID)
	require.NoError(t, err)
	_, err = f.tickets.Redeem(ctx, user("adult", 17), ticket.ID)
	require.NoError(t, err)

	got, err := history.ListForUser(ctx, "adult")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.movie.ID, got[0].MovieID)
	require.NotNil(t, got[0].Movie)
	assert.Equal(t, "Dune", got[0].Movie.Name)

	none, err := history.ListForUser(ctx, "teen")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
