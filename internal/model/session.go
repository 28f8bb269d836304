package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeSlot is one of the fixed clock ranges a session can be scheduled in.
type TimeSlot string

const (
	Slot08To10 TimeSlot = "08:00-10:00"
	Slot10To12 TimeSlot = "10:00-12:00"
	Slot12To14 TimeSlot = "12:00-14:00"
	Slot14To16 TimeSlot = "14:00-16:00"
	Slot16To18 TimeSlot = "16:00-18:00"
	Slot18To20 TimeSlot = "18:00-20:00"
	Slot20To22 TimeSlot = "20:00-22:00"
	Slot22To00 TimeSlot = "22:00-00:00"
)

// TimeSlots lists every valid slot in chronological order.
var TimeSlots = []TimeSlot{
	Slot08To10, Slot10To12, Slot12To14, Slot14To16,
	Slot16To18, Slot18To20, Slot20To22, Slot22To00,
}

// Valid reports whether s belongs to the closed slot enumeration.
func (s TimeSlot) Valid() bool {
	for _, v := range TimeSlots {
		if v == s {
			return true
		}
	}
	return false
}

// Start returns the wall-clock start of the slot on the calendar day of
// date, in date's location. The hour and minute are parsed from the part of
// the label before the dash.
func (s TimeSlot) Start(date time.Time) (time.Time, error) {
	start, _, ok := strings.Cut(string(s), "-")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed time slot %q", s)
	}
	hh, mm, ok := strings.Cut(start, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("malformed time slot %q", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("malformed start hour in time slot %q", s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("malformed start minute in time slot %q", s)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, date.Location()), nil
}

// Session is a scheduled screening of a movie in a room. The triple
// (Date, TimeSlot, RoomNumber) is unique across all sessions.
//
// Fields:
//  ID         – UUID primary key.
//  MovieID    – owning movie.
//  Movie      – owning movie, populated only when loaded eagerly.
//  Date       – calendar day of the screening (midnight UTC).
//  TimeSlot   – clock range of the screening.
//  RoomNumber – positive room number.
type Session struct {
	ID         string    `json:"id"`
	MovieID    string    `json:"movie_id"`
	Movie      *Movie    `json:"movie,omitempty"`
	Date       time.Time `json:"date"`
	TimeSlot   TimeSlot  `json:"time_slot"`
	RoomNumber int       `json:"room_number"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SessionDate truncates t to its calendar day in UTC. Session dates are
// always stored in this form so the uniqueness triple compares days.
func SessionDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day returns the calendar day of the session as midnight in loc.  A nil
// loc means UTC.
func (s *Session) Day(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := s.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// HasPassed reports whether the session can no longer be attended at now.
// The session's day and slot are read as wall-clock time in loc, the time
// zone of the cinema.  A session has passed when now is after the start of
// its day, or when now is after the start of its time slot on that day.
// Both checks are evaluated.
func (s *Session) HasPassed(now time.Time, loc *time.Location) (bool, error) {
	day := s.Day(loc)
	start, err := s.TimeSlot.Start(day)
	if err != nil {
		return false, err
	}
	return now.After(day) || now.After(start), nil
}
