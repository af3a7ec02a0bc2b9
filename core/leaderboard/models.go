package leaderboard

import (
	"time"

	"github.com/24vibes/vibes/core"
)

type Board string

const (
	Makers   Board = "makers"   // grouped by sender
	Catchers Board = "catchers" // grouped by recipient
)

type Period string

const (
	AllTime Period = "all"
	Month   Period = "month"
	Year    Period = "year"
)

// AllLocations disables the location filter.
const AllLocations = "all"

// TimeFilter selects the vibes counted on a board. Month is 1-12.
type TimeFilter struct {
	Type  Period `json:"type"`
	Month int    `json:"month,omitempty"`
	Year  int    `json:"year,omitempty"`
}

// Range returns the inclusive [start, end] time range of the filter.
// An incomplete month or year filter yields an empty range at now.
func (f TimeFilter) Range(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	switch f.Type {
	case Month:
		if f.Year <= 0 || f.Month < 1 || f.Month > 12 {
			return now, now
		}
		start := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	case Year:
		if f.Year <= 0 {
			return now, now
		}
		start := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
	default:
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC), now
	}
}

type Level struct {
	Name        string `json:"name"`
	Requirement int    `json:"requirement"`
}

// Levels are sorted by requirement.
var Levels = []Level{
	{Name: "Vibe Rookie", Requirement: 1},
	{Name: "Vibe Contender", Requirement: 5},
	{Name: "Vibe Hero", Requirement: 15},
	{Name: "Vibe Connoisseur", Requirement: 30},
	{Name: "Vibe Master", Requirement: 50},
	{Name: "Vibe President", Requirement: 75},
	{Name: "Super Viber", Requirement: 100},
	{Name: "Premium Viber", Requirement: 150},
	{Name: "Vibe Champion", Requirement: 200},
	{Name: "Vibe Legend", Requirement: 300},
	{Name: "Vibe Icon", Requirement: 500},
	{Name: "Vibe God", Requirement: 1000},
	{Name: "Vibe Eternal", Requirement: 2000},
	{Name: "Vibe Universe", Requirement: 5000},
}

type (
	// Person is who an entry is about.
	Person struct {
		Email      string
		Name       string
		Avatar     string
		Department string
		Location   string
	}

	Entry struct {
		UserID     string  `json:"user_id"` // email
		Email      string  `json:"email"`
		Name       string  `json:"name"`
		Avatar     string  `json:"avatar,omitempty"`
		Department string  `json:"department,omitempty"`
		Location   string  `json:"location"`
		Count      int     `json:"count"`
		Rank       int     `json:"rank"`
		Level      Level   `json:"level"`
		NextLevel  *Level  `json:"next_level"`
		Progress   float64 `json:"progress"`
	}

	Query struct {
		Board    Board      `json:"board"`
		Filter   TimeFilter `json:"filter"`
		Location string     `json:"location"`
	}

	Leaderboard struct {
		Query
		Entries    []Entry   `json:"entries"`
		MVP        *Entry    `json:"mvp"`
		Contenders []Entry   `json:"contenders"` // ranks 2 to 11
		From       time.Time `json:"from"`
		To         time.Time `json:"to"`
	}
)

// Clean applies the defaults: makers board, all time, current month/year and every location.
func (q *Query) Clean(now time.Time) {
	if q.Board != Catchers {
		q.Board = Makers
	}
	switch q.Filter.Type {
	case Month:
		if q.Filter.Month == 0 && q.Filter.Year == 0 {
			q.Filter.Month = int(now.Month())
		}
		if q.Filter.Year == 0 {
			q.Filter.Year = now.Year()
		}
	case Year:
		q.Filter.Month = 0
		if q.Filter.Year == 0 {
			q.Filter.Year = now.Year()
		}
	default:
		q.Filter = TimeFilter{Type: AllTime}
	}
	q.Location = core.CleanString(q.Location)
	if q.Location == "" || q.Location == "All" {
		q.Location = AllLocations
	}
}
