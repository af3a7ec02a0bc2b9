package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/vibe"
)

const dateLayout = "2006-01-02"

// parseTime accepts RFC 3339 timestamps and plain dates.
// A plain date is read as the start of the day, or its last instant when endOfDay is set.
func parseTime(field, value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, core.NewValidationError(err, core.FieldError{
			Field: field,
			Error: field + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp",
		})
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func parseInt(field, value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, core.NewValidationError(err, core.FieldError{Field: field, Error: field + " must be a number"})
	}
	return n, nil
}

func bindVibeFilter(ctx echo.Context) (vibe.QueryFilter, error) {
	filter := vibe.QueryFilter{
		Sender:    ctx.QueryParam("sender"),
		Recipient: ctx.QueryParam("recipient"),
		Category:  vibe.Category(ctx.QueryParam("category")),
	}
	var err error
	if filter.From, err = parseTime("from", ctx.QueryParam("from"), false); err != nil {
		return vibe.QueryFilter{}, err
	}
	if filter.To, err = parseTime("to", ctx.QueryParam("to"), true); err != nil {
		return vibe.QueryFilter{}, err
	}
	filter.Clean()
	return filter, nil
}

// bindLeaderboardQuery reads `board`, `period`, `month`, `year` and `location`. Defaults are applied by the service.
func bindLeaderboardQuery(ctx echo.Context) (leaderboard.Query, error) {
	q := leaderboard.Query{
		Board:    leaderboard.Board(strings.ToLower(ctx.QueryParam("board"))),
		Filter:   leaderboard.TimeFilter{Type: leaderboard.Period(strings.ToLower(ctx.QueryParam("period")))},
		Location: ctx.QueryParam("location"),
	}
	var err error
	if q.Filter.Month, err = parseInt("month", ctx.QueryParam("month")); err != nil {
		return leaderboard.Query{}, err
	}
	if q.Filter.Month < 0 || q.Filter.Month > 12 {
		return leaderboard.Query{}, core.NewValidationError(nil, core.FieldError{Field: "month", Error: "month must be between 1 and 12"})
	}
	if q.Filter.Year, err = parseInt("year", ctx.QueryParam("year")); err != nil {
		return leaderboard.Query{}, err
	}
	if q.Filter.Year < 0 {
		return leaderboard.Query{}, core.NewValidationError(nil, core.FieldError{Field: "year", Error: "year must be positive"})
	}
	return q, nil
}
