package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/24vibes/vibes/core/leaderboard"
	"github.com/24vibes/vibes/core/vibe"
	"github.com/24vibes/vibes/testutil"
)

func Test_leaderboardApi(t *testing.T) {
	ta := newTestApp(t, false)
	budi := getToken(t, ta.conf, testutil.CreateUser(t, ta.usrRepo, "sub-budi", budiEmail, budiID, false))
	lucia := getToken(t, ta.conf, testutil.CreateUser(t, ta.usrRepo, "sub-lucia", luciaEmail, "", false))

	now := time.Now().UTC()
	lastYear := time.Date(now.Year()-1, time.June, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		testutil.CreateVibe(t, ta.vibeRepo, budiEmail, ayuEmail, vibe.Excellence, now.Add(-time.Duration(i)*time.Minute))
	}
	testutil.CreateVibe(t, ta.vibeRepo, ayuEmail, budiEmail, vibe.Positivity, now)
	testutil.CreateVibe(t, ta.vibeRepo, ayuEmail, luciaEmail, vibe.Positivity, lastYear)

	get := func(t *testing.T, path, token string) leaderboard.Leaderboard {
		t.Helper()
		rec := ta.do(t, httpTest{method: http.MethodGet, path: path, token: token})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res leaderboard.Leaderboard
		decode(t, rec, &res)
		return res
	}

	t.Run("makers of all time", func(t *testing.T) {
		board := get(t, "/v1/leaderboard", budi)
		assert.Equal(t, leaderboard.Makers, board.Board)
		require.NotNil(t, board.MVP)
		assert.Equal(t, budiEmail, board.MVP.Email)
		assert.Equal(t, 3, board.MVP.Count)
		assert.Equal(t, "Budi Santoso", board.MVP.Name)
		require.Len(t, board.Contenders, 1)
		assert.Equal(t, ayuEmail, board.Contenders[0].Email)
		assert.Equal(t, 2, board.Contenders[0].Count)
	})

	t.Run("catchers of last year", func(t *testing.T) {
		board := get(t, fmt.Sprintf("/v1/leaderboard?board=catchers&period=year&year=%d", lastYear.Year()), budi)
		require.Len(t, board.Entries, 1)
		assert.Equal(t, luciaEmail, board.Entries[0].Email)
		assert.Equal(t, 1, board.Entries[0].Rank)
	})

	t.Run("location filter", func(t *testing.T) {
		board := get(t, "/v1/leaderboard?board=catchers&location=Lima", budi)
		require.Len(t, board.Entries, 1)
		assert.Equal(t, luciaEmail, board.Entries[0].Email)
	})

	t.Run("mine", func(t *testing.T) {
		rec := ta.do(t, httpTest{method: http.MethodGet, path: "/v1/leaderboard/me?period=month", token: budi})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var entry leaderboard.Entry
		decode(t, rec, &entry)
		assert.Equal(t, 1, entry.Rank)
		assert.Equal(t, 3, entry.Count)
		assert.Equal(t, "Vibe Rookie", entry.Level.Name)
	})

	ta.run(t, []httpTest{
		{
			name:     "mine without vibes",
			method:   http.MethodGet,
			path:     "/v1/leaderboard/me?period=month",
			token:    lucia,
			wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: leaderboard.ErrNotRanked.Error()}),
		},
		{
			name:     "invalid month",
			method:   http.MethodGet,
			path:     "/v1/leaderboard?period=month&month=13",
			token:    budi,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"month": "month must be between 1 and 12"}`),
		},
		{
			name:     "invalid year",
			method:   http.MethodGet,
			path:     "/v1/leaderboard?period=year&year=last",
			token:    budi,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"year": "year must be a number"}`),
		},
	})
}
