package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/vibe"
)

const (
	versionKey     = "leaderboard:version"
	contendersSize = 10
)

var (
	// errors
	ErrNotRanked = errors.New("no vibes on this leaderboard yet")
)

type (
	VibeSource interface {
		Query(ctx context.Context, filter vibe.QueryFilter) ([]vibe.Vibe, error)
	}

	PeopleSource interface {
		List(ctx context.Context) ([]colleague.Colleague, error)
	}

	// Service computes leaderboards and caches them until the next vibe is sent
	// or colleague details change.
	Service struct {
		vibes  VibeSource
		people PeopleSource
		cache  core.Cache
		ttl    time.Duration
		logger core.Logger
		now    func() time.Time
	}
)

var (
	_ vibe.Listener      = (*Service)(nil)
	_ colleague.Listener = (*Service)(nil)
)

func NewService(vibes VibeSource, people PeopleSource, cache core.Cache, ttl time.Duration, logger core.Logger) *Service {
	return &Service{
		vibes:  vibes,
		people: people,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (svc *Service) version(ctx context.Context) int64 {
	var version int64
	if _, err := svc.cache.Get(ctx, versionKey, &version); err != nil {
		svc.logger.Warn(fmt.Sprintf("reading leaderboard version: %v", err), err)
	}
	return version
}

func cacheKey(version int64, q Query) string {
	return fmt.Sprintf("leaderboard:v%d:%s:%s:%d:%d:%s", version, q.Board, q.Filter.Type, q.Filter.Month, q.Filter.Year, q.Location)
}

// Get returns the leaderboard for q, from cache when the data has not changed since it was computed.
func (svc *Service) Get(ctx context.Context, q Query) (Leaderboard, error) {
	now := svc.now().UTC()
	q.Clean(now)

	key := cacheKey(svc.version(ctx), q)
	var board Leaderboard
	if found, err := svc.cache.Get(ctx, key, &board); err != nil {
		svc.logger.Warn(fmt.Sprintf("reading cached leaderboard: %v", err), err)
	} else if found {
		return board, nil
	}

	board, err := svc.compute(ctx, q, now)
	if err != nil {
		return Leaderboard{}, err
	}
	if err = svc.cache.Set(ctx, key, board, svc.ttl); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching leaderboard: %v", err), err)
	}
	return board, nil
}

func (svc *Service) compute(ctx context.Context, q Query, now time.Time) (Leaderboard, error) {
	from, to := q.Filter.Range(now)
	vibes, err := svc.vibes.Query(ctx, vibe.QueryFilter{From: from, To: to})
	if err != nil {
		return Leaderboard{}, errors.Wrap(err, "querying vibes")
	}
	colleagues, err := svc.people.List(ctx)
	if err != nil {
		return Leaderboard{}, errors.Wrap(err, "listing colleagues")
	}
	people := make([]Person, 0, len(colleagues))
	for _, c := range colleagues {
		people = append(people, Person{
			Email:      c.Email,
			Name:       c.DisplayLabel(),
			Avatar:     c.Avatar,
			Department: c.Department,
			Location:   string(c.Location),
		})
	}

	board := Leaderboard{
		Query:      q,
		Entries:    Build(vibes, people, q.Board, q.Filter, q.Location, now),
		Contenders: []Entry{},
		From:       from,
		To:         to,
	}
	if len(board.Entries) > 0 {
		mvp := board.Entries[0]
		board.MVP = &mvp
		end := len(board.Entries)
		if end > contendersSize+1 {
			end = contendersSize + 1
		}
		board.Contenders = board.Entries[1:end]
	}
	return board, nil
}

// Mine returns the entry of email on the leaderboard for q.
func (svc *Service) Mine(ctx context.Context, q Query, email string) (Entry, error) {
	board, err := svc.Get(ctx, q)
	if err != nil {
		return Entry{}, err
	}
	email = core.CleanString(email, true /* lower */)
	for _, e := range board.Entries {
		if e.Email == email {
			return e, nil
		}
	}
	return Entry{}, ErrNotRanked
}

// VibeCreated invalidates every cached leaderboard.
func (svc *Service) VibeCreated(ctx context.Context, _ vibe.Vibe) {
	svc.invalidate(ctx)
}

// ColleaguesChanged invalidates every cached leaderboard, names and locations being part of them.
func (svc *Service) ColleaguesChanged(ctx context.Context) {
	svc.invalidate(ctx)
}

func (svc *Service) invalidate(ctx context.Context) {
	if _, err := svc.cache.Incr(ctx, versionKey); err != nil {
		svc.logger.Warn(fmt.Sprintf("bumping leaderboard version: %v", err), err)
	}
}
