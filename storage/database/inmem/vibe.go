package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/24vibes/vibes/core/vibe"
)

type vibeRepository struct {
	db *vibeTable
}

var _ vibe.Repository = (*vibeRepository)(nil)

func NewVibeRepository(db *DB) *vibeRepository {
	return &vibeRepository{db: db.vibe}
}

func (repo *vibeRepository) withReactions(v vibe.Vibe) vibe.Vibe {
	byUser := repo.db.reactions[v.ID]
	v.Reactions = make([]vibe.Reaction, 0, len(byUser))
	for _, r := range byUser {
		v.Reactions = append(v.Reactions, r)
	}
	sort.Slice(v.Reactions, func(i, j int) bool {
		a, b := v.Reactions[i], v.Reactions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.UserID < b.UserID
	})
	return v
}

func (repo *vibeRepository) Create(_ context.Context, v vibe.Vibe) (vibe.Vibe, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stored := v
	stored.Reactions = nil
	repo.db.table[v.ID] = &stored
	return repo.withReactions(v), nil
}

func (repo *vibeRepository) Get(_ context.Context, id string) (vibe.Vibe, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if v, ok := repo.db.table[id]; ok {
		return repo.withReactions(*v), nil
	}
	return vibe.Vibe{}, vibe.ErrNotFound
}

func (repo *vibeRepository) Query(_ context.Context, filter vibe.QueryFilter) ([]vibe.Vibe, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	// stored addresses may not be lowercase
	filter.Sender = strings.ToLower(filter.Sender)
	filter.Recipient = strings.ToLower(filter.Recipient)

	vibes := make([]vibe.Vibe, 0)
	for _, v := range repo.db.table {
		match := *v
		match.Sender = strings.ToLower(match.Sender)
		match.Recipient = strings.ToLower(match.Recipient)
		if filter.Match(match) {
			vibes = append(vibes, repo.withReactions(*v))
		}
	}
	sort.Slice(vibes, func(i, j int) bool {
		if !vibes[i].CreatedAt.Equal(vibes[j].CreatedAt) {
			return vibes[i].CreatedAt.After(vibes[j].CreatedAt)
		}
		return vibes[i].ID < vibes[j].ID
	})
	return vibes, nil
}

func (repo *vibeRepository) SetReaction(_ context.Context, r vibe.Reaction) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[r.VibeID]; !ok {
		return vibe.ErrNotFound
	}
	byUser, ok := repo.db.reactions[r.VibeID]
	if !ok {
		byUser = make(map[string]vibe.Reaction)
		repo.db.reactions[r.VibeID] = byUser
	}
	byUser[r.UserID] = r
	return nil
}

func (repo *vibeRepository) DeleteReaction(_ context.Context, vibeID, userID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.reactions[vibeID], userID)
	return nil
}
