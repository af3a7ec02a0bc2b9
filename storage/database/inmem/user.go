package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
)

type userRepository struct {
	db *userTable
}

var (
	_ user.Repository    = (*userRepository)(nil)
	_ colleague.Mappings = (*userRepository)(nil)
)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

// query returns every user, most recently linked first.
func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].LinkedAt.Equal(users[j].LinkedAt) {
			return users[i].LinkedAt.After(users[j].LinkedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (repo *userRepository) Create(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	u := usr
	repo.db.table[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) Update(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	u := usr
	repo.db.table[usr.ID] = &u
	return usr, nil
}

func (repo *userRepository) GetByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if strings.EqualFold(usr.Email, email) {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryAll(_ context.Context) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) ColleagueIDForUser(_ context.Context, userID string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[userID]; ok {
		return usr.ColleagueID, nil
	}
	return "", user.ErrNotFound
}
