package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/24vibes/vibes/core/colleague"
)

type colleagueRepository struct {
	db *colleagueTable
}

var _ colleague.Repository = (*colleagueRepository)(nil)

func NewColleagueRepository(db *DB) *colleagueRepository {
	return &colleagueRepository{db: db.colleague}
}

// query returns the rows matching keep, oldest first.
func (repo *colleagueRepository) query(keep func(c colleague.Colleague) bool) []colleague.Colleague {
	rows := make([]*colleagueRow, 0, len(repo.db.table))
	for _, row := range repo.db.table {
		if keep == nil || keep(row.Colleague) {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
	colleagues := make([]colleague.Colleague, 0, len(rows))
	for _, row := range rows {
		colleagues = append(colleagues, row.Colleague)
	}
	return colleagues
}

func (repo *colleagueRepository) insert(c colleague.Colleague) {
	repo.db.seq++
	repo.db.table[c.ID] = &colleagueRow{seq: repo.db.seq, Colleague: c}
}

func (repo *colleagueRepository) QueryAll(_ context.Context) ([]colleague.Colleague, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(nil), nil
}

func (repo *colleagueRepository) Count(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.table), nil
}

func (repo *colleagueRepository) GetByID(_ context.Context, id string) (colleague.Colleague, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.table[id]; ok {
		return row.Colleague, nil
	}
	return colleague.Colleague{}, colleague.ErrNotFound
}

func (repo *colleagueRepository) FindByEmail(_ context.Context, email string, caseInsensitive bool) ([]colleague.Colleague, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(c colleague.Colleague) bool {
		if caseInsensitive {
			return strings.EqualFold(c.Email, email)
		}
		return c.Email == email
	}), nil
}

func (repo *colleagueRepository) Create(_ context.Context, c colleague.Colleague) (colleague.Colleague, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.insert(c)
	return c, nil
}

func (repo *colleagueRepository) Update(_ context.Context, c colleague.Colleague) (colleague.Colleague, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.table[c.ID]
	if !ok {
		return colleague.Colleague{}, colleague.ErrNotFound
	}
	c.CreatedAt = row.CreatedAt
	row.Colleague = c
	return c, nil
}

func (repo *colleagueRepository) ReplaceAll(_ context.Context, roster []colleague.Colleague) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table = make(map[string]*colleagueRow, len(roster))
	for _, c := range roster {
		repo.insert(c)
	}
	return nil
}
