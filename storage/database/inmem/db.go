// Package inmemdb keeps every table in memory. It backs DB_ENGINE=memory and the tests.
package inmemdb

import (
	"sync"

	"github.com/24vibes/vibes/core/colleague"
	"github.com/24vibes/vibes/core/user"
	"github.com/24vibes/vibes/core/vibe"
)

type (
	DB struct {
		colleague *colleagueTable
		user      *userTable
		vibe      *vibeTable
	}

	colleagueRow struct {
		seq int
		colleague.Colleague
	}

	colleagueTable struct {
		mutex sync.RWMutex
		seq   int
		table map[string]*colleagueRow
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	vibeTable struct {
		mutex     sync.RWMutex
		table     map[string]*vibe.Vibe
		reactions map[string]map[string]vibe.Reaction // {vibeID: {userID: reaction}}
	}
)

func Open() *DB {
	return &DB{
		colleague: &colleagueTable{table: make(map[string]*colleagueRow)},
		user:      &userTable{table: make(map[string]*user.User)},
		vibe: &vibeTable{
			table:     make(map[string]*vibe.Vibe),
			reactions: make(map[string]map[string]vibe.Reaction),
		},
	}
}
