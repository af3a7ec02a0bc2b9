package leaderboard

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/24vibes/vibes/core"
	"github.com/24vibes/vibes/core/vibe"
)

// LevelFor returns the highest level reached with count vibes (the first level below its requirement)
// along with the next level, nil at the top.
func LevelFor(count int) (Level, *Level) {
	idx := 0
	for i, lvl := range Levels {
		if count >= lvl.Requirement {
			idx = i
		}
	}
	if idx+1 < len(Levels) {
		next := Levels[idx+1]
		return Levels[idx], &next
	}
	return Levels[idx], nil
}

// Progress is the percentage towards the next level, capped to [0, 100]. It is 100 at the top level.
func Progress(count int) float64 {
	lvl, next := LevelFor(count)
	if next == nil {
		return 100
	}
	pct := float64(count-lvl.Requirement) / float64(next.Requirement-lvl.Requirement) * 100
	return math.Min(math.Max(pct, 0), 100)
}

// Build counts the vibes per sender (makers) or recipient (catchers) within the filter range,
// keeping people of location only (people without a known location only show on the global board).
// Entries are sorted by count desc, then email asc.
func Build(vibes []vibe.Vibe, people []Person, board Board, filter TimeFilter, location string, now time.Time) []Entry {
	byEmail := make(map[string]Person, len(people))
	for _, p := range people {
		byEmail[strings.ToLower(p.Email)] = p
	}
	allLocations := location == "" || location == AllLocations
	start, end := filter.Range(now)

	counts := make(map[string]int)
	for _, v := range vibes {
		if v.CreatedAt.Before(start) || v.CreatedAt.After(end) {
			continue
		}
		key := v.Sender
		if board == Catchers {
			key = v.Recipient
		}
		key = strings.ToLower(key)
		if key == "" {
			continue
		}
		if !allLocations {
			if p, ok := byEmail[key]; !ok || p.Location != location {
				continue
			}
		}
		counts[key]++
	}

	entries := make([]Entry, 0, len(counts))
	for email, count := range counts {
		p, ok := byEmail[email]
		if !ok {
			p = Person{Email: email}
		}
		lvl, next := LevelFor(count)
		entries = append(entries, Entry{
			UserID:     email,
			Email:      email,
			Name:       core.FirstNonEmpty(p.Name, core.EmailLocalPart(email)),
			Avatar:     p.Avatar,
			Department: p.Department,
			Location:   core.FirstNonEmpty(p.Location, "Unknown"),
			Count:      count,
			Level:      lvl,
			NextLevel:  next,
			Progress:   Progress(count),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Email < entries[j].Email
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
