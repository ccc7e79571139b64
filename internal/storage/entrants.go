package storage

import (
	"sort"

	"github.com/mcoot/diamondsgame/internal/model"
)

// SortEntrants orders entrants by join time, then id, so every backend
// returns the same roster order
func SortEntrants(entrants []model.Entrant) {
	sort.Slice(entrants, func(i, j int) bool {
		if !entrants[i].JoinedAt.Equal(entrants[j].JoinedAt) {
			return entrants[i].JoinedAt.Before(entrants[j].JoinedAt)
		}
		return entrants[i].PlayerID < entrants[j].PlayerID
	})
}
