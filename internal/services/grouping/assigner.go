package grouping

import (
	"fmt"

	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
)

// Assign shuffles players uniformly with rng and partitions them into pairs.
// An odd player out joins the last pair to form a trio; a single player
// overall forms a solo group. Group ids are positional (g1, g2, ...).
func Assign(players []model.PlayerID, rng random.Random) []model.Group {
	if len(players) == 0 {
		return nil
	}

	order := append([]model.PlayerID(nil), players...)
	random.Shuffle(rng, len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	var groups []model.Group
	for i := 0; i < len(order); i += 2 {
		end := i + 2
		if end > len(order) {
			end = len(order)
		}
		members := append([]model.PlayerID(nil), order[i:end]...)

		// Dangling single: merge into the preceding pair
		if len(members) == 1 && len(groups) > 0 {
			last := &groups[len(groups)-1]
			last.Members = append(last.Members, members[0])
			continue
		}
		groups = append(groups, model.Group{
			ID:      model.GroupID(fmt.Sprintf("g%d", len(groups)+1)),
			Members: members,
		})
	}
	return groups
}
