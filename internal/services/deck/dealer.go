package deck

import "github.com/mcoot/diamondsgame/internal/model"

// Deal slices handSize cards per player off the front of pool, in player
// order. It returns the dealt cards per player and the undealt remainder.
// A short pool deals what it has; later players may get fewer cards.
func Deal(pool []model.Card, players []model.PlayerID, handSize int) (map[model.PlayerID][]model.Card, []model.Card) {
	hands := make(map[model.PlayerID][]model.Card, len(players))
	next := 0
	for _, id := range players {
		end := next + handSize
		if end > len(pool) {
			end = len(pool)
		}
		hands[id] = append([]model.Card(nil), pool[next:end]...)
		next = end
	}
	return hands, append([]model.Card(nil), pool[next:]...)
}
