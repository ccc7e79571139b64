package scoring

import (
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/rules"
)

// Service converts battle outcomes into score deltas
type Service struct {
	rules rules.ScoringRules
}

// New creates a new scoring Service
func New(r rules.ScoringRules) *Service {
	return &Service{
		rules: r,
	}
}

// Score applies one round's results to a copy of participants and returns
// it. Individual deltas come first: eliminated, then winner, then loser.
// Then the team adjustment runs over every still-active player: whichever
// of the uninfected and infected sides is strictly larger gains TeamWin and
// the other side takes TeamLoss. It applies every round.
//
// RoundAdjustment is set to each player's net change from this call.
func (s *Service) Score(participants []model.Player, results []model.BattleResult) []model.Player {
	out := append([]model.Player(nil), participants...)
	before := make(map[model.PlayerID]int, len(out))
	for _, p := range out {
		before[p.ID] = p.Score
	}

	for i := range out {
		p := &out[i]
		if !p.IsActive() {
			continue
		}
		for _, res := range results {
			if !res.HasOutcome(p.ID) {
				continue
			}
			switch {
			case res.IsEliminated(p.ID):
				p.Score += s.rules.Eliminated
				p.Status = model.StatusEliminated
			case res.IsWinner(p.ID):
				p.Score += s.rules.Win
			case res.IsLoser(p.ID):
				p.Score += s.rules.Loss
			}
			break
		}
	}

	s.applyTeamAdjustment(out)

	for i := range out {
		out[i].RoundAdjustment = out[i].Score - before[out[i].ID]
	}
	return out
}

func (s *Service) applyTeamAdjustment(players []model.Player) {
	survivors, zombies := 0, 0
	for _, p := range players {
		if !p.IsActive() {
			continue
		}
		if p.IsZombie {
			zombies++
		} else {
			survivors++
		}
	}
	if survivors == zombies {
		return
	}
	zombiesWin := zombies > survivors

	for i := range players {
		p := &players[i]
		if !p.IsActive() {
			continue
		}
		if p.IsZombie == zombiesWin {
			p.Score += s.rules.TeamWin
		} else {
			p.Score += s.rules.TeamLoss
		}
	}
}
