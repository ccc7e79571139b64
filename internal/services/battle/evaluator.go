package battle

import (
	"fmt"

	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/rules"
)

// Entry is one participant's input to a battle
type Entry struct {
	PlayerID model.PlayerID
	Slots    [model.SlotCount]*model.Card
	// Hand is the full hand, so shotguns can reach zombies not played
	Hand []model.Card
	// Infected is the player's infection flag before this battle
	Infected bool
}

// Evaluator resolves a group's committed battle arrays
type Evaluator struct {
	cureMin int
	cureMax int
}

// NewEvaluator creates an Evaluator for the given rules
func NewEvaluator(r rules.Rules) *Evaluator {
	return &Evaluator{
		cureMin: r.CureMin,
		cureMax: r.CureMax,
	}
}

// Evaluate dispatches on group size. A solo group is totalled for display
// but records no outcome.
func (e *Evaluator) Evaluate(groupID model.GroupID, round int, entries []Entry, rng random.Random) (*model.BattleResult, error) {
	switch len(entries) {
	case 1:
		return e.evaluateSolo(groupID, round, entries[0])
	case 2:
		return e.EvaluateDuel(groupID, round, entries[0], entries[1], rng)
	case 3:
		return e.EvaluateTrio(groupID, round, [3]Entry{entries[0], entries[1], entries[2]}, rng)
	default:
		return nil, fmt.Errorf("battle: unsupported group size %d", len(entries))
	}
}

// EvaluateDuel resolves a two-player battle. The higher total wins; a tie
// makes both players losers.
func (e *Evaluator) EvaluateDuel(groupID model.GroupID, round int, a, b Entry, rng random.Random) (*model.BattleResult, error) {
	res, err := e.resolve(groupID, round, []Entry{a, b}, rng)
	if err != nil {
		return nil, err
	}

	live := res.live()
	switch len(live) {
	case 1:
		res.result.Winners = []model.PlayerID{res.entries[live[0]].PlayerID}
	case 2:
		ta, tb := res.totals[live[0]], res.totals[live[1]]
		switch {
		case ta > tb:
			res.result.Winners = []model.PlayerID{res.entries[live[0]].PlayerID}
			res.result.Losers = []model.PlayerID{res.entries[live[1]].PlayerID}
		case tb > ta:
			res.result.Winners = []model.PlayerID{res.entries[live[1]].PlayerID}
			res.result.Losers = []model.PlayerID{res.entries[live[0]].PlayerID}
		default:
			res.result.Losers = []model.PlayerID{res.entries[live[0]].PlayerID, res.entries[live[1]].PlayerID}
		}
	}
	return res.finish(), nil
}

// EvaluateTrio resolves a three-player battle. Every non-eliminated player
// tied at the maximum total wins, as does any player whose injection cured
// a zombie; everyone else still standing loses.
func (e *Evaluator) EvaluateTrio(groupID model.GroupID, round int, entries [3]Entry, rng random.Random) (*model.BattleResult, error) {
	res, err := e.resolve(groupID, round, entries[:], rng)
	if err != nil {
		return nil, err
	}

	live := res.live()
	best := 0
	for n, i := range live {
		if n == 0 || res.totals[i] > best {
			best = res.totals[i]
		}
	}
	for _, i := range live {
		id := res.entries[i].PlayerID
		if res.totals[i] == best || res.curers[id] {
			res.result.Winners = append(res.result.Winners, id)
		} else {
			res.result.Losers = append(res.result.Losers, id)
		}
	}
	return res.finish(), nil
}

func (e *Evaluator) evaluateSolo(groupID model.GroupID, round int, entry Entry) (*model.BattleResult, error) {
	if err := validateEntry(entry); err != nil {
		return nil, err
	}
	res := newResolution(e, groupID, round, []Entry{entry}, nil)
	for k := 0; k < model.SlotCount; k++ {
		if c := res.slots[0][k]; c != nil {
			res.values[0][k] = c.Value()
		}
	}
	res.sum()
	return res.finish(), nil
}

// resolve runs the shared slot semantics for two or three competitors
func (e *Evaluator) resolve(groupID model.GroupID, round int, entries []Entry, rng random.Random) (*resolution, error) {
	for _, entry := range entries {
		if err := validateEntry(entry); err != nil {
			return nil, err
		}
	}

	res := newResolution(e, groupID, round, entries, rng)

	for i, entry := range entries {
		if countCards(entry.Slots) == 0 && len(entry.Hand) == 0 {
			res.eliminate(i, model.ReasonNoCards)
		}
	}

	if err := res.neutralize(); err != nil {
		return nil, err
	}
	for k := 0; k < model.SlotCount; k++ {
		if err := res.resolveSlot(k); err != nil {
			return nil, err
		}
	}
	res.sum()
	return res, nil
}

func validateEntry(entry Entry) error {
	for _, c := range entry.Slots {
		if c == nil {
			continue
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, c := range entry.Hand {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func countCards(slots [model.SlotCount]*model.Card) int {
	n := 0
	for _, c := range slots {
		if c != nil {
			n++
		}
	}
	return n
}
