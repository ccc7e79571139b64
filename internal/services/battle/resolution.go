package battle

import (
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
)

// resolution is the working state of one group's battle
type resolution struct {
	evaluator *Evaluator
	rng       random.Random
	entries   []Entry

	// slots is a working copy; neutralized and cured zombies are swapped
	// for their replacements here
	slots  [][model.SlotCount]*model.Card
	values [][model.SlotCount]int
	totals []int

	infected    map[model.PlayerID]bool
	cured       map[model.PlayerID]bool
	eliminated  map[model.PlayerID]bool
	curers      map[model.PlayerID]bool
	neutralized map[model.CardID]bool

	result model.BattleResult
}

func newResolution(e *Evaluator, groupID model.GroupID, round int, entries []Entry, rng random.Random) *resolution {
	res := &resolution{
		evaluator:   e,
		rng:         rng,
		entries:     entries,
		slots:       make([][model.SlotCount]*model.Card, len(entries)),
		values:      make([][model.SlotCount]int, len(entries)),
		totals:      make([]int, len(entries)),
		infected:    make(map[model.PlayerID]bool),
		cured:       make(map[model.PlayerID]bool),
		eliminated:  make(map[model.PlayerID]bool),
		curers:      make(map[model.PlayerID]bool),
		neutralized: make(map[model.CardID]bool),
		result: model.BattleResult{
			GroupID: groupID,
			Round:   round,
		},
	}
	for i, entry := range entries {
		for k, c := range entry.Slots {
			if c != nil {
				card := *c
				res.slots[i][k] = &card
			}
		}
	}
	return res
}

// neutralize converts every zombie held by an opponent of a shotgun player,
// in slots and in hand, before any slot is compared
func (r *resolution) neutralize() error {
	for i := range r.entries {
		if !r.hasShotgun(i) {
			continue
		}
		for j := range r.entries {
			if j == i {
				continue
			}
			for k, c := range r.slots[j] {
				if c == nil || !c.IsSpecial(model.SpecialZombie) || r.neutralized[c.ID] {
					continue
				}
				replacement, err := r.mint(c.ID)
				if err != nil {
					return err
				}
				r.slots[j][k] = &replacement
				r.neutralized[c.ID] = true
				r.addEffect(model.EffectNeutralized, j, i, k, c.ID, &replacement, model.ReasonShotgun)
			}
			for _, c := range r.entries[j].Hand {
				if !c.IsSpecial(model.SpecialZombie) || r.neutralized[c.ID] {
					continue
				}
				replacement, err := r.mint(c.ID)
				if err != nil {
					return err
				}
				r.neutralized[c.ID] = true
				r.addEffect(model.EffectNeutralized, j, i, model.HandSlot, c.ID, &replacement, model.ReasonShotgun)
			}
		}
	}
	return nil
}

func (r *resolution) hasShotgun(i int) bool {
	for _, c := range r.slots[i] {
		if c != nil && c.IsSpecial(model.SpecialShotgun) {
			return true
		}
	}
	return false
}

// resolveSlot applies the special-card rules to one slot index across
// every competitor
func (r *resolution) resolveSlot(k int) error {
	var zombies, injections, standards []int
	for i := range r.entries {
		c := r.slots[i][k]
		if c == nil {
			continue
		}
		switch c.Kind {
		case model.CardKindStandard:
			standards = append(standards, i)
			r.values[i][k] = c.Value()
		case model.CardKindSpecial:
			switch c.Special.Type {
			case model.SpecialZombie:
				zombies = append(zombies, i)
			case model.SpecialInjection:
				injections = append(injections, i)
			case model.SpecialShotgun:
				// Always scores 0; its work was done by neutralize
			}
		}
	}

	switch {
	case len(zombies) >= 2:
		// Mutual clash: every zombie scores 0 and every standard card in
		// the slot is infected
		for _, i := range standards {
			r.values[i][k] = 0
			r.infect(i, zombies[0], k)
		}

	case len(zombies) == 1 && len(injections) > 0:
		z := zombies[0]
		curer := injections[0]
		card := r.slots[z][k]
		replacement, err := r.mint(card.ID)
		if err != nil {
			return err
		}
		r.slots[z][k] = &replacement
		r.values[z][k] = replacement.Value()
		r.cured[r.entries[z].PlayerID] = true
		r.curers[r.entries[curer].PlayerID] = true
		r.addEffect(model.EffectCured, z, curer, k, card.ID, &replacement, model.ReasonInjection)

	case len(zombies) == 1:
		z := zombies[0]
		r.values[z][k] = model.ZombieValue
		for _, i := range standards {
			r.values[i][k] = 0
			r.infect(i, z, k)
		}
	}
	return nil
}

// infect marks the owner of a standard card beaten by a zombie. A player
// already carrying the infection is eliminated instead.
func (r *resolution) infect(i, by, slot int) {
	id := r.entries[i].PlayerID
	if r.eliminated[id] || r.infected[id] {
		return
	}
	if r.entries[i].Infected && !r.cured[id] {
		r.eliminateBy(i, by, slot, model.ReasonReinfected)
		return
	}
	r.infected[id] = true
	var cardID model.CardID
	if c := r.slots[i][slot]; c != nil {
		cardID = c.ID
	}
	reason := model.ReasonZombieBite
	if r.countZombies(slot) > 1 {
		reason = model.ReasonZombieHorde
	}
	r.addEffect(model.EffectInfected, i, by, slot, cardID, nil, reason)
}

func (r *resolution) countZombies(slot int) int {
	n := 0
	for i := range r.entries {
		if c := r.slots[i][slot]; c != nil && c.IsSpecial(model.SpecialZombie) {
			n++
		}
	}
	return n
}

func (r *resolution) eliminate(i int, reason string) {
	r.eliminateBy(i, -1, model.HandSlot, reason)
}

func (r *resolution) eliminateBy(i, by, slot int, reason string) {
	id := r.entries[i].PlayerID
	if r.eliminated[id] {
		return
	}
	r.eliminated[id] = true
	r.result.Eliminated = append(r.result.Eliminated, id)
	r.addEffect(model.EffectEliminated, i, by, slot, "", nil, reason)
}

func (r *resolution) addEffect(kind model.EffectKind, i, by, slot int, cardID model.CardID, replacement *model.Card, reason string) {
	effect := model.Effect{
		Kind:        kind,
		PlayerID:    r.entries[i].PlayerID,
		Slot:        slot,
		CardID:      cardID,
		Replacement: replacement,
		Reason:      reason,
	}
	if by >= 0 && by != i {
		effect.By = r.entries[by].PlayerID
	}
	r.result.Effects = append(r.result.Effects, effect)
}

// mint draws the standard card that replaces a cured or neutralized zombie,
// keeping its id
func (r *resolution) mint(id model.CardID) (model.Card, error) {
	value := random.IntRange(r.rng, r.evaluator.cureMin, r.evaluator.cureMax)
	suit := model.Suits[r.rng.Intn(len(model.Suits))]
	card := model.NewStandardCard(id, model.Rank(value), suit)
	return card, card.Validate()
}

// live returns the indices of competitors not eliminated this battle
func (r *resolution) live() []int {
	var out []int
	for i, entry := range r.entries {
		if !r.eliminated[entry.PlayerID] {
			out = append(out, i)
		}
	}
	return out
}

// sum computes every competitor's total from the resolved slot values
func (r *resolution) sum() {
	for i := range r.entries {
		r.totals[i] = 0
		for k := 0; k < model.SlotCount; k++ {
			r.totals[i] += r.values[i][k]
		}
	}
}

// finish fills in the per-slot breakdown
func (r *resolution) finish() *model.BattleResult {
	for i, entry := range r.entries {
		b := model.Breakdown{PlayerID: entry.PlayerID, Total: r.totals[i]}
		for k := 0; k < model.SlotCount; k++ {
			b.Slots[k] = model.SlotValue{Value: r.values[i][k], Card: r.slots[i][k]}
		}
		r.result.Breakdown = append(r.result.Breakdown, b)
	}
	return &r.result
}
