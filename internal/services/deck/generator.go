package deck

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/rules"
)

// ranksPerSuit is the number of ranks in one suit (2..A)
const ranksPerSuit = int(model.RankMax-model.RankMin) + 1

// Generator builds the session card pool
type Generator struct {
	handSize int
	specials rules.SpecialCounts
}

// NewGenerator creates a Generator for the given rules
func NewGenerator(r rules.Rules) *Generator {
	return &Generator{
		handSize: r.HandSize,
		specials: r.Specials,
	}
}

// Generate builds a pool of handSize cards per player for the whole session.
// Standard cards cycle suits by ranks, wrapping into further virtual decks
// when more than 52 are needed. Every special card lands within the first
// playerCount*handSize cards, so all of them are dealt in round 1.
//
// All randomness (order and card ids) is drawn from rng, so two calls with
// equally seeded sources return identical pools.
func (g *Generator) Generate(playerCount int, rng random.Random) ([]model.Card, error) {
	if playerCount <= 0 {
		return nil, model.ErrNoParticipants
	}

	total := playerCount * g.handSize
	standardCount := total - g.specials.Total()
	if standardCount < 0 {
		standardCount = 0
	}

	standard := make([]model.Card, 0, standardCount)
	for i := 0; i < standardCount; i++ {
		within := i % (len(model.Suits) * ranksPerSuit)
		suit := model.Suits[within/ranksPerSuit]
		rank := model.RankMin + model.Rank(within%ranksPerSuit)
		id, err := newCardID(rng)
		if err != nil {
			return nil, err
		}
		standard = append(standard, model.NewStandardCard(id, rank, suit))
	}

	specials := make([]model.Card, 0, g.specials.Total())
	for _, spec := range []struct {
		kind  model.SpecialType
		count int
	}{
		{model.SpecialZombie, g.specials.Zombie},
		{model.SpecialInjection, g.specials.Injection},
		{model.SpecialShotgun, g.specials.Shotgun},
	} {
		for i := 0; i < spec.count; i++ {
			id, err := newCardID(rng)
			if err != nil {
				return nil, err
			}
			specials = append(specials, model.NewSpecialCard(id, spec.kind))
		}
	}

	shuffleCards(rng, standard)
	shuffleCards(rng, specials)

	// Reserve the first-round window: enough standard cards to fill it
	// alongside every special, shuffled together
	reserved := total - len(specials)
	if reserved < 0 {
		reserved = 0
	}
	if reserved > len(standard) {
		reserved = len(standard)
	}

	window := make([]model.Card, 0, reserved+len(specials))
	window = append(window, standard[:reserved]...)
	window = append(window, specials...)
	shuffleCards(rng, window)

	return append(window, standard[reserved:]...), nil
}

// MintStandard creates a fresh standard card with a random face, used by
// refresh. The rank spans the full 2..A range.
func MintStandard(rng random.Random) (model.Card, error) {
	id, err := newCardID(rng)
	if err != nil {
		return model.Card{}, err
	}
	rank := model.Rank(random.IntRange(rng, int(model.RankMin), int(model.RankMax)))
	suit := model.Suits[rng.Intn(len(model.Suits))]
	return model.NewStandardCard(id, rank, suit), nil
}

// MintZombie creates the single-use zombie card granted on infection
func MintZombie(rng random.Random) (model.Card, error) {
	id, err := newCardID(rng)
	if err != nil {
		return model.Card{}, err
	}
	return model.NewSpecialCard(id, model.SpecialZombie), nil
}

func newCardID(rng random.Random) (model.CardID, error) {
	id, err := uuid.NewRandomFromReader(random.Reader(rng))
	if err != nil {
		return "", fmt.Errorf("generating card id: %w", err)
	}
	return model.CardID(id.String()), nil
}

func shuffleCards(rng random.Random, cards []model.Card) {
	random.Shuffle(rng, len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
