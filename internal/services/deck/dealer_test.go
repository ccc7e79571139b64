package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/diamondsgame/internal/dependencies/random"
	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/rules"
)

func TestDealSlicesSequentially(t *testing.T) {
	pool, err := NewGenerator(rules.Default()).Generate(3, random.NewSeeded(1))
	require.NoError(t, err)

	hands, rest := Deal(pool, []model.PlayerID{"a", "b", "c"}, 7)

	assert.Equal(t, pool[0:7], hands["a"])
	assert.Equal(t, pool[7:14], hands["b"])
	assert.Equal(t, pool[14:21], hands["c"])
	assert.Empty(t, rest)
}

func TestDealShortPool(t *testing.T) {
	pool := []model.Card{
		model.NewStandardCard("1", model.RankAce, model.SuitHearts),
		model.NewStandardCard("2", model.RankKing, model.SuitHearts),
		model.NewStandardCard("3", model.RankQueen, model.SuitHearts),
	}

	hands, rest := Deal(pool, []model.PlayerID{"a", "b"}, 2)

	assert.Len(t, hands["a"], 2)
	assert.Len(t, hands["b"], 1)
	assert.Empty(t, rest)
}

func TestDealKeepsRemainder(t *testing.T) {
	pool := []model.Card{
		model.NewStandardCard("1", model.RankAce, model.SuitHearts),
		model.NewStandardCard("2", model.RankKing, model.SuitHearts),
		model.NewStandardCard("3", model.RankQueen, model.SuitHearts),
	}

	hands, rest := Deal(pool, []model.PlayerID{"a"}, 2)

	assert.Len(t, hands["a"], 2)
	require.Len(t, rest, 1)
	assert.Equal(t, model.CardID("3"), rest[0].ID)
}
