package mocks

import (
	"github.com/mcoot/diamondsgame/internal/dependencies/random"
)

// MockRandom replays scripted draws. Intn results are reduced modulo n so a
// script stays in range whatever bound the caller asks for. An exhausted
// script yields 0.
type MockRandom struct {
	draws []int
	next  int
}

var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a MockRandom with an empty script
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// QueueIntn appends draws to the script
func (r *MockRandom) QueueIntn(values ...int) {
	r.draws = append(r.draws, values...)
}

// Remaining reports how many scripted draws have not been consumed
func (r *MockRandom) Remaining() int {
	return len(r.draws) - r.next
}

func (r *MockRandom) pop() int {
	if r.next >= len(r.draws) {
		return 0
	}
	v := r.draws[r.next]
	r.next++
	return v
}

func (r *MockRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return r.pop() % n
}

func (r *MockRandom) Uint64() uint64 {
	return uint64(r.pop())
}
