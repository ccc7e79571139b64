package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Values are cloned on the way in and out so callers never alias stored data.
type Storage struct {
	mu sync.RWMutex

	states    map[model.SessionID]*model.GameState
	entrants  map[model.SessionID]map[model.PlayerID]model.Entrant
	hands     map[handKey]*model.Hand
	slots     map[slotKey]*model.SlotAssignment
	profiles  map[model.PlayerID]*model.Profile
	accounts  map[model.PlayerID]*model.Account
	usernames map[string]model.PlayerID

	subMu       sync.Mutex
	subscribers map[model.SessionID]map[chan model.Event]struct{}
}

type handKey struct {
	sessionID model.SessionID
	playerID  model.PlayerID
}

type slotKey struct {
	sessionID model.SessionID
	playerID  model.PlayerID
	round     int
}

// subscriberBuffer bounds each subscriber's backlog; notifications beyond it
// are dropped since subscribers re-fetch on every signal anyway
const subscriberBuffer = 64

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		states:      make(map[model.SessionID]*model.GameState),
		entrants:    make(map[model.SessionID]map[model.PlayerID]model.Entrant),
		hands:       make(map[handKey]*model.Hand),
		slots:       make(map[slotKey]*model.SlotAssignment),
		profiles:    make(map[model.PlayerID]*model.Profile),
		accounts:    make(map[model.PlayerID]*model.Account),
		usernames:   make(map[string]model.PlayerID),
		subscribers: make(map[model.SessionID]map[chan model.Event]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session state operations

func (s *Storage) CreateState(ctx context.Context, state *model.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[state.SessionID]; ok {
		return model.ErrSessionExists
	}
	s.states[state.SessionID] = state.Clone()
	return nil
}

func (s *Storage) GetState(ctx context.Context, id model.SessionID) (*model.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return state.Clone(), nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]model.SessionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.SessionID, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Storage) UpdateStateIf(ctx context.Context, id model.SessionID, cond storage.Condition, mutate storage.Mutation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.states[id]
	if !ok {
		return false, model.ErrSessionNotFound
	}
	working := current.Clone()
	if !cond(working) {
		return false, nil
	}
	mutate(working)
	s.states[id] = working
	return true, nil
}

// Entrant operations

func (s *Storage) AddEntrant(ctx context.Context, id model.SessionID, entrant model.Entrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[id]; !ok {
		return model.ErrSessionNotFound
	}
	if s.entrants[id] == nil {
		s.entrants[id] = make(map[model.PlayerID]model.Entrant)
	}
	if _, ok := s.entrants[id][entrant.PlayerID]; ok {
		return nil
	}
	s.entrants[id][entrant.PlayerID] = entrant
	return nil
}

func (s *Storage) GetEntrants(ctx context.Context, id model.SessionID) ([]model.Entrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entrants := make([]model.Entrant, 0, len(s.entrants[id]))
	for _, e := range s.entrants[id] {
		entrants = append(entrants, e)
	}
	storage.SortEntrants(entrants)
	return entrants, nil
}

// Hand operations

func (s *Storage) SaveHand(ctx context.Context, hand *model.Hand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hands[handKey{hand.SessionID, hand.PlayerID}] = hand.Clone()
	return nil
}

func (s *Storage) GetHand(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.Hand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hand, ok := s.hands[handKey{id, playerID}]
	if !ok {
		return nil, model.ErrHandNotFound
	}
	return hand.Clone(), nil
}

func (s *Storage) GetHands(ctx context.Context, id model.SessionID) ([]*model.Hand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var hands []*model.Hand
	for key, hand := range s.hands {
		if key.sessionID == id {
			hands = append(hands, hand.Clone())
		}
	}
	sort.Slice(hands, func(i, j int) bool { return hands[i].PlayerID < hands[j].PlayerID })
	return hands, nil
}

func (s *Storage) UpdateHand(ctx context.Context, id model.SessionID, playerID model.PlayerID, mutate storage.HandMutation) (*model.Hand, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := handKey{id, playerID}
	current, ok := s.hands[key]
	if !ok {
		return nil, model.ErrHandNotFound
	}
	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	s.hands[key] = working
	return working.Clone(), nil
}

func (s *Storage) DeleteHands(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.hands {
		if key.sessionID == id {
			delete(s.hands, key)
		}
	}
	return nil
}

// Slot operations

func (s *Storage) SaveSlots(ctx context.Context, slots *model.SlotAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slotKey{slots.SessionID, slots.PlayerID, slots.Round}] = slots.Clone()
	return nil
}

func (s *Storage) GetSlots(ctx context.Context, id model.SessionID, playerID model.PlayerID, round int) (*model.SlotAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots, ok := s.slots[slotKey{id, playerID, round}]
	if !ok {
		return nil, model.ErrSlotsNotFound
	}
	return slots.Clone(), nil
}

func (s *Storage) GetSlotsForRound(ctx context.Context, id model.SessionID, round int) ([]*model.SlotAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*model.SlotAssignment
	for key, slots := range s.slots {
		if key.sessionID == id && key.round == round {
			result = append(result, slots.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result, nil
}

func (s *Storage) DeleteSlots(ctx context.Context, id model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.slots {
		if key.sessionID == id {
			delete(s.slots, key)
		}
	}
	return nil
}

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	s.profiles[profile.PlayerID] = &p
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, playerID model.PlayerID) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *profile
	return &p, nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := *account
	s.accounts[account.PlayerID] = &a
	s.usernames[account.Username] = account.PlayerID
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, playerID model.PlayerID) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[playerID]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	a := *account
	return &a, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	playerID, ok := s.usernames[username]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetAccount(ctx, playerID)
}

// Notifications

func (s *Storage) Publish(ctx context.Context, event model.Event) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers[event.SessionID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (s *Storage) Subscribe(ctx context.Context, id model.SessionID) (<-chan model.Event, error) {
	ch := make(chan model.Event, subscriberBuffer)

	s.subMu.Lock()
	if s.subscribers[id] == nil {
		s.subscribers[id] = make(map[chan model.Event]struct{})
	}
	s.subscribers[id][ch] = struct{}{}
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subscribers[id], ch)
		if len(s.subscribers[id]) == 0 {
			delete(s.subscribers, id)
		}
		close(ch)
		s.subMu.Unlock()
	}()

	return ch, nil
}
