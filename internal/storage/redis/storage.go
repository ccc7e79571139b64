package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/diamondsgame/internal/model"
	"github.com/mcoot/diamondsgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
//
// Conditional updates use WATCH/MULTI optimistic transactions: the
// condition is evaluated against the value read under WATCH, and the write
// only lands if no other client touched the key in between. A transaction
// aborted by a concurrent write is retried, re-evaluating the condition
// against the new value, so at most one of several racing claimants can
// observe a satisfied condition.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Session state operations

func (s *Storage) CreateState(ctx context.Context, state *model.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	created, err := s.client.SetNX(ctx, stateKey(state.SessionID), data, s.cfg.SessionTTL).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrSessionExists
	}
	return s.client.SAdd(ctx, sessionsIndexKey(), string(state.SessionID)).Err()
}

func (s *Storage) GetState(ctx context.Context, id model.SessionID) (*model.GameState, error) {
	var state model.GameState
	if err := s.getJSON(ctx, stateKey(id), &state, model.ErrSessionNotFound); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Storage) ListSessions(ctx context.Context) ([]model.SessionID, error) {
	members, err := s.client.SMembers(ctx, sessionsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	ids := make([]model.SessionID, 0, len(members))
	for _, m := range members {
		ids = append(ids, model.SessionID(m))
	}
	return ids, nil
}

func (s *Storage) UpdateStateIf(ctx context.Context, id model.SessionID, cond storage.Condition, mutate storage.Mutation) (bool, error) {
	key := stateKey(id)
	applied := false

	txf := func(tx *redis.Tx) error {
		applied = false
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrSessionNotFound
			}
			return err
		}

		var state model.GameState
		if err := json.Unmarshal(data, &state); err != nil {
			return err
		}
		if !cond(&state) {
			return nil
		}
		mutate(&state)

		out, err := json.Marshal(&state)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.cfg.SessionTTL)
			return nil
		})
		if err != nil {
			return err
		}
		applied = true
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return false, err
	}
	return applied, nil
}

// Entrant operations

func (s *Storage) AddEntrant(ctx context.Context, id model.SessionID, entrant model.Entrant) error {
	exists, err := s.client.Exists(ctx, stateKey(id)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return model.ErrSessionNotFound
	}

	data, err := json.Marshal(entrant)
	if err != nil {
		return err
	}

	key := entrantsKey(id)
	pipe := s.client.Pipeline()
	pipe.HSetNX(ctx, key, string(entrant.PlayerID), data)
	pipe.Expire(ctx, key, s.cfg.SessionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetEntrants(ctx context.Context, id model.SessionID) ([]model.Entrant, error) {
	values, err := s.client.HGetAll(ctx, entrantsKey(id)).Result()
	if err != nil {
		return nil, err
	}

	entrants := make([]model.Entrant, 0, len(values))
	for _, val := range values {
		var e model.Entrant
		if err := json.Unmarshal([]byte(val), &e); err != nil {
			continue // Skip invalid data
		}
		entrants = append(entrants, e)
	}
	storage.SortEntrants(entrants)
	return entrants, nil
}

// Hand operations

func (s *Storage) SaveHand(ctx context.Context, hand *model.Hand) error {
	data, err := json.Marshal(hand)
	if err != nil {
		return err
	}

	hKey := handKey(hand.SessionID, hand.PlayerID)
	indexKey := handsIndexKey(hand.SessionID)

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, hKey, data, s.cfg.SessionTTL)
	pipe.SAdd(ctx, indexKey, hKey)
	pipe.Expire(ctx, indexKey, s.cfg.SessionTTL) // Keep index TTL in sync
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetHand(ctx context.Context, id model.SessionID, playerID model.PlayerID) (*model.Hand, error) {
	var hand model.Hand
	if err := s.getJSON(ctx, handKey(id, playerID), &hand, model.ErrHandNotFound); err != nil {
		return nil, err
	}
	return &hand, nil
}

func (s *Storage) GetHands(ctx context.Context, id model.SessionID) ([]*model.Hand, error) {
	handKeys, err := s.client.SMembers(ctx, handsIndexKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(handKeys) == 0 {
		return []*model.Hand{}, nil
	}

	values, err := s.client.MGet(ctx, handKeys...).Result()
	if err != nil {
		return nil, err
	}

	hands := make([]*model.Hand, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Hand may have expired
		}
		var hand model.Hand
		if err := json.Unmarshal([]byte(str), &hand); err != nil {
			continue // Skip invalid data
		}
		hands = append(hands, &hand)
	}
	sort.Slice(hands, func(i, j int) bool { return hands[i].PlayerID < hands[j].PlayerID })
	return hands, nil
}

func (s *Storage) UpdateHand(ctx context.Context, id model.SessionID, playerID model.PlayerID, mutate storage.HandMutation) (*model.Hand, error) {
	key := handKey(id, playerID)
	var result *model.Hand

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrHandNotFound
			}
			return err
		}

		var hand model.Hand
		if err := json.Unmarshal(data, &hand); err != nil {
			return err
		}
		if err := mutate(&hand); err != nil {
			return err
		}

		out, err := json.Marshal(&hand)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, s.cfg.SessionTTL)
			return nil
		})
		if err != nil {
			return err
		}
		result = &hand
		return nil
	}

	if err := s.watch(ctx, txf, key); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) DeleteHands(ctx context.Context, id model.SessionID) error {
	return s.deleteIndexed(ctx, handsIndexKey(id))
}

// Slot operations

func (s *Storage) SaveSlots(ctx context.Context, slots *model.SlotAssignment) error {
	data, err := json.Marshal(slots)
	if err != nil {
		return err
	}

	key := slotsKey(slots.SessionID, slots.Round)
	indexKey := slotRoundsIndexKey(slots.SessionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, string(slots.PlayerID), data)
	pipe.Expire(ctx, key, s.cfg.SessionTTL)
	pipe.SAdd(ctx, indexKey, key)
	pipe.Expire(ctx, indexKey, s.cfg.SessionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSlots(ctx context.Context, id model.SessionID, playerID model.PlayerID, round int) (*model.SlotAssignment, error) {
	data, err := s.client.HGet(ctx, slotsKey(id, round), string(playerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSlotsNotFound
		}
		return nil, err
	}

	var slots model.SlotAssignment
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, err
	}
	return &slots, nil
}

func (s *Storage) GetSlotsForRound(ctx context.Context, id model.SessionID, round int) ([]*model.SlotAssignment, error) {
	values, err := s.client.HGetAll(ctx, slotsKey(id, round)).Result()
	if err != nil {
		return nil, err
	}

	result := make([]*model.SlotAssignment, 0, len(values))
	for _, val := range values {
		var slots model.SlotAssignment
		if err := json.Unmarshal([]byte(val), &slots); err != nil {
			continue // Skip invalid data
		}
		result = append(result, &slots)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].PlayerID < result[j].PlayerID })
	return result, nil
}

func (s *Storage) DeleteSlots(ctx context.Context, id model.SessionID) error {
	return s.deleteIndexed(ctx, slotRoundsIndexKey(id))
}

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileKey(profile.PlayerID), data, 0).Err() // No TTL
}

func (s *Storage) GetProfile(ctx context.Context, playerID model.PlayerID) (*model.Profile, error) {
	var profile model.Profile
	if err := s.getJSON(ctx, profileKey(playerID), &profile, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Account operations

func (s *Storage) SaveAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, accountKey(account.PlayerID), data, 0) // No TTL
	pipe.Set(ctx, usernameIndexKey(account.Username), string(account.PlayerID), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetAccount(ctx context.Context, playerID model.PlayerID) (*model.Account, error) {
	var account model.Account
	if err := s.getJSON(ctx, accountKey(playerID), &account, model.ErrPlayerNotFound); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Storage) GetAccountByUsername(ctx context.Context, username string) (*model.Account, error) {
	// Look up player ID from username index
	playerIDStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetAccount(ctx, model.PlayerID(playerIDStr))
}

// Notifications

func (s *Storage) Publish(ctx context.Context, event model.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.client.Publish(ctx, eventsChannel(event.SessionID), data).Err()
}

func (s *Storage) Subscribe(ctx context.Context, id model.SessionID) (<-chan model.Event, error) {
	pubsub := s.client.Subscribe(ctx, eventsChannel(id))

	// Wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	out := make(chan model.Event, 64)
	go func() {
		defer close(out)
		defer func() { _ = pubsub.Close() }()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event model.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					continue // Skip invalid data
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()

	return out, nil
}

// watch runs txf under WATCH on keys, retrying when a concurrent write
// aborts the transaction
func (s *Storage) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return model.ErrConflict
}

// getJSON reads and decodes a JSON value, mapping a missing key to notFound
func (s *Storage) getJSON(ctx context.Context, key string, out any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound
		}
		return err
	}
	return json.Unmarshal(data, out)
}

// deleteIndexed deletes every key listed in an index SET and the index itself
func (s *Storage) deleteIndexed(ctx context.Context, indexKey string) error {
	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}

	// Delete all members and the index in one pipeline
	pipe := s.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}
