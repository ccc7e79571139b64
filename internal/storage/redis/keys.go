package redis

import (
	"fmt"

	"github.com/mcoot/diamondsgame/internal/model"
)

// Key prefix for all trial data
const keyPrefix = "diamonds"

// stateKey returns the Redis key for a session's GameState
func stateKey(id model.SessionID) string {
	return fmt.Sprintf("%s:state:%s", keyPrefix, id)
}

// sessionsIndexKey returns the Redis key for the SET of known sessions
func sessionsIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}

// entrantsKey returns the Redis key for the HASH of a session's entrants
func entrantsKey(id model.SessionID) string {
	return fmt.Sprintf("%s:entrants:%s", keyPrefix, id)
}

// handKey returns the Redis key for a player's hand
func handKey(id model.SessionID, playerID model.PlayerID) string {
	return fmt.Sprintf("%s:hand:%s:%s", keyPrefix, id, playerID)
}

// handsIndexKey returns the Redis key for the SET of hand keys in a session
func handsIndexKey(id model.SessionID) string {
	return fmt.Sprintf("%s:idx:hands:%s", keyPrefix, id)
}

// slotsKey returns the Redis key for the HASH of slot assignments in a round
func slotsKey(id model.SessionID, round int) string {
	return fmt.Sprintf("%s:slots:%s:%d", keyPrefix, id, round)
}

// slotRoundsIndexKey returns the Redis key for the SET of slot hashes in a session
func slotRoundsIndexKey(id model.SessionID) string {
	return fmt.Sprintf("%s:idx:slot_rounds:%s", keyPrefix, id)
}

// profileKey returns the Redis key for a player's profile
func profileKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:profile:%s", keyPrefix, playerID)
}

// accountKey returns the Redis key for a registered account
func accountKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:account:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// eventsChannel returns the pub/sub channel for a session's notifications
func eventsChannel(id model.SessionID) string {
	return fmt.Sprintf("%s:events:%s", keyPrefix, id)
}
