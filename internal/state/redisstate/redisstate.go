// Package redisstate keeps the live round in redis so every daemon instance
// sees the same one-round-in-flight record.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// ErrInvalidStateConfig reports an unusable redis state setup.
var ErrInvalidStateConfig = errors.New("invalid redis state config")

const (
	activeRoundKey = "arbnomo:round:active"

	operationState = "state"
	subjectRound   = "round"
	codeEncode     = "encode_failed"
	codeDecode     = "decode_failed"
	codeLoad       = "load_failed"
	codeStore      = "store_failed"
	codeClear      = "clear_failed"
)

// State is a redis-backed live-round record.
type State struct {
	client *redis.Client
}

// New wires a State over an existing redis client.
func New(client *redis.Client) (*State, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrInvalidStateConfig)
	}
	return &State{client: client}, nil
}

type roundRecord struct {
	ID              string  `json:"id"`
	Wallet          string  `json:"wallet"`
	TargetID        string  `json:"target_id"`
	Stake           float64 `json:"stake"`
	OpenedAtUnixUTC int64   `json:"opened_at_unix_utc"`
}

func recordFromRound(round betflow.Round) roundRecord {
	return roundRecord{
		ID:              round.ID,
		Wallet:          round.Wallet,
		TargetID:        round.TargetID,
		Stake:           round.Stake,
		OpenedAtUnixUTC: round.OpenedAtUnixUTC,
	}
}

func (record roundRecord) toRound() betflow.Round {
	return betflow.Round{
		ID:              record.ID,
		Wallet:          record.Wallet,
		TargetID:        record.TargetID,
		Stake:           record.Stake,
		OpenedAtUnixUTC: record.OpenedAtUnixUTC,
	}
}

// ActiveRound returns the live round, if one is outstanding.
func (state *State) ActiveRound(ctx context.Context) (betflow.Round, bool, error) {
	payload, err := state.client.Get(ctx, activeRoundKey).Result()
	if err == redis.Nil {
		return betflow.Round{}, false, nil
	}
	if err != nil {
		return betflow.Round{}, false, betflow.WrapError(operationState, subjectRound, codeLoad, err)
	}
	var record roundRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return betflow.Round{}, false, betflow.WrapError(operationState, subjectRound, codeDecode, err)
	}
	return record.toRound(), true, nil
}

// SetActive records the round as live. SetNX keeps the one-round invariant
// across daemon instances.
func (state *State) SetActive(ctx context.Context, round betflow.Round) error {
	payload, err := json.Marshal(recordFromRound(round))
	if err != nil {
		return betflow.WrapError(operationState, subjectRound, codeEncode, err)
	}
	stored, err := state.client.SetNX(ctx, activeRoundKey, payload, 0).Result()
	if err != nil {
		return betflow.WrapError(operationState, subjectRound, codeStore, err)
	}
	if !stored {
		return betflow.ErrRoundInFlight
	}
	return nil
}

// clearRoundScript deletes the live round only when its id still matches,
// in one redis round trip, so a stale settlement racing another instance
// can never remove a newer round.
var clearRoundScript = redis.NewScript(`
local payload = redis.call("GET", KEYS[1])
if not payload then
	return 0
end
if cjson.decode(payload)["id"] ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

// Clear removes the active round when its id matches.
func (state *State) Clear(ctx context.Context, roundID string) error {
	cleared, err := clearRoundScript.Run(ctx, state.client, []string{activeRoundKey}, roundID).Int()
	if err != nil {
		return betflow.WrapError(operationState, subjectRound, codeClear, err)
	}
	if cleared == 0 {
		return betflow.ErrUnknownRound
	}
	return nil
}
