// Package memstate keeps the live round in process memory. Suitable for a
// single daemon instance and for tests; multi-instance deployments use
// redisstate instead.
package memstate

import (
	"context"
	"sync"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// State is a mutex-guarded live-round record.
type State struct {
	mutex  sync.Mutex
	round  betflow.Round
	active bool
}

// New returns an empty State with no active round.
func New() *State {
	return &State{}
}

// ActiveRound returns the live round, if one is outstanding.
func (state *State) ActiveRound(_ context.Context) (betflow.Round, bool, error) {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	if !state.active {
		return betflow.Round{}, false, nil
	}
	return state.round, true, nil
}

// SetActive records the round as live. A second round while one is active is
// refused.
func (state *State) SetActive(_ context.Context, round betflow.Round) error {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	if state.active {
		return betflow.ErrRoundInFlight
	}
	state.round = round
	state.active = true
	return nil
}

// Clear removes the active round. The caller must name the round it believes
// is live, so a stale settlement cannot clear a newer round.
func (state *State) Clear(_ context.Context, roundID string) error {
	state.mutex.Lock()
	defer state.mutex.Unlock()
	if !state.active || state.round.ID != roundID {
		return betflow.ErrUnknownRound
	}
	state.round = betflow.Round{}
	state.active = false
	return nil
}
