// Package state defines the shared live-round record. Snapshots read it,
// placements set it, and settlement clears it; at most one round is active
// at a time.
package state

import (
	"context"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// RoundState is the live-round contract. SetActive refuses to stack rounds
// with betflow.ErrRoundInFlight; Clear of a round that is not the active one
// reports betflow.ErrUnknownRound.
type RoundState interface {
	ActiveRound(ctx context.Context) (betflow.Round, bool, error)
	SetActive(ctx context.Context, round betflow.Round) error
	Clear(ctx context.Context, roundID string) error
}
