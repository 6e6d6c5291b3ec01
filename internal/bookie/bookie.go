// Package bookie funds and settles rounds. Placement reserves the live
// round slot, then debits the stake and writes the round row in one
// transaction; settlement credits the payout and releases the slot.
package bookie

import (
	"context"
	"errors"
	"fmt"

	"github.com/AmaanSayyad/Arbnomo/internal/state"
	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidBookieConfig reports a misconfigured Bookie.
var ErrInvalidBookieConfig = errors.New("invalid bookie config")

// Bookie places admitted bets and settles finished rounds.
type Bookie struct {
	store  betstore.Store
	rounds state.RoundState
	nowFn  func() int64
	logger *zap.Logger
}

// Option customizes a Bookie.
type Option func(*Bookie)

// WithLogger attaches a structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(bookie *Bookie) {
		if logger != nil {
			bookie.logger = logger
		}
	}
}

// NewBookie wires a Bookie over the store and the live round state.
func NewBookie(persistence betstore.Store, rounds state.RoundState, now func() int64, options ...Option) (*Bookie, error) {
	if persistence == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidBookieConfig)
	}
	if rounds == nil {
		return nil, fmt.Errorf("%w: round state dependency is nil", ErrInvalidBookieConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidBookieConfig)
	}
	bookie := &Bookie{
		store:  persistence,
		rounds: rounds,
		nowFn:  now,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(bookie)
		}
	}
	return bookie, nil
}

// PlaceBet opens a funded round for an admitted bet. The live round slot is
// claimed first so concurrent placements lose before any money moves; the
// stake debit and the round row then commit together. The store's funds
// guard is the final authority even after validation admitted the bet.
func (bookie *Bookie) PlaceBet(ctx context.Context, wallet betflow.WalletAddress, cell betflow.TargetCell, amount betflow.BetAmount) (betflow.Round, error) {
	round := betflow.Round{
		ID:              uuid.NewString(),
		Wallet:          wallet.String(),
		TargetID:        cell.ID.String(),
		Stake:           amount.Float64(),
		OpenedAtUnixUTC: bookie.nowFn(),
	}
	if err := bookie.rounds.SetActive(ctx, round); err != nil {
		return betflow.Round{}, err
	}
	err := bookie.store.WithTx(ctx, func(ctx context.Context, txStore betstore.Store) error {
		if _, err := txStore.DebitBalance(ctx, wallet, round.Stake); err != nil {
			return err
		}
		return txStore.OpenRound(ctx, round)
	})
	if err != nil {
		if clearErr := bookie.rounds.Clear(ctx, round.ID); clearErr != nil {
			bookie.logger.Warn("live round slot not released",
				zap.String("round_id", round.ID),
				zap.Error(clearErr),
			)
		}
		return betflow.Round{}, err
	}
	bookie.logger.Info("round opened",
		zap.String("round_id", round.ID),
		zap.String("wallet", round.Wallet),
		zap.String("target_id", round.TargetID),
		zap.Float64("stake", round.Stake),
	)
	return round, nil
}

// CloseRound settles the live round: a win credits stake times the target
// multiplier, a loss keeps the stake with the house. The settlement and the
// credit commit together, then the live slot is released.
func (bookie *Bookie) CloseRound(ctx context.Context, roundID string, won bool) (float64, error) {
	round, active, err := bookie.rounds.ActiveRound(ctx)
	if err != nil {
		return 0, err
	}
	if !active || round.ID != roundID {
		return 0, fmt.Errorf("%w: %s", betflow.ErrUnknownRound, roundID)
	}
	payout := float64(0)
	if won {
		catalog, err := bookie.store.LoadCatalog(ctx)
		if err != nil {
			return 0, err
		}
		cell, found := catalog.Lookup(round.TargetID)
		if !found {
			return 0, fmt.Errorf("%w: %s", betflow.ErrUnknownTarget, round.TargetID)
		}
		payout = round.Stake * cell.Multiplier
	}
	wallet, err := betflow.NewWalletAddress(round.Wallet)
	if err != nil {
		return 0, err
	}
	settledAt := bookie.nowFn()
	err = bookie.store.WithTx(ctx, func(ctx context.Context, txStore betstore.Store) error {
		if err := txStore.SettleRound(ctx, roundID, payout, settledAt); err != nil {
			return err
		}
		if payout > 0 {
			if _, err := txStore.CreditBalance(ctx, wallet, payout); err != nil {
				return err
			}
		}
		return nil
	})
	// A round settled by an earlier attempt still needs its live slot cleared.
	if err != nil && !errors.Is(err, betflow.ErrUnknownRound) {
		return 0, err
	}
	if err := bookie.rounds.Clear(ctx, roundID); err != nil && !errors.Is(err, betflow.ErrUnknownRound) {
		return 0, err
	}
	bookie.logger.Info("round settled",
		zap.String("round_id", roundID),
		zap.Bool("won", won),
		zap.Float64("payout", payout),
	)
	return payout, nil
}
