// Package store defines the persistence contract behind the betting flow:
// wallet profiles, round history, and the target catalog.
package store

import (
	"context"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// RoundStatus tracks a stored round through its lifecycle.
type RoundStatus string

// Round lifecycle states.
const (
	RoundStatusOpen    RoundStatus = "open"
	RoundStatusSettled RoundStatus = "settled"
)

// String returns the stored status value.
func (status RoundStatus) String() string {
	return string(status)
}

// RoundRecord is the stored view of a round, including settlement state.
// SettledAtUnixUTC is zero while the round is open.
type RoundRecord struct {
	ID               string
	Wallet           string
	TargetID         string
	Stake            float64
	Payout           float64
	Status           RoundStatus
	OpenedAtUnixUTC  int64
	SettledAtUnixUTC int64
}

// Store abstracts persistence for profiles, rounds, and the catalog.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	EnsureProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error)
	GetProfile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error)
	MarkAuthorized(ctx context.Context, wallet betflow.WalletAddress, code betflow.AccessCode, redeemedAtUnixUTC int64) error
	CreditBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error)
	DebitBalance(ctx context.Context, wallet betflow.WalletAddress, amount float64) (betflow.Profile, error)
	OpenRound(ctx context.Context, round betflow.Round) error
	SettleRound(ctx context.Context, roundID string, payout float64, settledAtUnixUTC int64) error
	ListRounds(ctx context.Context, wallet betflow.WalletAddress, limit int) ([]RoundRecord, error)
	LoadCatalog(ctx context.Context) (betflow.Catalog, error)
	SeedCatalog(ctx context.Context, cells []betflow.TargetCell) error
}
