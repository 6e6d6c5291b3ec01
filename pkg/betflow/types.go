package betflow

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// WalletAddress identifies the bettor's wallet in canonical checksum form.
type WalletAddress struct {
	value string
}

// AccessCode is a normalized one-time betting credential.
type AccessCode struct {
	value string
}

// BetAmount is a wager amount parsed from user-entered text.
type BetAmount struct {
	value float64
}

// TargetID identifies a wager option within the catalog.
type TargetID struct {
	value string
}

// HouseBalance is the spendable wagering balance held for a wallet.
type HouseBalance struct {
	value float64
}

// NewWalletAddress validates and canonicalizes a wallet address.
func NewWalletAddress(raw string) (WalletAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return WalletAddress{}, fmt.Errorf("%w: empty value", ErrInvalidWalletAddress)
	}
	if !common.IsHexAddress(trimmed) {
		return WalletAddress{}, fmt.Errorf("%w: not a hex address", ErrInvalidWalletAddress)
	}
	return WalletAddress{value: common.HexToAddress(trimmed).Hex()}, nil
}

// String returns the checksum-cased address.
func (address WalletAddress) String() string {
	return address.value
}

// IsZero reports whether no address is set.
func (address WalletAddress) IsZero() bool {
	return address.value == ""
}

// NewAccessCode validates and normalizes an access code (trim, uppercase).
func NewAccessCode(raw string) (AccessCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return AccessCode{}, fmt.Errorf("%w: empty value", ErrInvalidAccessCode)
	}
	return AccessCode{value: normalized}, nil
}

// String returns the normalized code.
func (code AccessCode) String() string {
	return code.value
}

// ParseBetAmount validates user-entered amount text. The amount must parse as
// a strictly positive finite number.
func ParseBetAmount(raw string) (BetAmount, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return BetAmount{}, fmt.Errorf("%w: empty value", ErrInvalidBetAmount)
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return BetAmount{}, fmt.Errorf("%w: not a number", ErrInvalidBetAmount)
	}
	if math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return BetAmount{}, fmt.Errorf("%w: not finite", ErrInvalidBetAmount)
	}
	if parsed <= 0 {
		return BetAmount{}, fmt.Errorf("%w: must be greater than zero", ErrInvalidBetAmount)
	}
	return BetAmount{value: parsed}, nil
}

// Float64 returns the parsed amount.
func (amount BetAmount) Float64() float64 {
	return amount.value
}

// Display renders the amount at fixed 4-decimal precision.
func (amount BetAmount) Display() string {
	return FormatAmount(amount.value)
}

// NewTargetID validates and normalizes a target id.
func NewTargetID(raw string) (TargetID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TargetID{}, fmt.Errorf("%w: empty value", ErrInvalidTargetID)
	}
	return TargetID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TargetID) String() string {
	return id.value
}

// NewHouseBalance validates a balance snapshot value.
func NewHouseBalance(raw float64) (HouseBalance, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return HouseBalance{}, fmt.Errorf("%w: not finite", ErrInvalidHouseBalance)
	}
	if raw < 0 {
		return HouseBalance{}, fmt.Errorf("%w: must not be negative", ErrInvalidHouseBalance)
	}
	return HouseBalance{value: raw}, nil
}

// Float64 returns the balance value.
func (balance HouseBalance) Float64() float64 {
	return balance.value
}

// Display renders the balance at fixed 4-decimal precision.
func (balance HouseBalance) Display() string {
	return FormatAmount(balance.value)
}

// TargetCell is a selectable wager option with a payout multiplier.
type TargetCell struct {
	ID         TargetID
	Label      string
	Multiplier float64
}

// NewTargetCell validates a catalog cell.
func NewTargetCell(id TargetID, label string, multiplier float64) (TargetCell, error) {
	if strings.TrimSpace(label) == "" {
		return TargetCell{}, fmt.Errorf("%w: empty label", ErrInvalidTargetCell)
	}
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return TargetCell{}, fmt.Errorf("%w: multiplier must be a positive finite number", ErrInvalidTargetCell)
	}
	return TargetCell{ID: id, Label: label, Multiplier: multiplier}, nil
}

// Catalog is the ordered set of target cells offered to bettors.
type Catalog struct {
	cells []TargetCell
	byID  map[string]TargetCell
}

// NewCatalog validates and indexes the cell list, preserving order.
func NewCatalog(cells []TargetCell) (Catalog, error) {
	indexed := make(map[string]TargetCell, len(cells))
	ordered := make([]TargetCell, 0, len(cells))
	for _, cell := range cells {
		if _, exists := indexed[cell.ID.String()]; exists {
			return Catalog{}, fmt.Errorf("%w: %s", ErrDuplicateTargetCell, cell.ID.String())
		}
		indexed[cell.ID.String()] = cell
		ordered = append(ordered, cell)
	}
	return Catalog{cells: ordered, byID: indexed}, nil
}

// Lookup resolves a raw target id to its cell.
func (catalog Catalog) Lookup(rawID string) (TargetCell, bool) {
	cell, found := catalog.byID[strings.TrimSpace(rawID)]
	return cell, found
}

// Cells returns the cells in catalog order.
func (catalog Catalog) Cells() []TargetCell {
	out := make([]TargetCell, len(catalog.cells))
	copy(out, catalog.cells)
	return out
}

// Size returns the number of cells.
func (catalog Catalog) Size() int {
	return len(catalog.cells)
}

// Round is one betting window. Its presence in a snapshot means a bet is
// outstanding and new bets are rejected until settlement.
type Round struct {
	ID              string
	Wallet          string
	TargetID        string
	Stake           float64
	OpenedAtUnixUTC int64
}

// CandidateBet is raw user input awaiting validation. The amount stays text
// until the validator parses it.
type CandidateBet struct {
	TargetID   string
	AmountText string
}

// Profile is the house-side view of a wallet: spendable balance plus whether
// an access code has been redeemed for it.
type Profile struct {
	Wallet        WalletAddress
	Balance       HouseBalance
	AccessGranted bool
}

// Snapshot is the immutable state one validation reads. It is captured once,
// before any rule runs, and never mutated afterwards.
type Snapshot struct {
	Session        Session
	Balance        HouseBalance
	RoundActive    bool
	Round          Round
	Catalog        Catalog
	Network        Network
	Currency       Currency
	TakenAtUnixUTC int64
}
