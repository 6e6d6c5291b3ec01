package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// ErrInvalidDirectoryConfig reports a misconfigured store adapter.
var ErrInvalidDirectoryConfig = errors.New("invalid directory config")

// Directory adapts a Store to the read-side lookups the betting flow needs.
type Directory struct {
	store Store
}

// NewDirectory wires a Store behind the flow's profile and catalog lookups.
func NewDirectory(persistence Store) (*Directory, error) {
	if persistence == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidDirectoryConfig)
	}
	return &Directory{store: persistence}, nil
}

// Profile returns the stored profile for the wallet, creating the default
// empty profile on first contact.
func (directory *Directory) Profile(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	return directory.store.EnsureProfile(ctx, wallet)
}

// Refresh re-reads the stored profile. Verification outcomes land in the
// store, so a fresh read is how a newly granted access flag becomes visible.
func (directory *Directory) Refresh(ctx context.Context, wallet betflow.WalletAddress) (betflow.Profile, error) {
	return directory.store.GetProfile(ctx, wallet)
}

// Catalog loads the target catalog.
func (directory *Directory) Catalog(ctx context.Context) (betflow.Catalog, error) {
	return directory.store.LoadCatalog(ctx)
}

// RedeemingVerifier decorates a CodeVerifier so that a cleared code is
// recorded on the wallet profile before the flow re-reads it.
type RedeemingVerifier struct {
	verifier betflow.CodeVerifier
	store    Store
	nowFn    func() int64
}

// NewRedeemingVerifier wires the decorator.
func NewRedeemingVerifier(verifier betflow.CodeVerifier, persistence Store, now func() int64) (*RedeemingVerifier, error) {
	if verifier == nil {
		return nil, fmt.Errorf("%w: verifier dependency is nil", ErrInvalidDirectoryConfig)
	}
	if persistence == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidDirectoryConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidDirectoryConfig)
	}
	return &RedeemingVerifier{verifier: verifier, store: persistence, nowFn: now}, nil
}

// Verify delegates to the wrapped verifier and, when the code clears, marks
// the wallet profile authorized.
func (redeemer *RedeemingVerifier) Verify(ctx context.Context, code betflow.AccessCode, wallet betflow.WalletAddress) (betflow.VerificationResult, error) {
	result, err := redeemer.verifier.Verify(ctx, code, wallet)
	if err != nil || !result.Verified() {
		return result, err
	}
	if _, err := redeemer.store.EnsureProfile(ctx, wallet); err != nil {
		return result, err
	}
	if err := redeemer.store.MarkAuthorized(ctx, wallet, code, redeemer.nowFn()); err != nil {
		return result, err
	}
	return result, nil
}
