package betflow

import (
	"context"
	"fmt"
)

// ProfileSource supplies wallet profiles. Refresh re-reads the authoritative
// record after a verification clears.
type ProfileSource interface {
	Profile(ctx context.Context, wallet WalletAddress) (Profile, error)
	Refresh(ctx context.Context, wallet WalletAddress) (Profile, error)
}

// RoundSource reports the live round, if one is outstanding.
type RoundSource interface {
	ActiveRound(ctx context.Context) (Round, bool, error)
}

// CatalogSource supplies the target catalog.
type CatalogSource interface {
	Catalog(ctx context.Context) (Catalog, error)
}

// CodeVerifier performs the access-code round trip. Implementations classify
// every completion into a VerificationResult; the error return is reserved
// for programming mistakes (nil context, unconfigured client).
type CodeVerifier interface {
	Verify(ctx context.Context, code AccessCode, wallet WalletAddress) (VerificationResult, error)
}

// BetPlacer submits an admitted bet to the round subsystem.
type BetPlacer interface {
	PlaceBet(ctx context.Context, wallet WalletAddress, cell TargetCell, amount BetAmount) (Round, error)
}

// Quote pairs a validation decision with the payout projection.
type Quote struct {
	Decision Decision
	Payout   string
}

// Placement is the outcome of a place-bet attempt. Round is set only when
// the decision admitted the bet and the placer accepted it.
type Placement struct {
	Decision Decision
	Payout   string
	Round    Round
}

// Service drives the admission flow over its external collaborators.
type Service struct {
	profiles ProfileSource
	rounds   RoundSource
	catalogs CatalogSource
	verifier CodeVerifier
	placer   BetPlacer
	network  Network
	nowFn    func() int64
	logger   DecisionLogger
}

// NewService wires a Service.
func NewService(profiles ProfileSource, rounds RoundSource, catalogs CatalogSource, verifier CodeVerifier, placer BetPlacer, network Network, now func() int64, options ...ServiceOption) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("%w: profile source dependency is nil", ErrInvalidServiceConfig)
	}
	if rounds == nil {
		return nil, fmt.Errorf("%w: round source dependency is nil", ErrInvalidServiceConfig)
	}
	if catalogs == nil {
		return nil, fmt.Errorf("%w: catalog source dependency is nil", ErrInvalidServiceConfig)
	}
	if verifier == nil {
		return nil, fmt.Errorf("%w: verifier dependency is nil", ErrInvalidServiceConfig)
	}
	if placer == nil {
		return nil, fmt.Errorf("%w: placer dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		profiles: profiles,
		rounds:   rounds,
		catalogs: catalogs,
		verifier: verifier,
		placer:   placer,
		network:  network,
		nowFn:    now,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Snapshot captures one consistent view of everything a validation reads.
// The profile is the authority on access: a redeemed code promotes the
// session to granted, but a missing one never demotes it mid-session.
func (service *Service) Snapshot(ctx context.Context, session Session) (Snapshot, error) {
	snapshot := Snapshot{
		Session:        session,
		Network:        service.network,
		Currency:       ResolveCurrency(service.network, session.SelectedCurrency),
		TakenAtUnixUTC: service.nowFn(),
	}
	catalog, err := service.catalogs.Catalog(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.Catalog = catalog
	if session.Connected {
		profile, err := service.profiles.Profile(ctx, session.Wallet)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.Balance = profile.Balance
		if profile.AccessGranted {
			snapshot.Session.Access = AccessGranted
		}
	}
	round, active, err := service.rounds.ActiveRound(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.Round = round
	snapshot.RoundActive = active
	return snapshot, nil
}

// QuoteBet validates the candidate against the snapshot and projects the
// payout. No side effects.
func (service *Service) QuoteBet(snapshot Snapshot, candidate CandidateBet) Quote {
	return Quote{
		Decision: ValidateBet(snapshot, candidate),
		Payout:   PotentialPayout(candidate, snapshot.Catalog),
	}
}

// PlaceBet captures a fresh snapshot, validates the candidate, and hands an
// admitted bet to the external placer. The decision is returned either way;
// the error return carries only collaborator failures.
func (service *Service) PlaceBet(ctx context.Context, session Session, candidate CandidateBet) (Placement, error) {
	snapshot, err := service.Snapshot(ctx, session)
	if err != nil {
		service.logDecision(ctx, DecisionLog{
			Operation: OperationSnapshot,
			Wallet:    session.Wallet.String(),
			Error:     err,
		})
		return Placement{}, err
	}
	decision := ValidateBet(snapshot, candidate)
	placement := Placement{
		Decision: decision,
		Payout:   PotentialPayout(candidate, snapshot.Catalog),
	}
	entry := DecisionLog{
		Operation: OperationPlaceBet,
		Wallet:    session.Wallet.String(),
		TargetID:  candidate.TargetID,
		Amount:    candidate.AmountText,
		Reason:    decision.Reason,
		Outcome:   decision.Message,
	}
	if !decision.Allowed {
		service.logDecision(ctx, entry)
		return placement, nil
	}
	cell, found := snapshot.Catalog.Lookup(candidate.TargetID)
	if !found {
		return Placement{}, fmt.Errorf("%w: %s", ErrUnknownTarget, candidate.TargetID)
	}
	amount, err := ParseBetAmount(candidate.AmountText)
	if err != nil {
		return Placement{}, err
	}
	round, err := service.placer.PlaceBet(ctx, session.Wallet, cell, amount)
	entry.Error = err
	service.logDecision(ctx, entry)
	if err != nil {
		return Placement{}, err
	}
	placement.Round = round
	return placement, nil
}

// SubmitAccessCode normalizes and verifies the code, then refreshes the
// wallet profile when it clears so the next snapshot sees the unlocked gate.
func (service *Service) SubmitAccessCode(ctx context.Context, session Session, rawCode string) (VerificationResult, error) {
	if !session.Connected {
		return VerificationResult{}, fmt.Errorf("%w: connect before submitting a code", ErrNotConnected)
	}
	code, err := NewAccessCode(rawCode)
	if err != nil {
		return VerificationResult{}, err
	}
	result, err := service.verifier.Verify(ctx, code, session.Wallet)
	entry := DecisionLog{
		Operation: OperationSubmitCode,
		Wallet:    session.Wallet.String(),
		Outcome:   string(result.Outcome),
		Error:     err,
	}
	if err != nil {
		service.logDecision(ctx, entry)
		return VerificationResult{}, err
	}
	if result.Verified() {
		if _, refreshErr := service.profiles.Refresh(ctx, session.Wallet); refreshErr != nil {
			entry.Error = refreshErr
			service.logDecision(ctx, entry)
			return result, refreshErr
		}
	}
	service.logDecision(ctx, entry)
	return result, nil
}

func (service *Service) logDecision(ctx context.Context, entry DecisionLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogDecision(ctx, entry)
}
