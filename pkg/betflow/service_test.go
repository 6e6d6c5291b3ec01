package betflow

import (
	"context"
	"errors"
	"testing"
)

const (
	serviceWalletValue   = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	errCollaboratorText  = "collaborator error"
	errorMismatchMessage = "expected %v, got %v"
)

var errCollaboratorFailure = errors.New(errCollaboratorText)

type stubProfiles struct {
	profile    Profile
	profileErr error
	refreshErr error
	refreshed  []WalletAddress
}

func (stub *stubProfiles) Profile(_ context.Context, _ WalletAddress) (Profile, error) {
	if stub.profileErr != nil {
		return Profile{}, stub.profileErr
	}
	return stub.profile, nil
}

func (stub *stubProfiles) Refresh(_ context.Context, wallet WalletAddress) (Profile, error) {
	if stub.refreshErr != nil {
		return Profile{}, stub.refreshErr
	}
	stub.refreshed = append(stub.refreshed, wallet)
	stub.profile.AccessGranted = true
	return stub.profile, nil
}

type stubRounds struct {
	round  Round
	active bool
	err    error
}

func (stub *stubRounds) ActiveRound(context.Context) (Round, bool, error) {
	if stub.err != nil {
		return Round{}, false, stub.err
	}
	return stub.round, stub.active, nil
}

type stubCatalogs struct {
	catalog Catalog
	err     error
}

func (stub *stubCatalogs) Catalog(context.Context) (Catalog, error) {
	if stub.err != nil {
		return Catalog{}, stub.err
	}
	return stub.catalog, nil
}

type stubVerifier struct {
	result VerificationResult
	err    error
	codes  []AccessCode
}

func (stub *stubVerifier) Verify(_ context.Context, code AccessCode, _ WalletAddress) (VerificationResult, error) {
	stub.codes = append(stub.codes, code)
	if stub.err != nil {
		return VerificationResult{}, stub.err
	}
	return stub.result, nil
}

type placedBet struct {
	wallet WalletAddress
	cell   TargetCell
	amount BetAmount
}

type stubPlacer struct {
	round  Round
	err    error
	placed []placedBet
}

func (stub *stubPlacer) PlaceBet(_ context.Context, wallet WalletAddress, cell TargetCell, amount BetAmount) (Round, error) {
	if stub.err != nil {
		return Round{}, stub.err
	}
	stub.placed = append(stub.placed, placedBet{wallet: wallet, cell: cell, amount: amount})
	return stub.round, nil
}

type serviceFixture struct {
	profiles *stubProfiles
	rounds   *stubRounds
	catalogs *stubCatalogs
	verifier *stubVerifier
	placer   *stubPlacer
}

func newServiceFixture(test *testing.T, balance float64) *serviceFixture {
	test.Helper()
	wallet := mustWalletAddress(test, serviceWalletValue)
	return &serviceFixture{
		profiles: &stubProfiles{profile: Profile{
			Wallet:        wallet,
			Balance:       mustHouseBalance(test, balance),
			AccessGranted: true,
		}},
		rounds:   &stubRounds{},
		catalogs: &stubCatalogs{catalog: standardCatalog(test)},
		verifier: &stubVerifier{result: VerificationResult{Outcome: VerificationVerified, Message: MessageVerificationOK}},
		placer:   &stubPlacer{round: Round{ID: "round-1", Wallet: serviceWalletValue}},
	}
}

func mustServiceFromFixture(test *testing.T, fixture *serviceFixture, options ...ServiceOption) *Service {
	test.Helper()
	service, err := NewService(fixture.profiles, fixture.rounds, fixture.catalogs, fixture.verifier, fixture.placer, NetworkArbitrumOne, func() int64 { return 42 }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func connectedTestSession(test *testing.T, access AccessStatus) Session {
	test.Helper()
	return ConnectedSession(mustWalletAddress(test, serviceWalletValue), access)
}

func TestSnapshotAssemblesState(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.rounds.active = true
	fixture.rounds.round = Round{ID: "round-7"}
	service := mustServiceFromFixture(test, fixture)
	session := connectedTestSession(test, AccessUnknown)
	session.SelectedCurrency = "usdc"

	snapshot, err := service.Snapshot(context.Background(), session)
	if err != nil {
		test.Fatalf("snapshot: %v", err)
	}
	if snapshot.Balance.Float64() != 10 {
		test.Fatalf("expected balance 10, got %v", snapshot.Balance.Float64())
	}
	if snapshot.Session.Access != AccessGranted {
		test.Fatalf("expected profile to promote access, got %s", snapshot.Session.Access)
	}
	if !snapshot.RoundActive || snapshot.Round.ID != "round-7" {
		test.Fatalf("expected active round-7, got %+v", snapshot.Round)
	}
	if snapshot.Catalog.Size() != 2 {
		test.Fatalf("expected catalog of 2, got %d", snapshot.Catalog.Size())
	}
	if snapshot.Currency.Symbol != "USDC" {
		test.Fatalf("expected override currency USDC, got %s", snapshot.Currency.Symbol)
	}
	if snapshot.TakenAtUnixUTC != 42 {
		test.Fatalf("expected snapshot clock 42, got %d", snapshot.TakenAtUnixUTC)
	}
}

func TestSnapshotSkipsProfileWhenDisconnected(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.profiles.profileErr = errCollaboratorFailure
	service := mustServiceFromFixture(test, fixture)

	snapshot, err := service.Snapshot(context.Background(), DisconnectedSession())
	if err != nil {
		test.Fatalf("snapshot: %v", err)
	}
	if snapshot.Session.Connected {
		test.Fatalf("expected disconnected snapshot")
	}
	if snapshot.Balance.Float64() != 0 {
		test.Fatalf("expected zero balance, got %v", snapshot.Balance.Float64())
	}
}

func TestSnapshotDoesNotDemoteGrantedSession(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.profiles.profile.AccessGranted = false
	service := mustServiceFromFixture(test, fixture)

	snapshot, err := service.Snapshot(context.Background(), connectedTestSession(test, AccessGranted))
	if err != nil {
		test.Fatalf("snapshot: %v", err)
	}
	if snapshot.Session.Access != AccessGranted {
		test.Fatalf("expected session to stay granted, got %s", snapshot.Session.Access)
	}
}

func TestQuoteBetProjectsPayout(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	service := mustServiceFromFixture(test, fixture)
	snapshot, err := service.Snapshot(context.Background(), connectedTestSession(test, AccessGranted))
	if err != nil {
		test.Fatalf("snapshot: %v", err)
	}

	quote := service.QuoteBet(snapshot, CandidateBet{TargetID: "cell-2x", AmountText: "4"})
	if !quote.Decision.Allowed {
		test.Fatalf("expected admission, got %+v", quote.Decision)
	}
	if quote.Payout != "8.0000" {
		test.Fatalf("expected payout 8.0000, got %q", quote.Payout)
	}
	if len(fixture.placer.placed) != 0 {
		test.Fatalf("quote must not place bets, got %d placements", len(fixture.placer.placed))
	}
}

func TestPlaceBetAdmittedCallsPlacer(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	service := mustServiceFromFixture(test, fixture)

	placement, err := service.PlaceBet(context.Background(), connectedTestSession(test, AccessUnknown), CandidateBet{TargetID: "cell-2x", AmountText: "4"})
	if err != nil {
		test.Fatalf("place bet: %v", err)
	}
	if !placement.Decision.Allowed {
		test.Fatalf("expected admission, got %+v", placement.Decision)
	}
	if placement.Round.ID != "round-1" {
		test.Fatalf("expected placed round, got %+v", placement.Round)
	}
	if placement.Payout != "8.0000" {
		test.Fatalf("expected payout 8.0000, got %q", placement.Payout)
	}
	if len(fixture.placer.placed) != 1 {
		test.Fatalf("expected one placement, got %d", len(fixture.placer.placed))
	}
	placed := fixture.placer.placed[0]
	if placed.cell.ID.String() != "cell-2x" || placed.amount.Float64() != 4 {
		test.Fatalf("unexpected placement: %+v", placed)
	}
}

func TestPlaceBetRejectedSkipsPlacer(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 3)
	service := mustServiceFromFixture(test, fixture)

	placement, err := service.PlaceBet(context.Background(), connectedTestSession(test, AccessGranted), CandidateBet{TargetID: "cell-2x", AmountText: "5"})
	if err != nil {
		test.Fatalf("place bet: %v", err)
	}
	if placement.Decision.Allowed {
		test.Fatalf("expected rejection, got %+v", placement.Decision)
	}
	if placement.Decision.Reason != ReasonInsufficientFunds {
		test.Fatalf("expected insufficient funds, got %s", placement.Decision.Reason)
	}
	if len(fixture.placer.placed) != 0 {
		test.Fatalf("rejected bet must not reach the placer")
	}
}

func TestPlaceBetReturnsPlacerError(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.placer.err = errCollaboratorFailure
	service := mustServiceFromFixture(test, fixture)

	_, err := service.PlaceBet(context.Background(), connectedTestSession(test, AccessGranted), CandidateBet{TargetID: "cell-2x", AmountText: "4"})
	if !errors.Is(err, errCollaboratorFailure) {
		test.Fatalf(errorMismatchMessage, errCollaboratorFailure, err)
	}
}

func TestSubmitAccessCodeVerifiedRefreshesProfile(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.profiles.profile.AccessGranted = false
	service := mustServiceFromFixture(test, fixture)

	result, err := service.SubmitAccessCode(context.Background(), connectedTestSession(test, AccessUnknown), "  abc1  ")
	if err != nil {
		test.Fatalf("submit code: %v", err)
	}
	if !result.Verified() {
		test.Fatalf("expected verified result, got %+v", result)
	}
	if len(fixture.verifier.codes) != 1 || fixture.verifier.codes[0].String() != "ABC1" {
		test.Fatalf("expected normalized code ABC1, got %+v", fixture.verifier.codes)
	}
	if len(fixture.profiles.refreshed) != 1 {
		test.Fatalf("expected one profile refresh, got %d", len(fixture.profiles.refreshed))
	}
}

func TestSubmitAccessCodeRejectedSkipsRefresh(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	fixture.verifier.result = VerificationResult{Outcome: VerificationRejected, Message: MessageCodeRejected}
	service := mustServiceFromFixture(test, fixture)

	result, err := service.SubmitAccessCode(context.Background(), connectedTestSession(test, AccessUnknown), "abc1")
	if err != nil {
		test.Fatalf("submit code: %v", err)
	}
	if result.Verified() {
		test.Fatalf("expected rejection, got %+v", result)
	}
	if len(fixture.profiles.refreshed) != 0 {
		test.Fatalf("rejected code must not refresh the profile")
	}
}

func TestSubmitAccessCodeRequiresConnection(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	service := mustServiceFromFixture(test, fixture)

	_, err := service.SubmitAccessCode(context.Background(), DisconnectedSession(), "abc1")
	if !errors.Is(err, ErrNotConnected) {
		test.Fatalf(errorMismatchMessage, ErrNotConnected, err)
	}
}

func TestSubmitAccessCodeRejectsEmptyCode(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 10)
	service := mustServiceFromFixture(test, fixture)

	_, err := service.SubmitAccessCode(context.Background(), connectedTestSession(test, AccessUnknown), "   ")
	if !errors.Is(err, ErrInvalidAccessCode) {
		test.Fatalf(errorMismatchMessage, ErrInvalidAccessCode, err)
	}
}

func TestServiceReturnsCollaboratorErrors(test *testing.T) {
	test.Parallel()
	testCases := []struct {
		name      string
		configure func(fixture *serviceFixture)
		run       func(service *Service, session Session) error
	}{
		{
			name: "profile lookup error",
			configure: func(fixture *serviceFixture) {
				fixture.profiles.profileErr = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.Snapshot(context.Background(), session)
				return err
			},
		},
		{
			name: "round lookup error",
			configure: func(fixture *serviceFixture) {
				fixture.rounds.err = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.Snapshot(context.Background(), session)
				return err
			},
		},
		{
			name: "catalog error",
			configure: func(fixture *serviceFixture) {
				fixture.catalogs.err = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.Snapshot(context.Background(), session)
				return err
			},
		},
		{
			name: "snapshot error during placement",
			configure: func(fixture *serviceFixture) {
				fixture.rounds.err = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.PlaceBet(context.Background(), session, CandidateBet{TargetID: "cell-2x", AmountText: "4"})
				return err
			},
		},
		{
			name: "verifier error",
			configure: func(fixture *serviceFixture) {
				fixture.verifier.err = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.SubmitAccessCode(context.Background(), session, "abc1")
				return err
			},
		},
		{
			name: "refresh error after verification",
			configure: func(fixture *serviceFixture) {
				fixture.profiles.refreshErr = errCollaboratorFailure
			},
			run: func(service *Service, session Session) error {
				_, err := service.SubmitAccessCode(context.Background(), session, "abc1")
				return err
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			fixture := newServiceFixture(test, 10)
			testCase.configure(fixture)
			service := mustServiceFromFixture(test, fixture)
			session := connectedTestSession(test, AccessGranted)

			err := testCase.run(service, session)
			if !errors.Is(err, errCollaboratorFailure) {
				test.Fatalf(errorMismatchMessage, errCollaboratorFailure, err)
			}
		})
	}
}

func TestNewServiceRequiresDependencies(test *testing.T) {
	test.Parallel()
	fixture := newServiceFixture(test, 0)
	now := func() int64 { return 0 }

	cases := []struct {
		name string
		init func() (*Service, error)
	}{
		{name: "nil profiles", init: func() (*Service, error) {
			return NewService(nil, fixture.rounds, fixture.catalogs, fixture.verifier, fixture.placer, NetworkArbitrumOne, now)
		}},
		{name: "nil rounds", init: func() (*Service, error) {
			return NewService(fixture.profiles, nil, fixture.catalogs, fixture.verifier, fixture.placer, NetworkArbitrumOne, now)
		}},
		{name: "nil catalogs", init: func() (*Service, error) {
			return NewService(fixture.profiles, fixture.rounds, nil, fixture.verifier, fixture.placer, NetworkArbitrumOne, now)
		}},
		{name: "nil verifier", init: func() (*Service, error) {
			return NewService(fixture.profiles, fixture.rounds, fixture.catalogs, nil, fixture.placer, NetworkArbitrumOne, now)
		}},
		{name: "nil placer", init: func() (*Service, error) {
			return NewService(fixture.profiles, fixture.rounds, fixture.catalogs, fixture.verifier, nil, NetworkArbitrumOne, now)
		}},
		{name: "nil clock", init: func() (*Service, error) {
			return NewService(fixture.profiles, fixture.rounds, fixture.catalogs, fixture.verifier, fixture.placer, NetworkArbitrumOne, nil)
		}},
	}
	for _, tc := range cases {
		tc := tc
		test.Run(tc.name, func(test *testing.T) {
			test.Parallel()
			_, err := tc.init()
			if !errors.Is(err, ErrInvalidServiceConfig) {
				test.Fatalf(errorMismatchMessage, ErrInvalidServiceConfig, err)
			}
		})
	}
}
