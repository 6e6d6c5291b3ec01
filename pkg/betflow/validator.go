package betflow

import (
	"fmt"
	"strings"
)

// Reason classifies why a candidate bet was rejected.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonAuthenticationRequired Reason = "authentication_required"
	ReasonAuthorizationRequired  Reason = "authorization_required"
	ReasonRoundInProgress        Reason = "round_in_progress"
	ReasonSelectionMissing       Reason = "selection_missing"
	ReasonAmountInvalid          Reason = "amount_invalid"
	ReasonInsufficientFunds      Reason = "insufficient_funds"
)

// User-facing rejection texts. The insufficient-funds message is built per
// snapshot because it embeds the balance and currency symbol.
const (
	messageConnectWallet          = "connect wallet to place a bet"
	messageInitializationRequired = "initialization required"
	messageRoundInProgress        = "round in progress, wait for settlement"
	messageSelectTarget           = "select a target"
	messageInvalidAmount          = "invalid bet amount"
	messageBetAccepted            = "bet accepted"
)

// Decision is the classified outcome of a validation. The validator always
// returns a Decision, never an error.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// admissionRule pairs a rejection predicate with the decision it produces.
type admissionRule struct {
	rejects  func(snapshot Snapshot, candidate CandidateBet) bool
	decision func(snapshot Snapshot, candidate CandidateBet) Decision
}

// admissionRules is the ordered chain; the first matching rule decides, so
// the user sees exactly one message and earlier rules always win (a round in
// progress outranks an unaffordable amount).
var admissionRules = []admissionRule{
	{
		rejects: func(snapshot Snapshot, _ CandidateBet) bool {
			return !snapshot.Session.Connected
		},
		decision: func(Snapshot, CandidateBet) Decision {
			return rejection(ReasonAuthenticationRequired, messageConnectWallet)
		},
	},
	{
		rejects: func(snapshot Snapshot, _ CandidateBet) bool {
			return snapshot.Session.Locked()
		},
		decision: func(Snapshot, CandidateBet) Decision {
			return rejection(ReasonAuthorizationRequired, messageInitializationRequired)
		},
	},
	{
		rejects: func(snapshot Snapshot, _ CandidateBet) bool {
			return snapshot.RoundActive
		},
		decision: func(Snapshot, CandidateBet) Decision {
			return rejection(ReasonRoundInProgress, messageRoundInProgress)
		},
	},
	{
		rejects: func(snapshot Snapshot, candidate CandidateBet) bool {
			_, found := snapshot.Catalog.Lookup(candidate.TargetID)
			return strings.TrimSpace(candidate.TargetID) == "" || !found
		},
		decision: func(Snapshot, CandidateBet) Decision {
			return rejection(ReasonSelectionMissing, messageSelectTarget)
		},
	},
	{
		rejects: func(_ Snapshot, candidate CandidateBet) bool {
			_, err := ParseBetAmount(candidate.AmountText)
			return err != nil
		},
		decision: func(Snapshot, CandidateBet) Decision {
			return rejection(ReasonAmountInvalid, messageInvalidAmount)
		},
	},
	{
		rejects: func(snapshot Snapshot, candidate CandidateBet) bool {
			amount, err := ParseBetAmount(candidate.AmountText)
			if err != nil {
				return false
			}
			return amount.Float64() > snapshot.Balance.Float64()
		},
		decision: func(snapshot Snapshot, _ CandidateBet) Decision {
			message := fmt.Sprintf("insufficient balance: %s %s available", snapshot.Balance.Display(), snapshot.Currency.Symbol)
			return rejection(ReasonInsufficientFunds, message)
		},
	},
}

// ValidateBet runs the ordered admission rules against one snapshot. The
// snapshot must be captured before the call; the validator never reads state
// from anywhere else and never mutates its inputs.
func ValidateBet(snapshot Snapshot, candidate CandidateBet) Decision {
	for _, rule := range admissionRules {
		if rule.rejects(snapshot, candidate) {
			return rule.decision(snapshot, candidate)
		}
	}
	return Decision{Allowed: true, Message: messageBetAccepted}
}

func rejection(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}
