package betflow

// VerificationOutcome classifies one access-code round trip.
type VerificationOutcome string

const (
	// VerificationVerified means the code cleared and the profile refresh
	// will unlock the gate.
	VerificationVerified VerificationOutcome = "verified"
	// VerificationRejected means the endpoint answered and said no.
	VerificationRejected VerificationOutcome = "rejected"
	// VerificationUnavailable means the round trip could not complete; the
	// code's validity is unknown and nothing is retried automatically.
	VerificationUnavailable VerificationOutcome = "unavailable"
	// VerificationDuplicate means a round trip was already in flight and the
	// submission was dropped without a request.
	VerificationDuplicate VerificationOutcome = "duplicate"
)

// Fallback texts when the endpoint gives no usable reason.
const (
	MessageCodeRejected        = "invalid code"
	MessageVerifierUnavailable = "verification unavailable, try again"
	MessageVerificationOK      = "access granted"
	MessageVerificationPending = "verification already in progress"
)

// VerificationResult carries the classified outcome plus the user-facing
// message. Rejections keep the server-provided reason verbatim when one was
// given.
type VerificationResult struct {
	Outcome VerificationOutcome
	Message string
}

// Verified reports whether the code cleared.
func (result VerificationResult) Verified() bool {
	return result.Outcome == VerificationVerified
}
