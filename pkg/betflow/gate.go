package betflow

// AccessStatus is the tri-state result of the access-code gate. It stays
// unknown until the verification collaborator has answered for the session.
type AccessStatus string

const (
	AccessUnknown AccessStatus = "unknown"
	AccessDenied  AccessStatus = "denied"
	AccessGranted AccessStatus = "granted"
)

// SessionPhase classifies a session for the admission gate.
type SessionPhase string

const (
	PhaseDisconnected        SessionPhase = "disconnected"
	PhaseConnectedLocked     SessionPhase = "locked"
	PhaseConnectedAuthorized SessionPhase = "authorized"
)

// Session is the externally owned connection state read by validations.
// SelectedCurrency is the session-scoped currency override, empty when the
// network default applies.
type Session struct {
	Connected        bool
	Wallet           WalletAddress
	Access           AccessStatus
	SelectedCurrency string
}

// DisconnectedSession returns the session state before a wallet connects.
func DisconnectedSession() Session {
	return Session{Access: AccessUnknown}
}

// ConnectedSession returns the session state for a connected wallet.
func ConnectedSession(wallet WalletAddress, access AccessStatus) Session {
	return Session{Connected: true, Wallet: wallet, Access: access}
}

// Locked reports whether the session is connected but still gated behind the
// access code. A disconnected session is not locked; it is ineligible for a
// different reason the validator distinguishes.
func (session Session) Locked() bool {
	return session.Connected && session.Access != AccessGranted
}

// Authorized reports whether betting is fully unlocked for the session.
func (session Session) Authorized() bool {
	return session.Connected && session.Access == AccessGranted
}

// Phase returns the gate state. The only way out of ConnectedAuthorized is a
// disconnect, which resets the whole session.
func (session Session) Phase() SessionPhase {
	switch {
	case !session.Connected:
		return PhaseDisconnected
	case session.Access == AccessGranted:
		return PhaseConnectedAuthorized
	default:
		return PhaseConnectedLocked
	}
}
