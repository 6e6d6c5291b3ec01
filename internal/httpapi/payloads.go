package httpapi

import (
	betstore "github.com/AmaanSayyad/Arbnomo/internal/store"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

type connectRequest struct {
	Address string `json:"address"`
}

type currencyRequest struct {
	Symbol string `json:"symbol"`
}

type accessCodeRequest struct {
	Code string `json:"code"`
}

type betRequest struct {
	TargetID string `json:"target_id"`
	Amount   string `json:"amount"`
}

func (request betRequest) candidate() betflow.CandidateBet {
	return betflow.CandidateBet{TargetID: request.TargetID, AmountText: request.Amount}
}

type creditRequest struct {
	Address string  `json:"address"`
	Amount  float64 `json:"amount"`
}

type closeRoundRequest struct {
	RoundID string `json:"round_id"`
	Won     bool   `json:"won"`
}

type currencyPayload struct {
	Symbol   string `json:"symbol"`
	LogoPath string `json:"logo_path"`
}

type sessionPayload struct {
	Phase    string          `json:"phase"`
	Wallet   string          `json:"wallet,omitempty"`
	Access   string          `json:"access"`
	Currency currencyPayload `json:"currency"`
}

type verificationPayload struct {
	Outcome string `json:"outcome"`
	Message string `json:"message"`
	Phase   string `json:"phase"`
}

type decisionPayload struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Payout  string `json:"payout"`
}

type placementPayload struct {
	decisionPayload
	Round   *roundPayload `json:"round,omitempty"`
	Balance string        `json:"balance,omitempty"`
}

type roundPayload struct {
	ID              string  `json:"id"`
	TargetID        string  `json:"target_id"`
	Stake           string  `json:"stake"`
	Multiplier      float64 `json:"multiplier,omitempty"`
	OpenedAtUnixUTC int64   `json:"opened_at_unix_utc"`
}

type roundRecordPayload struct {
	ID               string `json:"id"`
	TargetID         string `json:"target_id"`
	Stake            string `json:"stake"`
	Payout           string `json:"payout"`
	Status           string `json:"status"`
	OpenedAtUnixUTC  int64  `json:"opened_at_unix_utc"`
	SettledAtUnixUTC int64  `json:"settled_at_unix_utc,omitempty"`
}

type targetCellPayload struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Multiplier float64 `json:"multiplier"`
}

type statePayload struct {
	Phase       string              `json:"phase"`
	Wallet      string              `json:"wallet,omitempty"`
	Balance     string              `json:"balance"`
	Currency    currencyPayload     `json:"currency"`
	Network     string              `json:"network"`
	RoundActive bool                `json:"round_active"`
	Round       *roundPayload       `json:"round,omitempty"`
	Catalog     []targetCellPayload `json:"catalog"`
}

func currencyPayloadFor(currency betflow.Currency) currencyPayload {
	return currencyPayload{Symbol: currency.Symbol, LogoPath: currency.LogoPath}
}

func sessionPayloadFor(session betflow.Session, network betflow.Network) sessionPayload {
	return sessionPayload{
		Phase:    string(session.Phase()),
		Wallet:   session.Wallet.String(),
		Access:   string(session.Access),
		Currency: currencyPayloadFor(betflow.ResolveCurrency(network, session.SelectedCurrency)),
	}
}

func roundPayloadFor(round betflow.Round) roundPayload {
	return roundPayload{
		ID:              round.ID,
		TargetID:        round.TargetID,
		Stake:           betflow.FormatAmount(round.Stake),
		OpenedAtUnixUTC: round.OpenedAtUnixUTC,
	}
}

func roundRecordPayloadFor(record betstore.RoundRecord) roundRecordPayload {
	return roundRecordPayload{
		ID:               record.ID,
		TargetID:         record.TargetID,
		Stake:            betflow.FormatAmount(record.Stake),
		Payout:           betflow.FormatAmount(record.Payout),
		Status:           record.Status.String(),
		OpenedAtUnixUTC:  record.OpenedAtUnixUTC,
		SettledAtUnixUTC: record.SettledAtUnixUTC,
	}
}

func statePayloadFor(snapshot betflow.Snapshot) statePayload {
	cells := snapshot.Catalog.Cells()
	catalog := make([]targetCellPayload, 0, len(cells))
	for _, cell := range cells {
		catalog = append(catalog, targetCellPayload{
			ID:         cell.ID.String(),
			Label:      cell.Label,
			Multiplier: cell.Multiplier,
		})
	}
	payload := statePayload{
		Phase:       string(snapshot.Session.Phase()),
		Wallet:      snapshot.Session.Wallet.String(),
		Balance:     snapshot.Balance.Display(),
		Currency:    currencyPayloadFor(snapshot.Currency),
		Network:     snapshot.Network.String(),
		RoundActive: snapshot.RoundActive,
		Catalog:     catalog,
	}
	if snapshot.RoundActive {
		round := roundPayloadFor(snapshot.Round)
		payload.Round = &round
	}
	return payload
}
