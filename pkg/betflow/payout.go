package betflow

import "strconv"

// ZeroPayoutDisplay is shown whenever the projection is undefined.
const ZeroPayoutDisplay = "0.0000"

// FormatAmount renders a balance, stake, or payout at fixed 4-decimal
// precision.
func FormatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 4, 64)
}

// PotentialPayout projects amount times the selected cell's multiplier. The
// projection is defined only when the target resolves and the amount text
// parses as a positive number; it falls back to the zero sentinel otherwise.
// Pure and recomputed per call, never cached.
func PotentialPayout(candidate CandidateBet, catalog Catalog) string {
	cell, found := catalog.Lookup(candidate.TargetID)
	if !found {
		return ZeroPayoutDisplay
	}
	amount, err := ParseBetAmount(candidate.AmountText)
	if err != nil {
		return ZeroPayoutDisplay
	}
	return FormatAmount(amount.Float64() * cell.Multiplier)
}
