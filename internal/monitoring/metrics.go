// Package monitoring exposes the process-wide Prometheus counters together
// with a decision recorder that feeds them from the admission flow.
package monitoring

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnomo_http_requests_total",
			Help: "Total HTTP requests by method and route",
		},
		[]string{"method", "route"},
	)

	BetDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnomo_bet_decisions_total",
			Help: "Bet admission decisions by refusal reason",
		},
		[]string{"reason"},
	)

	CodeVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnomo_code_verifications_total",
			Help: "Access code verifications by outcome",
		},
		[]string{"outcome"},
	)

	RoundsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arbnomo_rounds_opened_total",
			Help: "Rounds opened by admitted bets",
		},
	)

	RoundsSettled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbnomo_rounds_settled_total",
			Help: "Rounds settled by result",
		},
		[]string{"result"},
	)
)

// Init registers every counter with the default registry. Call it once per
// process before serving traffic.
func Init() {
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(BetDecisions)
	prometheus.MustRegister(CodeVerifications)
	prometheus.MustRegister(RoundsOpened)
	prometheus.MustRegister(RoundsSettled)
}
