package monitoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/AmaanSayyad/Arbnomo/internal/monitoring"
	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

const recorderWalletValue = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

var errPlacerDown = errors.New("placer down")

func newTestRecorder(test *testing.T) *monitoring.Recorder {
	test.Helper()
	recorder, err := monitoring.NewRecorder(zap.NewNop())
	if err != nil {
		test.Fatalf("build recorder: %v", err)
	}
	return recorder
}

func TestNewRecorderRequiresLogger(test *testing.T) {
	if _, err := monitoring.NewRecorder(nil); !errors.Is(err, monitoring.ErrInvalidRecorderConfig) {
		test.Fatalf("expected %v, got %v", monitoring.ErrInvalidRecorderConfig, err)
	}
}

func TestInitRegistersCounters(test *testing.T) {
	monitoring.Init()

	err := prometheus.Register(monitoring.RoundsOpened)
	var already prometheus.AlreadyRegisteredError
	if !errors.As(err, &already) {
		test.Fatalf("expected already-registered error, got %v", err)
	}
}

func TestRecorderCountsAcceptedPlacement(test *testing.T) {
	recorder := newTestRecorder(test)
	accepted := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("accepted"))
	opened := testutil.ToFloat64(monitoring.RoundsOpened)

	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationPlaceBet,
		Wallet:    recorderWalletValue,
		TargetID:  "cell-2x",
		Amount:    "4",
		Status:    "ok",
	})

	if got := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("accepted")); got != accepted+1 {
		test.Fatalf("expected accepted count %v, got %v", accepted+1, got)
	}
	if got := testutil.ToFloat64(monitoring.RoundsOpened); got != opened+1 {
		test.Fatalf("expected opened count %v, got %v", opened+1, got)
	}
}

func TestRecorderCountsRefusedPlacement(test *testing.T) {
	recorder := newTestRecorder(test)
	label := string(betflow.ReasonInsufficientFunds)
	refused := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues(label))
	opened := testutil.ToFloat64(monitoring.RoundsOpened)

	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationPlaceBet,
		Wallet:    recorderWalletValue,
		Reason:    betflow.ReasonInsufficientFunds,
		Status:    "ok",
	})

	if got := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues(label)); got != refused+1 {
		test.Fatalf("expected refused count %v, got %v", refused+1, got)
	}
	if got := testutil.ToFloat64(monitoring.RoundsOpened); got != opened {
		test.Fatalf("expected opened count %v, got %v", opened, got)
	}
}

func TestRecorderCountsFailedPlacement(test *testing.T) {
	recorder := newTestRecorder(test)
	failed := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("error"))
	opened := testutil.ToFloat64(monitoring.RoundsOpened)

	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationPlaceBet,
		Wallet:    recorderWalletValue,
		Status:    "error",
		Error:     errPlacerDown,
	})

	if got := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("error")); got != failed+1 {
		test.Fatalf("expected failed count %v, got %v", failed+1, got)
	}
	if got := testutil.ToFloat64(monitoring.RoundsOpened); got != opened {
		test.Fatalf("expected opened count %v, got %v", opened, got)
	}
}

func TestRecorderCountsVerificationOutcomes(test *testing.T) {
	recorder := newTestRecorder(test)
	verified := testutil.ToFloat64(monitoring.CodeVerifications.WithLabelValues(string(betflow.VerificationVerified)))
	failed := testutil.ToFloat64(monitoring.CodeVerifications.WithLabelValues("error"))

	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationSubmitCode,
		Wallet:    recorderWalletValue,
		Outcome:   string(betflow.VerificationVerified),
		Status:    "ok",
	})
	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationSubmitCode,
		Wallet:    recorderWalletValue,
		Status:    "error",
		Error:     errPlacerDown,
	})

	if got := testutil.ToFloat64(monitoring.CodeVerifications.WithLabelValues(string(betflow.VerificationVerified))); got != verified+1 {
		test.Fatalf("expected verified count %v, got %v", verified+1, got)
	}
	if got := testutil.ToFloat64(monitoring.CodeVerifications.WithLabelValues("error")); got != failed+1 {
		test.Fatalf("expected failed count %v, got %v", failed+1, got)
	}
}

func TestRecorderSkipsSnapshotEntries(test *testing.T) {
	recorder := newTestRecorder(test)
	accepted := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("accepted"))
	failed := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("error"))

	recorder.LogDecision(context.Background(), betflow.DecisionLog{
		Operation: betflow.OperationSnapshot,
		Wallet:    recorderWalletValue,
		Status:    "error",
		Error:     errPlacerDown,
	})

	if got := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("accepted")); got != accepted {
		test.Fatalf("expected accepted count %v, got %v", accepted, got)
	}
	if got := testutil.ToFloat64(monitoring.BetDecisions.WithLabelValues("error")); got != failed {
		test.Fatalf("expected failed count %v, got %v", failed, got)
	}
}
