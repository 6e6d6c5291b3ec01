package monitoring

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/AmaanSayyad/Arbnomo/pkg/betflow"
)

// ErrInvalidRecorderConfig indicates the recorder was constructed without a
// required dependency.
var ErrInvalidRecorderConfig = errors.New("invalid recorder configuration")

// RoundsSettled label values.
const (
	ResultWon  = "won"
	ResultLost = "lost"
)

const (
	labelAccepted = "accepted"
	labelError    = "error"
)

// Recorder mirrors admission-flow decision logs into structured log output
// and the package counters. It implements betflow.DecisionLogger.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder wires a Recorder around the supplied logger.
func NewRecorder(logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger dependency is nil", ErrInvalidRecorderConfig)
	}
	return &Recorder{logger: logger}, nil
}

// LogDecision writes one log line per operation and bumps the counter that
// matches it. Snapshot entries only surface on failure, so they are logged
// without counting.
func (recorder *Recorder) LogDecision(_ context.Context, entry betflow.DecisionLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("wallet", entry.Wallet),
		zap.String("status", entry.Status),
	}
	if entry.TargetID != "" {
		fields = append(fields, zap.String("target_id", entry.TargetID))
	}
	if entry.Amount != "" {
		fields = append(fields, zap.String("amount", entry.Amount))
	}
	if entry.Reason != betflow.ReasonNone {
		fields = append(fields, zap.String("reason", string(entry.Reason)))
	}
	if entry.Outcome != "" {
		fields = append(fields, zap.String("outcome", entry.Outcome))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		recorder.logger.Warn("admission operation failed", fields...)
	} else {
		recorder.logger.Info("admission operation", fields...)
	}

	switch entry.Operation {
	case betflow.OperationPlaceBet:
		label := placementLabel(entry)
		BetDecisions.WithLabelValues(label).Inc()
		if label == labelAccepted {
			RoundsOpened.Inc()
		}
	case betflow.OperationSubmitCode:
		CodeVerifications.WithLabelValues(verificationLabel(entry)).Inc()
	}
}

// placementLabel collapses a place-bet entry to one reason label. An entry
// with no refusal reason and no error is a bet that opened a round.
func placementLabel(entry betflow.DecisionLog) string {
	if entry.Reason != betflow.ReasonNone {
		return string(entry.Reason)
	}
	if entry.Error != nil {
		return labelError
	}
	return labelAccepted
}

func verificationLabel(entry betflow.DecisionLog) string {
	if entry.Outcome != "" {
		return entry.Outcome
	}
	return labelError
}
