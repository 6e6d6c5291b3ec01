package betflow

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// DecisionLogger records domain-level events emitted by Service operations.
type DecisionLogger interface {
	LogDecision(ctx context.Context, entry DecisionLog)
}

// DecisionLog describes one admission-flow operation.
type DecisionLog struct {
	Operation string
	Wallet    string
	TargetID  string
	Amount    string
	Reason    Reason
	Outcome   string
	Status    string
	Error     error
}

// WithDecisionLogger wires a logger that receives callbacks for every
// operation.
func WithDecisionLogger(logger DecisionLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}
