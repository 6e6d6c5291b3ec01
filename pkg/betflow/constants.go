package betflow

// Operation names carried by decision log entries.
const (
	OperationSnapshot   = "snapshot"
	OperationPlaceBet   = "place_bet"
	OperationSubmitCode = "submit_code"
)

const (
	operationStatusOK    = "ok"
	operationStatusError = "error"
)
