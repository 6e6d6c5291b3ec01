package betflow

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the admission flow.
var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrRoundInFlight        = errors.New("round already in flight")
	ErrRoundConflict        = errors.New("round conflict")
	ErrUnknownRound         = errors.New("unknown round")
	ErrUnknownTarget        = errors.New("unknown target")
	ErrUnknownProfile       = errors.New("unknown profile")
	ErrProfileExists        = errors.New("profile already exists")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrInvalidWalletAddress = errors.New("invalid wallet address")
	ErrInvalidAccessCode    = errors.New("invalid access code")
	ErrInvalidBetAmount     = errors.New("invalid bet amount")
	ErrInvalidTargetID      = errors.New("invalid target id")
	ErrInvalidTargetCell    = errors.New("invalid target cell")
	ErrDuplicateTargetCell  = errors.New("duplicate target cell")
	ErrInvalidHouseBalance  = errors.New("invalid house balance")
	ErrInvalidRound         = errors.New("invalid round")
	ErrInvalidCatalog       = errors.New("invalid catalog")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
