// Package services provides the business logic layer between handlers and the
// forecasting engine. Services encapsulate orchestration, caching, and the
// mapping from domain errors to wire error codes.
package services

import (
	"errors"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/params"
	"github.com/demandcast/demandcast/internal/store"
	"github.com/demandcast/demandcast/internal/tuning"
)

// Error codes returned to API clients. Handlers map these to HTTP statuses.
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeInvalidPeriods       = "INVALID_PERIODS"
	CodeUnsupportedRegion    = "UNSUPPORTED_REGION"
	CodeInsufficientHistory  = "INSUFFICIENT_HISTORY"
	CodeMissingDefaultParams = "MISSING_DEFAULT_PARAMETERS"
	CodeModelFitFailed       = "MODEL_FIT_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeTuningConflict       = "TUNING_CONFLICT"
	CodePoolSaturated        = "POOL_SATURATED"
	CodeIngestFailed         = "INGEST_FAILED"
	CodeInternalError        = "INTERNAL_ERROR"
)

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// ToServiceError converts a domain error into the ServiceError the API
// surfaces. Errors that are already ServiceErrors pass through unchanged;
// anything unrecognized becomes INTERNAL_ERROR.
func ToServiceError(err error) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var insufficientErr *forecast.InsufficientHistoryError
	if errors.As(err, &insufficientErr) {
		return NewServiceErrorWithDetails(CodeInsufficientHistory, insufficientErr.Error(), map[string]interface{}{
			"got":         insufficientErr.Got,
			"need":        insufficientErr.Need,
			"granularity": string(insufficientErr.Granularity),
		})
	}

	var regionErr *forecast.UnsupportedRegionError
	if errors.As(err, &regionErr) {
		return NewServiceErrorWithDetails(CodeUnsupportedRegion, regionErr.Error(), map[string]interface{}{
			"region": regionErr.Region,
		})
	}

	var missingErr *forecast.MissingDefaultParametersError
	if errors.As(err, &missingErr) {
		return NewServiceError(CodeMissingDefaultParams, missingErr.Error())
	}

	var fitErr *forecast.ModelFitError
	if errors.As(err, &fitErr) {
		return NewServiceError(CodeModelFitFailed, fitErr.Error())
	}

	var periodsErr *forecast.InvalidPeriodsError
	if errors.As(err, &periodsErr) {
		return NewServiceErrorWithDetails(CodeInvalidPeriods, periodsErr.Error(), map[string]interface{}{
			"periods": periodsErr.Periods,
			"allowed": periodsErr.Allowed,
		})
	}

	var validationErr *store.ValidationError
	if errors.As(err, &validationErr) {
		return NewServiceErrorWithDetails(CodeInvalidRequest, validationErr.Error(), map[string]interface{}{
			"index":  validationErr.Index,
			"reason": validationErr.Reason,
		})
	}

	var conflictErr *tuning.TuningConflictError
	if errors.As(err, &conflictErr) {
		return NewServiceErrorWithDetails(CodeTuningConflict, conflictErr.Error(), map[string]interface{}{
			"category": conflictErr.Category,
			"job_id":   conflictErr.JobID,
		})
	}

	var saturatedErr *PoolSaturatedError
	if errors.As(err, &saturatedErr) {
		return NewServiceErrorWithDetails(CodePoolSaturated, saturatedErr.Error(), map[string]interface{}{
			"depth": saturatedErr.Depth,
		})
	}

	if errors.Is(err, params.ErrNotFound) {
		return NewServiceError(CodeNotFound, err.Error())
	}

	return NewServiceError(CodeInternalError, err.Error())
}
