package contract

import "errors"

var (
	ErrInvalidLocation   = errors.New("invalid location")
	ErrInvalidDateFormat = errors.New("invalid date format")
	ErrMissingPriorInput = errors.New("missing prior input")
	ErrProviderFailure   = errors.New("provider failure")
	ErrModelInvoke       = errors.New("model invoke failed")
	ErrSchemaViolation   = errors.New("model output schema violation")
	ErrValidation        = errors.New("validation failed")
)
