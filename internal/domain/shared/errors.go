package shared

import "errors"

// Validation sentinels, checked before any state is mutated
var (
	ErrInvalidAmount = errors.New("amount must be positive")
	ErrEmptyReason   = errors.New("reason cannot be empty")
	ErrSelfTransfer  = errors.New("sender and recipient must differ")
)

// ValidationError reports malformed input on a specific field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return "validation failed on " + e.Field + ": " + e.Message
}

// Is matches any ValidationError when the target carries no field
func (e ValidationError) Is(target error) bool {
	t, ok := target.(ValidationError)
	if !ok {
		return false
	}
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}
