package cipher

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes, one per analysis phase that can come up empty.
const (
	ErrCodeTimestampNotFound           = "TIMESTAMP_NOT_FOUND"
	ErrCodeDecipherFunctionNotFound    = "DECIPHER_FUNCTION_NOT_FOUND"
	ErrCodeContainerNameNotFound       = "CONTAINER_NAME_NOT_FOUND"
	ErrCodeContainerDefinitionNotFound = "CONTAINER_DEFINITION_NOT_FOUND"
	ErrCodeNoOperationsFound           = "NO_OPERATIONS_FOUND"
)

// Error is a structured parse failure with a stable machine-readable code.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MarshalJSON implements json.Marshaler.
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// NewError creates a new Error with the given code and message.
func NewError(code string, message string, details ...any) *Error {
	e := &Error{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func errCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsParseFailure reports whether err belongs to the cipher parse failure
// family, regardless of which phase produced it.
func IsParseFailure(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// IsTimestampNotFound reports whether the script lacked a signature
// timestamp marker.
func IsTimestampNotFound(err error) bool {
	return errCode(err) == ErrCodeTimestampNotFound
}

// IsDecipherFunctionNotFound reports whether no decipher function shape
// matched.
func IsDecipherFunctionNotFound(err error) bool {
	return errCode(err) == ErrCodeDecipherFunctionNotFound
}

// IsContainerNotFound reports whether the operation container could not be
// named or located.
func IsContainerNotFound(err error) bool {
	c := errCode(err)
	return c == ErrCodeContainerNameNotFound || c == ErrCodeContainerDefinitionNotFound
}

// IsNoOperationsFound reports whether replaying the decipher body produced
// zero operations.
func IsNoOperationsFound(err error) bool {
	return errCode(err) == ErrCodeNoOperationsFound
}
