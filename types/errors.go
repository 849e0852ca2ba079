package types

import "fmt"

// PlatformError provides structured error information from platform API responses
type PlatformError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPlatformError creates a new structured platform error
func NewPlatformError(code string, message string, details map[string]interface{}) *PlatformError {
	return &PlatformError{
		Code:    code,
		Message: message,
		Details: details,
	}
}
