package api

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
	Error   string `json:"error,omitempty" example:"Resource not found"`
}

// ValidationErrors is the structured payload for field-level failures:
// field name → ordered list of messages. Validation failures are
// returned for re-display, never logged as security events.
type ValidationErrors struct {
	Success bool                `json:"success" example:"false"`
	Error   string              `json:"error" example:"Validation failed"`
	Fields  map[string][]string `json:"fields"`
}
