package dto

// Machine-readable error codes, one per error kind.
const (
	CodeValidation         = "validation_error"
	CodeConflict           = "conflict"
	CodeNotFound           = "not_found"
	CodeNotAuthenticated   = "not_authenticated"
	CodeInvalidCredentials = "invalid_credentials"
	CodeIO                 = "io_error"
	CodePartialFailure     = "partial_failure"
	CodeUnexpected         = "unexpected_error"
)

// SuccessResponse is the body of mutations that return no payload.
type SuccessResponse struct {
	Success bool `json:"success"`
	Error   bool `json:"error"`
}

func OK() SuccessResponse {
	return SuccessResponse{Success: true, Error: false}
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}
