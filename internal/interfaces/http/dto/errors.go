package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeValidation = "ERR_VALIDATION"
)

// domainErrorHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed here default to 422: the request was well-formed
// but the protocol rejected the action.
var domainErrorHTTPStatus = map[string]int{
	"NOT_FOUND":    http.StatusNotFound,
	"UNKNOWN_FUND": http.StatusNotFound,

	"ALREADY_EXISTS":     http.StatusConflict,
	"ALREADY_REGISTERED": http.StatusConflict,

	"UNAUTHORIZED": http.StatusForbidden,

	"INVALID_INPUT":    http.StatusBadRequest,
	"INVALID_AMOUNT":   http.StatusBadRequest,
	"INVALID_SETTINGS": http.StatusBadRequest,
	"UNKNOWN_MODULE":   http.StatusBadRequest,
	"INVALID_BUYER":    http.StatusBadRequest,
	"INVALID_REDEEMER": http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for a domain error code
func GetHTTPStatus(code string) int {
	if status, ok := domainErrorHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}
