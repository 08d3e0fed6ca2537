package errors

import "net/http"

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Configuration errors
// 12000-12999: Upload & request validation errors
// 13000-13999: Slicing engine errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	RequestCanceled     ErrorCode = 10009

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Configuration Errors (11000-11999) ==========

	ConfigInvalid  ErrorCode = 11000
	ConfigLoadFail ErrorCode = 11001

	// ========== Upload Errors (12000-12999) ==========

	ModelFileRequired    ErrorCode = 12000
	UnsupportedExtension ErrorCode = 12001
	FileTooLarge         ErrorCode = 12002
	InvalidSettings      ErrorCode = 12003
	UploadStoreFailed    ErrorCode = 12004

	// ========== Slicing Engine Errors (13000-13999) ==========

	EngineLaunchFailed ErrorCode = 13000
	EngineFailed       ErrorCode = 13001
	EngineTimeout      ErrorCode = 13002
	JobQueueFull       ErrorCode = 13003
	ArtifactMissing    ErrorCode = 13004
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",
	RequestCanceled:     "Request canceled",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Configuration
	ConfigInvalid:  "Invalid configuration",
	ConfigLoadFail: "Failed to load configuration",

	// Upload
	ModelFileRequired:    `Model file is required (field name "model")`,
	UnsupportedExtension: "Unsupported file extension",
	FileTooLarge:         "Model file is too large",
	InvalidSettings:      `Invalid JSON payload in "settings"`,
	UploadStoreFailed:    "Failed to store uploaded model",

	// Engine
	EngineLaunchFailed: "Slicing engine is unavailable",
	EngineFailed:       "Slicing failed",
	EngineTimeout:      "Slicing timed out",
	JobQueueFull:       "Slicer is busy, please try again later",
	ArtifactMissing:    "Slicing produced no output",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return http.StatusOK
	case c == NotFound:
		return http.StatusNotFound
	case c == TooManyRequests:
		return http.StatusTooManyRequests
	case c == ServiceUnavailable, c == EngineLaunchFailed, c == JobQueueFull:
		return http.StatusServiceUnavailable
	case c == Timeout, c == EngineTimeout:
		return http.StatusGatewayTimeout
	case c >= 10300 && c < 10400: // Validation errors
		return http.StatusBadRequest
	case c >= 12000 && c < 12004: // Upload validation errors
		return http.StatusBadRequest
	case c == InvalidParams:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code maps to a 4xx response.
func (c ErrorCode) IsClientError() bool {
	status := c.HTTPStatus()
	return status >= 400 && status < 500
}
