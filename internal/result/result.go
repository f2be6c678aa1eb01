// Package result defines the operation result taxonomy shared by the device
// registry, the session cache and the HTTP layer.
//
// Every core operation resolves to either a payload or an *result.Error
// carrying the HTTP status and an internal code. The HTTP layer maps these
// directly; it never performs business validation of its own.
package result

import (
	"fmt"
	"net/http"
)

// Code is a machine-readable internal code attached to every error result.
// Clients use these to distinguish failure causes that share an HTTP status.
type Code string

const (
	CodeSuccess                  Code = "success"
	CodeRequestIncomplete        Code = "request_incomplete"
	CodeInvalidCredentials       Code = "invalid_credentials"
	CodeInvalidPassword          Code = "invalid_password"
	CodeInvalidToken             Code = "invalid_token"
	CodeInvalidSeverity          Code = "invalid_severity"
	CodeDeviceNotFound           Code = "device_not_found"
	CodeInvalidUserID            Code = "invalid_user_id"
	CodeInvalidPropertyID        Code = "invalid_property_id"
	CodeInvalidDeviceID          Code = "invalid_device_id"
	CodeDeviceAlreadyLinked      Code = "device_already_linked"
	CodeExtServerNotFound        Code = "ext_server_not_found"
	CodeExtServerInvalidResponse Code = "ext_server_invalid_response"
	CodeInternalError            Code = "internal_error"
)

// Error is an operation failure with enough context for the HTTP layer to
// marshal a response without interpreting it.
type Error struct {
	Status  int
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d/%s)", e.Message, e.Status, e.Code)
}

// BadRequest returns a 400 error with the request_incomplete code.
func BadRequest(message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeRequestIncomplete, Message: message}
}

// BadRequestCode returns a 400 error with an explicit code.
func BadRequestCode(code Code, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized returns a 401 error.
func Unauthorized(code Code, message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: message}
}

// NotFound returns a 404 error.
func NotFound(code Code, message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Message: message}
}

// Conflict returns a 409 error.
func Conflict(code Code, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message}
}

// Internal returns a 500 error.
func Internal(code Code, message string) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: code, Message: message}
}
