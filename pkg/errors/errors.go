// Package errors defines the error taxonomy shared by all kubecore packages.
//
// None of these errors are retried internally. They describe caller
// programming errors or malformed external input and are surfaced as-is.
package errors

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DynamicTypeError reports an invalid resource type descriptor, e.g. a
// GroupVersionKind constructed without a version or kind.
type DynamicTypeError struct {
	Message string
}

// NewDynamicType returns a DynamicTypeError with a formatted message.
func NewDynamicType(format string, args ...interface{}) *DynamicTypeError {
	return &DynamicTypeError{Message: fmt.Sprintf(format, args...)}
}

func (e *DynamicTypeError) Error() string {
	return "dynamic type error: " + e.Message
}

// RequestValidationError reports request parameters or envelopes that can
// never be accepted by the API server.
type RequestValidationError struct {
	Message string
}

// NewRequestValidation returns a RequestValidationError with a formatted message.
func NewRequestValidation(format string, args ...interface{}) *RequestValidationError {
	return &RequestValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *RequestValidationError) Error() string {
	return "request validation failed: " + e.Message
}

// SerializationError wraps an encoding or decoding failure of a request or
// response body.
type SerializationError struct {
	Op  string
	Err error
}

// NewSerialization wraps err as a SerializationError for the given operation.
func NewSerialization(op string, err error) *SerializationError {
	return &SerializationError{Op: op, Err: err}
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// IsDynamicType reports whether err is or wraps a DynamicTypeError.
func IsDynamicType(err error) bool {
	var target *DynamicTypeError
	return errors.As(err, &target)
}

// IsRequestValidation reports whether err is or wraps a RequestValidationError.
func IsRequestValidation(err error) bool {
	var target *RequestValidationError
	return errors.As(err, &target)
}

// IsSerialization reports whether err is or wraps a SerializationError.
func IsSerialization(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}

// ErrorResponse is the failure body returned by the API server, as carried by
// watch ERROR events.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
	Code    int32  `json:"code"`
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("%s: %s (%s, code %d)", e.Status, e.Message, e.Reason, e.Code)
}

// FromStatus converts an apimachinery Status into an ErrorResponse.
func FromStatus(status *metav1.Status) *ErrorResponse {
	if status == nil {
		return nil
	}
	return &ErrorResponse{
		Status:  status.Status,
		Message: status.Message,
		Reason:  string(status.Reason),
		Code:    status.Code,
	}
}

// ToStatus converts the ErrorResponse back into an apimachinery Status.
func (e *ErrorResponse) ToStatus() *metav1.Status {
	return &metav1.Status{
		Status:  e.Status,
		Message: e.Message,
		Reason:  metav1.StatusReason(e.Reason),
		Code:    e.Code,
	}
}
