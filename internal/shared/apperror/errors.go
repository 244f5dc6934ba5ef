// Package apperror defines the error taxonomy shared by services and
// controllers. Services return *Error values; controllers map them to HTTP
// status codes through StatusCode.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and retry decisions.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindBusy       Kind = "busy"
	KindAuth       Kind = "unauthorized"
	KindInternal   Kind = "internal"
)

// Machine-readable codes carried in the response envelope.
const (
	CodeInvalidTripID        = "invalid_trip_id"
	CodeInvalidReservationID = "invalid_reservation_id"
	CodeInvalidRequest       = "invalid_request"
	CodeIncompleteSegment    = "incomplete_segment"
	CodeInvalidSegment       = "invalid_segment"
	CodeUnknownStation       = "unknown_station"
	CodeSeatOccupied         = "seat_occupied"
	CodeNotFound             = "reservation_not_found"
	CodeNotPaid              = "reservation_not_paid"
	CodeAlreadyBoarded       = "reservation_already_boarded"
	CodeVersionConflict      = "version_conflict"
	CodeEmptyBatch           = "empty_batch"
	CodeBatchInProgress      = "batch_in_progress"
	CodePriceNotFound        = "price_not_found"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeInvalidToken         = "invalid_token"
	CodeInternal             = "internal_error"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code so that sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Code: CodeNotFound, Message: "reservation not found"}
	ErrNotPaid         = &Error{Kind: KindConflict, Code: CodeNotPaid, Message: "reservation is not fully paid"}
	ErrAlreadyBoarded  = &Error{Kind: KindConflict, Code: CodeAlreadyBoarded, Message: "reservation is already boarded"}
	ErrSeatOccupied    = &Error{Kind: KindConflict, Code: CodeSeatOccupied, Message: "seat is occupied on the requested segment"}
	ErrUnknownStation  = &Error{Kind: KindValidation, Code: CodeUnknownStation, Message: "station is not part of the trip"}
	ErrInvalidSegment  = &Error{Kind: KindValidation, Code: CodeInvalidSegment, Message: "board station must precede exit station"}
	ErrIncomplete      = &Error{Kind: KindValidation, Code: CodeIncompleteSegment, Message: "board_station_id and exit_station_id are required when seat_id is set"}
	ErrVersionConflict = &Error{Kind: KindBusy, Code: CodeVersionConflict, Message: "reservation was modified concurrently"}
	ErrBatchInProgress = &Error{Kind: KindBusy, Code: CodeBatchInProgress, Message: "a batch from this device is already being processed"}
)

// Validation builds a validation error with a human readable message.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound builds a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Unauthorized builds an authentication failure.
func Unauthorized(code, message string) *Error {
	return &Error{Kind: KindAuth, Code: code, Message: message}
}

// Internal wraps an unexpected failure. The cause is logged, never returned to callers.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Err: err}
}

// From classifies any error, treating unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected failure", err)
}

// StatusCode maps an error kind to its HTTP status. Business rule
// conflicts keep 400 because deployed clients branch on it.
func StatusCode(err error) int {
	switch From(err).Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindBusy:
		return http.StatusConflict
	case KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to a caller.
func PublicMessage(err error) string {
	e := From(err)
	if e.Kind == KindInternal {
		return "internal error"
	}
	return e.Message
}
