/*
Package errs provides the application's error type and its business error codes.

This file maps every code to its client-facing message and HTTP status.
*/
package errs

import "net/http"

// errorMap holds the template CustomError for each code. A zero Status means 200,
// matching the convention that business failures travel inside a 200 envelope.
var errorMap = map[int]CustomError{
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	ErrMeetingNotFound:    {Code: ErrMeetingNotFound, Message: "Meeting not found.", Status: http.StatusNotFound},
	ErrMeetingNotJoinable: {Code: ErrMeetingNotJoinable, Message: "This meeting is %s and can no longer be joined."},
	ErrMeetingHasNoRoom:   {Code: ErrMeetingHasNoRoom, Message: "This meeting has not started yet."},
	ErrGuestNameRequired:  {Code: ErrGuestNameRequired, Message: "Guest name is required.", Status: http.StatusBadRequest},
	ErrGuestNameTooLong:   {Code: ErrGuestNameTooLong, Message: "Guest name must be at most %d characters.", Status: http.StatusBadRequest},

	ErrUnknown:              {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrDirectoryUnavailable: {Code: ErrDirectoryUnavailable, Message: "Meeting service is unavailable. Please try again later.", Status: http.StatusServiceUnavailable},
}
