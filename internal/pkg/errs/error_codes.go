/*
Package errs provides the application's error type and its business error codes.

Codes are shared by every HTTP endpoint so browser clients can branch on a
stable number rather than on message text.
*/
package errs

// 1xxx: request handling
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the Content-Type header is not JSON.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body could not be decoded.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the caller's IP exceeded its request budget.
	ErrRateLimitExceeded = 1007
)

// 2xxx: meetings and rooms
const (
	// ErrMeetingNotFound indicates that no meeting exists for the given id.
	ErrMeetingNotFound = 2101

	// ErrMeetingNotJoinable indicates that the meeting is completed or cancelled.
	ErrMeetingNotJoinable = 2102

	// ErrMeetingHasNoRoom indicates that the meeting has not been started and has no room yet.
	ErrMeetingHasNoRoom = 2103

	// ErrGuestNameRequired indicates a guest join request without a display name.
	ErrGuestNameRequired = 2201

	// ErrGuestNameTooLong indicates a guest display name over the length limit.
	ErrGuestNameTooLong = 2202
)

// 5xxx: internal
const (
	// ErrUnknown represents an unclassified server error.
	ErrUnknown = 5000

	// ErrDirectoryUnavailable indicates the meeting directory could not be queried.
	ErrDirectoryUnavailable = 5001
)
