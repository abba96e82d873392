package domain

import "errors"

// Failure classes of the send/join/load paths. Validation and connectivity
// errors stay local to the acting session; persistence failures never leave
// partially-visible state.
var (
	ErrEmptyMessage    = errors.New("message has no text and no attachment")
	ErrMessageTooLong  = errors.New("message text exceeds maximum length")
	ErrNotConnected    = errors.New("session is not connected to a room")
	ErrPersistence     = errors.New("message store unavailable")
	ErrTimeout         = errors.New("upstream operation timed out")
	ErrRoomUnavailable = errors.New("room history unavailable")
)

// Wire error codes.
const (
	ErrCodeEmptyMessage    = "EMPTY_MESSAGE"
	ErrCodeMessageTooLong  = "MESSAGE_TOO_LONG"
	ErrCodeNotConnected    = "NOT_CONNECTED"
	ErrCodePersistence     = "PERSISTENCE_ERROR"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeRoomUnavailable = "ROOM_UNAVAILABLE"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// ErrorCode maps a failure to its wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return ErrCodeEmptyMessage
	case errors.Is(err, ErrMessageTooLong):
		return ErrCodeMessageTooLong
	case errors.Is(err, ErrNotConnected):
		return ErrCodeNotConnected
	case errors.Is(err, ErrTimeout):
		return ErrCodeTimeout
	case errors.Is(err, ErrPersistence):
		return ErrCodePersistence
	case errors.Is(err, ErrRoomUnavailable):
		return ErrCodeRoomUnavailable
	default:
		return ErrCodeInternalError
	}
}
