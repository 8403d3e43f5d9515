package core

// Error codes for domain errors surfaced over the realtime channel.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeMatchNotFound     = "match_not_found"
	ErrCodeNotMatched        = "not_matched"
	ErrCodeNotParticipant    = "not_participant"
	ErrCodeNotInRoom         = "not_in_room"
	ErrCodePersistenceFailed = "persistence_failed"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
