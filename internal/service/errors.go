package service

import "errors"

var (
	// Not-found errors: terminal for the operation, expected outcomes.
	ErrRoomNotFound    = errors.New("room not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrNotMember       = errors.New("not a member of this room")

	// Validation errors: rejected synchronously, never retried.
	ErrEmptyMessage     = errors.New("message body is empty")
	ErrMessageTooLong   = errors.New("message body exceeds the maximum length")
	ErrInvalidKind      = errors.New("unknown message kind")
	ErrMediaRefRequired = errors.New("media messages require a media reference")
	ErrInvalidEmoji     = errors.New("invalid reaction emoji")
	ErrEmptyRoomName    = errors.New("room name is empty")
	ErrInvalidCategory  = errors.New("unknown room category")
	ErrInvalidRegion    = errors.New("unknown room region")

	// Rate-limit errors: caller may retry after backoff.
	ErrRateLimited = errors.New("sender is rate limited")
)
