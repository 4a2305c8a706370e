package domain

import "errors"

var (
	// ErrAmbiguousTarget is returned by SendMessage when a caller sets
	// both or neither of To/Group.
	ErrAmbiguousTarget = errors.New("send target must be exactly one of to/group")

	// ErrChatClosed is returned when a send or schedule is attempted
	// after the chat's shutdown has started.
	ErrChatClosed = errors.New("chat is shut down")
)
