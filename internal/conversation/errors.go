package conversation

import "errors"

var (
	// ErrUnknownConversation is returned when an id has never been created
	// or was garbage-collected.
	ErrUnknownConversation = errors.New("unknown conversation")

	// ErrConversationBusy is returned when a second orchestration is
	// attempted while one is already active for the same conversation.
	ErrConversationBusy = errors.New("conversation busy")
)
