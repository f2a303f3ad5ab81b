package apperr

// Domain errors returned by the services. Handlers compare with errors.Is.
var (
	ErrUnauthenticated = Unauthenticated("missing or invalid credentials")

	ErrNotParticipant = Forbidden("you are not a participant of this conversation")

	ErrInvalidTarget    = InvalidArg("you cannot swipe on yourself")
	ErrUnknownAction    = InvalidArg("action must be 'like' or 'pass'")
	ErrSelfConversation = InvalidArg("you cannot start a conversation with yourself")
	ErrEmptyContent     = InvalidArg("message content is empty")
	ErrContentTooLong   = InvalidArg("message content exceeds 1000 characters")
	ErrInvalidRecipient = InvalidArg("a sender cannot acknowledge delivery of their own message")

	ErrUserNotFound         = NotFound("user not found")
	ErrTargetNotFound       = NotFound("target user not found")
	ErrConversationNotFound = NotFound("conversation not found")
	ErrMessageNotFound      = NotFound("message not found")

	ErrQuotaExceeded = QuotaExceeded("daily swipe limit reached")
)
