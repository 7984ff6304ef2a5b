package debate

import "errors"

// Domain error kinds surfaced at the transport boundary. The HTTP layer maps
// them to status codes; everything else wraps them with %w.
var (
	// ErrInvalidStart rejects a start message with missing, malformed, or
	// overlong Topic:/Side: markers.
	ErrInvalidStart = errors.New("invalid start message")

	// ErrInvalidContinuation rejects a continuation message that is empty or
	// carries topic/side markers.
	ErrInvalidContinuation = errors.New("invalid continuation message")

	// ErrConversationNotFound means no conversation exists for the id.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrConversationExpired means the conversation's TTL has elapsed.
	ErrConversationExpired = errors.New("conversation expired")

	// ErrStateMissing means a conversation exists but its debate state is
	// absent — a policy bug, surfaced as an internal error.
	ErrStateMissing = errors.New("debate state missing for conversation")

	// ErrLLMTimeout means every LLM arm timed out.
	ErrLLMTimeout = errors.New("llm timed out")

	// ErrLLMService means the LLM (or NLI) backend failed for a reason other
	// than a timeout.
	ErrLLMService = errors.New("llm service error")

	// ErrConfig means the service is misconfigured and cannot operate.
	ErrConfig = errors.New("configuration error")
)
