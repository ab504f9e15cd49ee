package models

// Machine-readable failure reasons surfaced by the session API.
const (
	ReasonValidation        = "validation"
	ReasonRateLimited       = "rate_limited"
	ReasonAlreadySending    = "already_sending"
	ReasonTransport         = "transport"
	ReasonTimeout           = "timeout"
	ReasonStaleConversation = "stale_conversation"
)
