package common

// Request header names read by the HTTP adapter.
const (
	AuthorizationHeaderName = "Authorization"
	UserAgentHeaderName     = "User-Agent"
	ClientIPHeaderName      = "X-Forwarded-For"
)
