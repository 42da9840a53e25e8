package server

import (
	"time"
)

// Context key type for context values
type contextKey string

// Context keys
const (
	sessionKey   contextKey = "session"
	requestIDKey contextKey = "request_id"
)

// Session cleanup constants. No code in this module reads them; Land
// sessions are tracked by each Land's own session bookkeeping.
const (
	sessionCleanupInterval = 5 * time.Minute
	sessionTimeout         = 30 * time.Minute
)

// MessageChanBufferSize and MessageSendTimeout are not read by any code in
// this module: pkg/wsgateway sizes each session's outbound queue from
// config.Config.SlowConsumerHighWaterMark and closes a session whose queue
// reaches it, with no send timeout.
const (
	MessageChanBufferSize = 500
	MessageSendTimeout    = 50 * time.Millisecond
)
