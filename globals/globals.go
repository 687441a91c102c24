package globals

// Context keys
type ContextKey string

const SessionIDKey ContextKey = "sessionId"
const CorrelationIDKey ContextKey = "correlationId"
const SessionKey ContextKey = "session"
