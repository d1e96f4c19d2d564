package constant

import "time"

// Paging defaults
const (
	DefaultPageSize   = 20
	SortMessagesDesc  = "created,desc"
	SortChatsByRecent = "lastMessage.created,desc"
)

// REST timing
const (
	DefaultRequestTimeout = 5 * time.Second
	DefaultSeparatorGap   = 15 * time.Minute
	DefaultSearchDebounce = 350 * time.Millisecond
)

// Realtime defaults
const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeatIncoming = 10 * time.Second
	DefaultHeartbeatOutgoing = 10 * time.Second

	// UserMessageDestination is the per-user private queue for pushed messages
	UserMessageDestination = "/user/queue/messages"
)

// Header names
const (
	HeaderAuthorization = "Authorization"
	BearerPrefix        = "Bearer "
	ContentTypeJSON     = "application/json"
)

// Notification types
const (
	NotificationTypeMessage = "message"
)

// Fallback notification texts
const (
	DefaultNotificationTitle = "New message"
	DefaultNotificationBody  = "You have a new message"
)

// BearerToken formats an Authorization header value
func BearerToken(token string) string {
	return BearerPrefix + token
}
