package realtime

// Named realtime streams.
const (
	StreamNotifications = "notifications"
)

// Notification stream events.
const (
	EventNotificationCreated = "notification.created"
	EventNotificationRead    = "notification.read"
	EventNotificationReadAll = "notification.read_all"
	EventNotificationDeleted = "notification.deleted"
)

// Control events exchanged with clients.
const (
	eventPong  = "pong"
	eventError = "error"
)

var knownStreams = map[string]struct{}{
	StreamNotifications: {},
}

// KnownStream reports whether name is a stream clients may join.
func KnownStream(name string) bool {
	_, ok := knownStreams[name]
	return ok
}
