// Package notifications delivers daemon and task events via ntfy.
//
// The default implementation publishes to the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set.
// Failure notifications are rate limited so a permanently broken endpoint
// cannot flood the topic; change notifications always go out.
//
// Extend this package if you need alternative transports; the supervisor
// depends only on the Notifier interface.
package notifications
