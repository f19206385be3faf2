package config

import (
	"os"
	"strings"
)

// NotificationDispatchEnabled gates the Pub/Sub publish step of the
// notification outbox. When off, outbound emails accumulate as pendiente
// records and nothing leaves the system.
//
// Set via env:
// - NOTIFICATION_DISPATCH_ENABLED=true
func NotificationDispatchEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFICATION_DISPATCH_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// InboxReadOnly makes the mail processors classify and persist messages
// without flagging them as seen on the server. Useful against a shared
// test mailbox: the same messages can be replayed, dedup by Message-ID
// keeps the database clean.
//
// Set via env:
// - INBOX_READ_ONLY=true
func InboxReadOnly() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("INBOX_READ_ONLY")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
