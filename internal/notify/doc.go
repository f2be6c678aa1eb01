// Package notify implements the outbound notification pipeline: an unbounded
// in-memory FIFO fed by the device registry and the session cache, and a
// periodic dispatcher that drains it against the current user contact
// snapshot, delivering over email and WhatsApp.
//
// Notifications are best-effort. The queue is not persisted, delivery
// failures are logged and never retried, and a message whose user is unknown
// or unreachable is dropped.
package notify
