// Package notifier delivers new-announcement messages to chat channels.
//
// The primary channel is a group-robot webhook that accepts a markdown
// payload. Telegram is an optional second channel. Every announcement is
// attempted exactly once per channel; failures are logged (and recorded in
// the delivery log when storage is enabled) and never retried or returned
// to the poll loop as fatal.
package notifier
