// Package storage keeps an append-only record of notification deliveries.
//
// It is an audit trail for operators ("did the 10:30 announcement go out?"),
// not the dedup ledger: the monitor never reads it back to decide what is new.
//
// Backends:
//   - "file": JSON Lines, one delivery per line
//   - "sqlite": a SQLite database (pure Go driver, no cgo)
package storage
