// Package service orchestrates the core components of the venue:
// order index, journal, outbox and producers.
//
// It is the only write entry point. Every mutation is serialized,
// journaled to the WAL before it touches the index, and staged in the
// outbox for broadcast once applied.
package service
