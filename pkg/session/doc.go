// Package session persists conversation history as JSONL files, one file
// per session key. The agent loop consumes a bounded window of recent
// turns when building the initial prompt of a run.
//
// Invariants:
// - Session keys never contain path separators or traversal sequences.
// - Appends are serialized per session key.
// - Files are written with 0600 permissions.
package session
