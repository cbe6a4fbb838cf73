// Package state keeps per-user conversation state in memory: list
// navigation for each user and field editing sessions keyed by user and
// entity. Nothing here is persisted.
package state
