// Package domain contains core concepts of the chat relay.
// This file defines room identity and presence snapshots.
// No runtime, network, or UI logic should be added here.
package domain

// RoomID identifies a broadcast domain. Identifiers are opaque strings
// allocated outside the relay (see repositories.RoomRepository).
type RoomID string

// Presence is the set of distinct usernames currently joined to a room.
// Count reflects username-set cardinality, not session cardinality: two
// sessions sharing a username count once.
type Presence struct {
	Users []string
	Count int
}
