// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import "time"

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)
}

// IDGenerator produces unique, unguessable opaque identifiers.
type IDGenerator interface {
	NewID() (string, error)
}

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}
