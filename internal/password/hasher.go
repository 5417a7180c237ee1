// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package password

import (
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// Supported algorithm names.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// Hasher hashes with one primary algorithm and verifies hashes of any
// supported algorithm, so switching algorithms does not lock out users.
type Hasher struct {
	primary  identity.PasswordHasher
	argon2id *Argon2id
	bcrypt   *Bcrypt
}

// New creates a Hasher whose primary algorithm is the given one.
func New(algorithm string) (*Hasher, error) {
	bc, err := NewBcrypt(0)
	if err != nil {
		return nil, err
	}
	h := &Hasher{argon2id: NewArgon2id(), bcrypt: bc}

	switch strings.ToLower(algorithm) {
	case "", AlgorithmArgon2id:
		h.primary = h.argon2id
	case AlgorithmBcrypt:
		h.primary = h.bcrypt
	default:
		return nil, oops.Code("PASSWORD_UNKNOWN_ALGORITHM").
			With("algorithm", algorithm).
			Errorf("unknown password algorithm %q", algorithm)
	}
	return h, nil
}

// Hash hashes with the primary algorithm.
func (h *Hasher) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Verify dispatches on the hash prefix.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	switch {
	case strings.HasPrefix(hash, argon2Prefix):
		return h.argon2id.Verify(password, hash)
	case isBcryptHash(hash):
		return h.bcrypt.Verify(password, hash)
	default:
		return false, oops.Code("PASSWORD_INVALID_HASH").Errorf("unrecognized hash format")
	}
}

var (
	_ identity.PasswordHasher = (*Argon2id)(nil)
	_ identity.PasswordHasher = (*Bcrypt)(nil)
	_ identity.PasswordHasher = (*Hasher)(nil)
)
