// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package idgen provides identifier generators for user IDs and session tokens.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// Supported identifier formats.
const (
	FormatToken = "token"
	FormatULID  = "ulid"
	FormatUUID  = "uuid"
)

// tokenBytes is the entropy of an opaque token (256 bits).
const tokenBytes = 32

// Token generates 32 random bytes encoded as unpadded URL-safe base64.
type Token struct {
	rand io.Reader
}

// NewToken creates a Token generator backed by crypto/rand.
func NewToken() *Token {
	return &Token{rand: rand.Reader}
}

// NewID returns a fresh 43-character token.
func (g *Token) NewID() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", oops.Code("IDGEN_ENTROPY_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ULID generates lexicographically sortable identifiers stamped with the clock.
type ULID struct {
	clock identity.Clock
	rand  io.Reader
}

// NewULID creates a ULID generator.
func NewULID(clock identity.Clock) *ULID {
	return &ULID{clock: clock, rand: rand.Reader}
}

// NewID returns a new 26-character ULID.
func (g *ULID) NewID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(g.clock.Now()), g.rand)
	if err != nil {
		return "", oops.Code("IDGEN_ENTROPY_FAILED").Wrap(err)
	}
	return id.String(), nil
}

// UUID generates random (version 4) UUIDs.
type UUID struct{}

// NewID returns a new UUID string.
func (UUID) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", oops.Code("IDGEN_ENTROPY_FAILED").Wrap(err)
	}
	return id.String(), nil
}

// New returns the generator for format. The clock is only used by ULIDs.
func New(format string, clock identity.Clock) (identity.IDGenerator, error) {
	switch strings.ToLower(format) {
	case "", FormatToken:
		return NewToken(), nil
	case FormatULID:
		if clock == nil {
			return nil, oops.Code("IDGEN_INVALID").Errorf("clock is required for ulid ids")
		}
		return NewULID(clock), nil
	case FormatUUID:
		return UUID{}, nil
	default:
		return nil, oops.Code("IDGEN_UNKNOWN_FORMAT").
			With("format", format).
			Errorf("unknown id format %q", format)
	}
}
