// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import "errors"

// ErrNotFound is returned by adapters when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Sentinels for the expected outcomes of identity use cases.
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserDisabled       = errors.New("user disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidInput       = errors.New("invalid input")
)

// Error codes attached to errors returned by Service.
const (
	CodeUserAlreadyExists  = "IDENTITY_USER_EXISTS"
	CodeUserNotFound       = "IDENTITY_USER_NOT_FOUND"
	CodeUserDisabled       = "IDENTITY_USER_DISABLED"
	CodeInvalidCredentials = "IDENTITY_INVALID_CREDENTIALS"
	CodeSessionNotFound    = "IDENTITY_SESSION_NOT_FOUND"
	CodeInvalidInput       = "IDENTITY_INVALID_INPUT"
	CodePortFailed         = "IDENTITY_PORT_FAILED"
)

var expected = []error{
	ErrUserAlreadyExists,
	ErrUserNotFound,
	ErrUserDisabled,
	ErrInvalidCredentials,
	ErrSessionNotFound,
	ErrInvalidInput,
}

// IsExpected reports whether err is one of the typed outcomes of invalid input
// or state, as opposed to an adapter failure.
func IsExpected(err error) bool {
	for _, sentinel := range expected {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// IsPortFailure reports whether err is an adapter failure surfaced by Service,
// such as an unavailable database.
func IsPortFailure(err error) bool {
	return err != nil && !IsExpected(err)
}
