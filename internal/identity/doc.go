// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identity provides session-based authentication use cases.
//
// # Domain Types
//
// User and Session are plain values. A User is created by Service.CreateUser
// and is never mutated afterwards. A Session is created by Service.Login and
// is deleted either by Service.Logout or lazily by Service.AuthenticateSession
// once its expiry has passed. Sessions are never renewed in place; every login
// mints a fresh token.
//
// # Ports
//
// The service depends only on the capability interfaces declared here:
//   - UserRepository - user records keyed by ID and by normalized email
//   - SessionStore - session records keyed by the opaque session token
//   - PasswordHasher - one-way hashing and verification
//   - IDGenerator - unique, unguessable identifiers
//   - Clock - the current instant
//
// Adapters report a missing record with ErrNotFound and a lost email race in
// UserRepository.Create with ErrUserAlreadyExists. Any other adapter error is
// treated as a port failure.
//
// # Errors
//
// Every expected failure wraps one of the package sentinels (ErrUserAlreadyExists,
// ErrUserNotFound, ErrUserDisabled, ErrInvalidCredentials, ErrSessionNotFound,
// ErrInvalidInput) and carries a stable oops code. Transports map them with
// errors.Is and must not distinguish an unknown email from a wrong password.
package identity
