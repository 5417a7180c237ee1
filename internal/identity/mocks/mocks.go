// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package mocks provides testify mocks for the identity ports.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/holomush/identityd/internal/identity"
)

// MockUserRepository is a mock identity.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockUserRepository) Create(ctx context.Context, user identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// GetByID provides a mock function.
func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (identity.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(identity.User), args.Error(1)
}

// GetByEmail provides a mock function.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(identity.User), args.Error(1)
}

// MockSessionStore is a mock identity.SessionStore that also implements
// identity.ExpiredSessionPurger.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a mock that asserts its expectations on cleanup.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Create provides a mock function.
func (m *MockSessionStore) Create(ctx context.Context, session identity.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

// Get provides a mock function.
func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (identity.Session, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(identity.Session), args.Error(1)
}

// Delete provides a mock function.
func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// DeleteExpired provides a mock function.
func (m *MockSessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordHasher is a mock identity.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Hash provides a mock function.
func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

// Verify provides a mock function.
func (m *MockPasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// MockIDGenerator is a mock identity.IDGenerator.
type MockIDGenerator struct {
	mock.Mock
}

// NewMockIDGenerator creates a mock that asserts its expectations on cleanup.
func NewMockIDGenerator(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockIDGenerator {
	m := &MockIDGenerator{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewID provides a mock function.
func (m *MockIDGenerator) NewID() (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

var (
	_ identity.UserRepository       = (*MockUserRepository)(nil)
	_ identity.SessionStore         = (*MockSessionStore)(nil)
	_ identity.ExpiredSessionPurger = (*MockSessionStore)(nil)
	_ identity.PasswordHasher       = (*MockPasswordHasher)(nil)
	_ identity.IDGenerator          = (*MockIDGenerator)(nil)
)
