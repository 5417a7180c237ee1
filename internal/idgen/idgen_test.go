// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package idgen_test

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/identityd/internal/clock"
	"github.com/holomush/identityd/internal/idgen"
	"github.com/holomush/identityd/pkg/errutil"
)

func TestToken_NewID(t *testing.T) {
	g := idgen.NewToken()

	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id, err := g.NewID()
		require.NoError(t, err)
		require.Len(t, id, 43)

		raw, err := base64.RawURLEncoding.DecodeString(id)
		require.NoError(t, err)
		assert.Len(t, raw, 32)

		_, dup := seen[id]
		require.False(t, dup, "duplicate token %s", id)
		seen[id] = struct{}{}
	}
}

func TestULID_NewID(t *testing.T) {
	now := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	g := idgen.NewULID(clock.NewManual(now))

	id, err := g.NewID()
	require.NoError(t, err)

	parsed, err := ulid.ParseStrict(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestUUID_NewID(t *testing.T) {
	id, err := idgen.UUID{}.NewID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())
}

func TestNew(t *testing.T) {
	clk := clock.System{}

	tests := []struct {
		format string
		check  func(t *testing.T, id string)
	}{
		{"", func(t *testing.T, id string) { assert.Len(t, id, 43) }},
		{idgen.FormatToken, func(t *testing.T, id string) { assert.Len(t, id, 43) }},
		{idgen.FormatULID, func(t *testing.T, id string) { assert.Len(t, id, 26) }},
		{"UUID", func(t *testing.T, id string) { assert.Len(t, id, 36) }},
	}
	for _, tt := range tests {
		t.Run("format "+tt.format, func(t *testing.T) {
			g, err := idgen.New(tt.format, clk)
			require.NoError(t, err)
			id, err := g.NewID()
			require.NoError(t, err)
			tt.check(t, id)
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := idgen.New("snowflake", clk)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "IDGEN_UNKNOWN_FORMAT")
	})

	t.Run("ulid requires clock", func(t *testing.T) {
		_, err := idgen.New(idgen.FormatULID, nil)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "IDGEN_INVALID")
	})
}
