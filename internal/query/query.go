// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package query produces placeholder answers for authenticated user queries.
package query

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/identityd/internal/identity"
)

// ErrEmptyQuery is returned when the query text is blank.
var ErrEmptyQuery = errors.New("query text cannot be empty")

// Answer is the reply to a query.
type Answer struct {
	Text      string
	CreatedAt time.Time
}

// Answerer echoes query text back to the caller.
type Answerer struct {
	clock identity.Clock
}

// NewAnswerer creates an Answerer stamping answers with clock.
func NewAnswerer(clock identity.Clock) *Answerer {
	return &Answerer{clock: clock}
}

// Answer replies to text. Surrounding whitespace is ignored.
func (a *Answerer) Answer(text string) (Answer, error) {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return Answer{}, oops.Code("QUERY_EMPTY").Wrap(ErrEmptyQuery)
	}
	return Answer{
		Text:      "Echo: " + normalized,
		CreatedAt: a.clock.Now().UTC(),
	}, nil
}
