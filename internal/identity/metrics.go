// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels recorded by Metrics.
const (
	resultSuccess            = "success"
	resultInvalidInput       = "invalid_input"
	resultExists             = "exists"
	resultInvalidCredentials = "invalid_credentials"
	resultDisabled           = "disabled"
	resultMissing            = "missing"
	resultExpired            = "expired"
	resultError              = "error"
)

// Metrics counts identity use-case outcomes.
type Metrics struct {
	registrations *prometheus.CounterVec
	logins        *prometheus.CounterVec
	logouts       *prometheus.CounterVec
	sessionAuth   *prometheus.CounterVec
}

// NewMetrics creates and registers identity metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_registrations_total",
			Help: "Total number of user registrations by result",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_logins_total",
			Help: "Total number of login attempts by result",
		}, []string{"result"}),
		logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_logouts_total",
			Help: "Total number of logouts by result",
		}, []string{"result"}),
		sessionAuth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "identityd_session_auth_total",
			Help: "Total number of session authentications by result",
		}, []string{"result"}),
	}

	reg.MustRegister(m.registrations, m.logins, m.logouts, m.sessionAuth)
	return m
}

func (m *Metrics) registration(result string) {
	if m != nil {
		m.registrations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) login(result string) {
	if m != nil {
		m.logins.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) logout(result string) {
	if m != nil {
		m.logouts.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) auth(result string) {
	if m != nil {
		m.sessionAuth.WithLabelValues(result).Inc()
	}
}
