// Package metrics defines and registers the custom Prometheus metrics of the
// account service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry on package init through
// promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "account"

// ── Registration & login ──────────────────────────────────────────────────────

// RegistrationsTotal counts registration steps.
// Label:
//   - step: "started", "resent", "verified" or "failed"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Registration steps processed, by step.",
	},
	[]string{"step"},
)

// AccountsCreatedTotal counts new accounts.
// Label:
//   - source: "email" or the federated provider name
var AccountsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accounts_created_total",
		Help:      "Accounts created, by source.",
	},
	[]string{"source"},
)

// LoginsTotal counts password logins.
// Label:
//   - result: "success", "invalid_credentials" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Password login attempts, by result.",
	},
	[]string{"result"},
)

// ── Verification codes ────────────────────────────────────────────────────────

// CodesIssuedTotal counts one-time codes sent by email.
// Label:
//   - purpose: "registration" or "password_reset"
var CodesIssuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "codes_issued_total",
		Help:      "Verification codes issued, by purpose.",
	},
	[]string{"purpose"},
)

// CodeChecksTotal counts code redemptions and checks.
// Labels:
//   - purpose: "registration" or "password_reset"
//   - result: "valid" or "invalid"
var CodeChecksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "code_checks_total",
		Help:      "Verification code checks, by purpose and result.",
	},
	[]string{"purpose", "result"},
)

// ── Guards ────────────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the rate limiter.
// Label:
//   - class: endpoint class, e.g. "auth"
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by endpoint class.",
	},
	[]string{"class"},
)

// CSRFRejectedTotal counts state-changing requests refused for a bad or
// missing CSRF token.
var CSRFRejectedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "csrf_rejected_total",
		Help:      "Requests rejected by CSRF verification.",
	},
)

// ── OAuth ─────────────────────────────────────────────────────────────────────

// OAuthCallbacksTotal counts provider callbacks.
// Labels:
//   - provider: e.g. "google"
//   - result: "success" or the error marker sent to the client
var OAuthCallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oauth_callbacks_total",
		Help:      "OAuth callbacks handled, by provider and result.",
	},
	[]string{"provider", "result"},
)

// ── Notifications ─────────────────────────────────────────────────────────────

// NotificationsTotal counts background notices.
// Labels:
//   - kind: "welcome" or "password_changed"
//   - result: "sent", "failed" or "dropped"
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_total",
		Help:      "Background notifications, by kind and result.",
	},
	[]string{"kind", "result"},
)

// NotificationQueueDepth tracks notices waiting in each dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of notifications pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)
