// Package metrics defines and registers the custom Prometheus metrics for
// the knowledge workflow API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "knowledgehub"

// ── Knowledge metrics ─────────────────────────────────────────────────────────

// KnowledgeSubmissionsTotal counts accepted submissions.
// Label:
//   - result: "created" or "replayed" (idempotency key hit)
var KnowledgeSubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "knowledge_submissions_total",
		Help:      "Total number of knowledge submissions, by result.",
	},
	[]string{"result"},
)

// KnowledgeDecisionsTotal counts recorded validation decisions.
// Label:
//   - decision: the status literal written (e.g. "Approved")
var KnowledgeDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "knowledge_decisions_total",
		Help:      "Total number of validation decisions recorded, by decision.",
	},
	[]string{"decision"},
)

// ── Account metrics ───────────────────────────────────────────────────────────

// AccountSignupsTotal counts accounts created through signup.
var AccountSignupsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_signups_total",
		Help:      "Total number of pending accounts created by signup.",
	},
)

// AccountDecisionsTotal counts admin decisions on pending accounts.
// Label:
//   - decision: "approved" or "rejected"
var AccountDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "account_decisions_total",
		Help:      "Total number of account approvals and rejections.",
	},
	[]string{"decision"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid", "pending" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Scoring / errors ──────────────────────────────────────────────────────────

// LeaderboardDuration measures one leaderboard computation.
var LeaderboardDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "leaderboard_duration_seconds",
		Help:      "Duration of leaderboard computation including the knowledge listing.",
		Buckets:   prometheus.DefBuckets,
	},
)

// APIErrorsTotal counts error responses by taxonomy kind
// (e.g. "validation", "forbidden", "backend_unavailable").
var APIErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_errors_total",
		Help:      "Total number of error responses, by error kind.",
	},
	[]string{"kind"},
)
