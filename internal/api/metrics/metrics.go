// Package metrics defines and registers the custom Prometheus metrics of the
// event booking API. It is the single source of truth for metric names,
// labels and help strings.
//
// Metrics register with the default registry on import via promauto.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eventbooker/event-booker/internal/core/auth"
	"github.com/eventbooker/event-booker/internal/core/domain"
)

const namespace = "eventbooker"

// ── Access metrics ────────────────────────────────────────────────────────────

// AuthDecisionsTotal counts access pipeline outcomes.
// Labels:
//   - decision: "authenticate", "authorize" or "ownership"
//   - reason: "ok" or the rejection label (e.g. "token_expired", "forbidden")
var AuthDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_decisions_total",
		Help:      "Total number of access decisions, by decision and reason.",
	},
	[]string{"decision", "reason"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// ── Booking metrics ───────────────────────────────────────────────────────────

// BookingsTotal counts booking requests.
// Label:
//   - result: "confirmed", "replayed", "capacity_exceeded", "event_closed",
//     "invalid" or "error"
var BookingsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_total",
		Help:      "Total number of booking requests, by result.",
	},
	[]string{"result"},
)

// SeatsReservedTotal counts seats reserved by confirmed bookings.
var SeatsReservedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "seats_reserved_total",
		Help:      "Total number of seats reserved.",
	},
)

// BookingCancellationsTotal counts cancelled bookings.
var BookingCancellationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_cancellations_total",
		Help:      "Total number of bookings cancelled.",
	},
)

// NoticesDroppedTotal counts booking notices dropped because a dispatcher
// queue was full.
var NoticesDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notices_dropped_total",
		Help:      "Total number of booking notices dropped by the dispatcher.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsCreatedTotal counts newly created events.
// Label:
//   - category: the event category (e.g. "concerts")
var EventsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_created_total",
		Help:      "Total number of events created, by category.",
	},
	[]string{"category"},
)

// BookingResult maps a Book error to its BookingsTotal label.
func BookingResult(err error) string {
	switch {
	case err == nil:
		return "confirmed"
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, domain.ErrEventInactive):
		return "event_closed"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound):
		return "invalid"
	default:
		return "error"
	}
}

// ObserveAuthDecision records a pipeline outcome. It matches auth.Observer.
func ObserveAuthDecision(decision string, err error) {
	AuthDecisionsTotal.WithLabelValues(decision, auth.Reason(err)).Inc()
}
