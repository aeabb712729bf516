// Package metrics defines the Prometheus instruments exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the domain counters incremented by the handlers.
type Metrics struct {
	ReservationsCreated *prometheus.CounterVec
	ReservationsClaimed prometheus.Counter
	ChangesSubmitted    *prometheus.CounterVec
	ChangesResolved     *prometheus.CounterVec
	ChargesAdded        prometheus.Counter
}

// New registers the instrument set on reg and returns it. Production wires
// prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ReservationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "innkeeper_reservations_created_total",
			Help: "Reservations created, labelled by room number",
		}, []string{"room"}),
		ReservationsClaimed: f.NewCounter(prometheus.CounterOpts{
			Name: "innkeeper_reservations_claimed_total",
			Help: "Reservations claimed into guest accounts",
		}),
		ChangesSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "innkeeper_change_requests_submitted_total",
			Help: "Change requests submitted, labelled by type",
		}, []string{"type"}),
		ChangesResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "innkeeper_change_requests_resolved_total",
			Help: "Change requests resolved, labelled by type and outcome",
		}, []string{"type", "outcome"}),
		ChargesAdded: f.NewCounter(prometheus.CounterOpts{
			Name: "innkeeper_service_charges_total",
			Help: "Service charges added to reservations",
		}),
	}
}
