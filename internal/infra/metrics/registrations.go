package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		registrationsCompletedTotal,
		registrationsDeniedTotal,
		waitlistJoinsTotal,
		categoryOccupancy,
	)
}

var (
	registrationsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_completed_total",
			Help: "Completed registrations by registration type.",
		},
		[]string{"type"},
	)

	registrationsDeniedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_denied_total",
			Help: "Denied registration attempts by reason.",
		},
		[]string{"reason"},
	)

	waitlistJoinsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_joins_total",
			Help: "Waitlist entries created on capacity-full denials.",
		},
	)

	categoryOccupancy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "category_occupancy",
			Help: "Occupying registrations per category, refreshed by the admin report.",
		},
		[]string{"category_id"},
	)
)

func IncRegistrationCompleted(typ string) {
	registrationsCompletedTotal.WithLabelValues(norm(typ)).Inc()
}

func IncRegistrationDenied(reason string) {
	registrationsDeniedTotal.WithLabelValues(norm(reason)).Inc()
}

func IncWaitlistJoin() {
	waitlistJoinsTotal.Inc()
}

func SetCategoryOccupancy(categoryID string, n int) {
	categoryOccupancy.WithLabelValues(categoryID).Set(float64(n))
}
