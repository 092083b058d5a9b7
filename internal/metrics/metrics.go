package metrics

import "github.com/prometheus/client_golang/prometheus"

// APIMetrics счётчики и гистограммы запросов к бэкенду клиники
type APIMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewAPIMetrics регистрирует метрики API клиента
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	m := &APIMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbooking",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total requests to the clinic backend",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medbooking",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Latency of clinic backend requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest учитывает один завершённый запрос
func (m *APIMetrics) ObserveRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}

// BookingMetrics метрики мастера записи и списка записей
type BookingMetrics struct {
	staleSlots  prometheus.Counter
	mutations   *prometheus.CounterVec
	wizardSteps *prometheus.CounterVec
}

// NewBookingMetrics регистрирует метрики бронирования
func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		staleSlots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medbooking",
			Subsystem: "booking",
			Name:      "stale_slot_responses_total",
			Help:      "Slot responses discarded because the selection changed",
		}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbooking",
			Subsystem: "booking",
			Name:      "mutations_total",
			Help:      "Appointment create/reschedule/cancel outcomes",
		}, []string{"kind", "status"}),
		wizardSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medbooking",
			Subsystem: "booking",
			Name:      "wizard_transitions_total",
			Help:      "Booking wizard step transitions",
		}, []string{"step"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.staleSlots, m.mutations, m.wizardSteps)
	return m
}

func (m *BookingMetrics) ObserveStaleSlots() {
	if m == nil {
		return
	}
	m.staleSlots.Inc()
}

func (m *BookingMetrics) ObserveMutation(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.mutations.WithLabelValues(kind, status).Inc()
}

func (m *BookingMetrics) ObserveStep(step string) {
	if m == nil {
		return
	}
	m.wizardSteps.WithLabelValues(step).Inc()
}
