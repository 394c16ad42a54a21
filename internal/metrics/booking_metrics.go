package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics содержит метрики workflow бронирования.
type BookingMetrics struct {
	// Счётчики исходов
	bookingsStarted   prometheus.Counter
	bookingsConfirmed prometheus.Counter
	bookingsRejected  *prometheus.CounterVec // ожидаемые отказы, с меткой reason
	bookingsFailed    prometheus.Counter     // неожиданные сбои

	// Гистограммы времени выполнения
	bookingDuration prometheus.Histogram
	stepDuration    *prometheus.HistogramVec

	// Пост-коммитные расхождения: декремент не прошёл после подтверждения.
	inventoryDrift prometheus.Counter

	// Нотификации
	notificationsSent   prometheus.Counter
	notificationsFailed prometheus.Counter

	// Счётчики событий timeline/outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter

	// Gauge для бронирований в полёте
	activeBookings prometheus.Gauge
}

// NewBookingMetrics создаёт новый экземпляр метрик бронирования.
func NewBookingMetrics() *BookingMetrics {
	return newBookingMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newBookingMetricsWithRegisterer(registerer prometheus.Registerer) *BookingMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &BookingMetrics{
		bookingsStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_bookings_started_total",
			Help: "Total number of booking attempts started",
		}),
		bookingsConfirmed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_bookings_confirmed_total",
			Help: "Total number of bookings confirmed",
		}),
		bookingsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "eventtix_bookings_rejected_total",
			Help: "Total number of bookings rejected before the reservation write, grouped by reason",
		}, []string{"reason"}),
		bookingsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_bookings_failed_total",
			Help: "Total number of bookings aborted by unexpected faults",
		}),
		bookingDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "eventtix_booking_duration_seconds",
			Help:    "Duration of booking attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		stepDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "eventtix_booking_step_duration_seconds",
			Help:    "Duration of individual booking steps in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"step"}),
		inventoryDrift: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_inventory_drift_total",
			Help: "Confirmed bookings whose inventory decrement failed (seat count may be off)",
		}),
		notificationsSent: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_notifications_sent_total",
			Help: "Total number of confirmation notifications delivered",
		}),
		notificationsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_notifications_failed_total",
			Help: "Total number of confirmation notifications that failed to deliver",
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "eventtix_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
		activeBookings: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "eventtix_active_bookings",
			Help: "Number of booking attempts currently in flight",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordBookingStarted увеличивает счётчик начатых бронирований.
func (m *BookingMetrics) RecordBookingStarted() {
	m.bookingsStarted.Inc()
	m.activeBookings.Inc()
}

// RecordBookingFinished уменьшает количество бронирований в полёте.
func (m *BookingMetrics) RecordBookingFinished() {
	m.activeBookings.Dec()
}

// RecordBookingConfirmed увеличивает счётчик подтверждённых бронирований.
func (m *BookingMetrics) RecordBookingConfirmed() {
	m.bookingsConfirmed.Inc()
}

// RecordBookingRejected увеличивает счётчик ожидаемых отказов с указанием причины.
func (m *BookingMetrics) RecordBookingRejected(reason string) {
	m.bookingsRejected.WithLabelValues(reason).Inc()
}

// RecordBookingFailed увеличивает счётчик неожиданных сбоев.
func (m *BookingMetrics) RecordBookingFailed() {
	m.bookingsFailed.Inc()
}

// RecordBookingDuration записывает время выполнения бронирования.
func (m *BookingMetrics) RecordBookingDuration(duration time.Duration) {
	m.bookingDuration.Observe(duration.Seconds())
}

// RecordStepDuration записывает время выполнения шага бронирования.
func (m *BookingMetrics) RecordStepDuration(step string, duration time.Duration) {
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordInventoryDrift фиксирует расхождение мест после неудачного декремента.
func (m *BookingMetrics) RecordInventoryDrift() {
	m.inventoryDrift.Inc()
}

// RecordNotificationSent увеличивает счётчик доставленных уведомлений.
func (m *BookingMetrics) RecordNotificationSent() {
	m.notificationsSent.Inc()
}

// RecordNotificationFailed увеличивает счётчик недоставленных уведомлений.
func (m *BookingMetrics) RecordNotificationFailed() {
	m.notificationsFailed.Inc()
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *BookingMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *BookingMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
