package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/STRATINT/zonewatch/internal/models"
	"github.com/STRATINT/zonewatch/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zonewatch"

// Collector exposes Prometheus metrics for inbound HTTP requests, the
// broadcast hub and the alert simulator.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	subscribers       prometheus.Gauge
	eventsPublished   *prometheus.CounterVec
	deliveriesDropped prometheus.Counter

	ticks           prometheus.Counter
	tickDuration    prometheus.Histogram
	alertsGenerated *prometheus.CounterVec
	fallbacks       prometheus.Counter
	zoneThreat      *prometheus.GaugeVec
}

// NewCollector constructs a collector on a private registry.
func NewCollector() (*Collector, error) {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for inbound HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests.",
		}, []string{"method", "path", "status"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Currently connected event subscribers.",
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events fanned out to subscribers, by type.",
		}, []string{"type"}),
		deliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "deliveries_dropped_total",
			Help:      "Subscribers dropped because their buffer was full or closed.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "ticks_total",
			Help:      "Completed simulation ticks.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "tick_duration_seconds",
			Help:      "Wall time of a simulation tick.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		alertsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "alerts_generated_total",
			Help:      "Alerts written by the simulator, by type.",
		}, []string{"type"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "classifier_fallbacks_total",
			Help:      "Alerts recorded with the degraded verdict after a classifier failure.",
		}),
		zoneThreat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "zone",
			Name:      "threat_level",
			Help:      "Rolling threat level per zone as of the last tick.",
		}, []string{"zone_id", "zone"}),
	}

	for _, col := range []prometheus.Collector{
		c.requestDuration,
		c.requestTotal,
		c.subscribers,
		c.eventsPublished,
		c.deliveriesDropped,
		c.ticks,
		c.tickDuration,
		c.alertsGenerated,
		c.fallbacks,
		c.zoneThreat,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics. Inside a
// chi router the path label is the matched route pattern.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := routePattern(r)

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
		return "unmatched"
	}
	return r.URL.Path
}

// SubscriberJoined implements hub.Observer.
func (c *Collector) SubscriberJoined() { c.subscribers.Inc() }

// SubscriberLeft implements hub.Observer.
func (c *Collector) SubscriberLeft() { c.subscribers.Dec() }

// EventPublished implements hub.Observer. Deleted zones lose their threat
// series.
func (c *Collector) EventPublished(evt models.Event) {
	c.eventsPublished.WithLabelValues(string(evt.Type)).Inc()
	if d, ok := evt.Data.(models.ZoneDeleted); ok {
		c.forgetZone(d.ID)
	}
}

// DeliveryDropped implements hub.Observer.
func (c *Collector) DeliveryDropped() { c.deliveriesDropped.Inc() }

// TickCompleted implements scheduler.Observer.
func (c *Collector) TickCompleted(report scheduler.TickReport, elapsed time.Duration) {
	c.ticks.Inc()
	c.tickDuration.Observe(elapsed.Seconds())
	for _, a := range report.Alerts {
		c.alertsGenerated.WithLabelValues(string(a.Kind)).Inc()
	}
	c.fallbacks.Add(float64(report.Fallbacks))
}

// ZoneThreatObserved implements scheduler.Observer.
func (c *Collector) ZoneThreatObserved(zone models.Zone, level int) {
	c.zoneThreat.WithLabelValues(strconv.FormatInt(zone.ID, 10), zone.Name).Set(float64(level))
}

func (c *Collector) forgetZone(id int64) {
	c.zoneThreat.DeletePartialMatch(prometheus.Labels{"zone_id": strconv.FormatInt(id, 10)})
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Flush supports streaming responses.
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack supports websocket upgrades.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *responseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
