package metrics

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/psantana5/boxbot/pkg/geometry"
	"github.com/psantana5/boxbot/pkg/models"
)

// Metrics holds the controller collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks              *prometheus.CounterVec
	state              *prometheus.GaugeVec
	transitions        *prometheus.CounterVec
	targetDistance     prometheus.Gauge
	obstacleAvoidances prometheus.Counter
	searchRestarts     prometheus.Counter
	wheelVelocity      *prometheus.GaugeVec
	boxMass            *prometheus.GaugeVec
	boxPosition        *prometheus.GaugeVec
	testPhase          prometheus.Gauge
}

// New creates the collectors and registers them
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxbot_ticks_total",
				Help: "Simulation steps processed by a controller",
			},
			[]string{"controller"},
		),
		state: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "boxbot_navigation_state",
				Help: "Current navigation state (1 for the active state, 0 otherwise)",
			},
			[]string{"state"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "boxbot_state_transitions_total",
				Help: "Navigation state transitions",
			},
			[]string{"from", "to"},
		),
		targetDistance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boxbot_target_distance_meters",
			Help: "Planar distance from the robot to the target box",
		}),
		obstacleAvoidances: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boxbot_obstacle_avoidances_total",
			Help: "Ticks spent steering away from an obstacle",
		}),
		searchRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boxbot_search_restarts_total",
			Help: "Searches restarted by the stuck detector",
		}),
		wheelVelocity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "boxbot_wheel_velocity_rad_per_second",
				Help: "Last commanded wheel velocity",
			},
			[]string{"wheel"},
		),
		boxMass: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "boxbot_box_mass_kg",
				Help: "Mass of each box as reported by the supervisor",
			},
			[]string{"box"},
		),
		boxPosition: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "boxbot_box_position_meters",
				Help: "Box position by axis",
			},
			[]string{"box", "axis"},
		),
		testPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "boxbot_movetest_phase",
			Help: "Current phase of the movement tester",
		}),
	}

	m.registry.MustRegister(
		m.ticks,
		m.state,
		m.transitions,
		m.targetDistance,
		m.obstacleAvoidances,
		m.searchRestarts,
		m.wheelVelocity,
		m.boxMass,
		m.boxPosition,
		m.testPhase,
	)

	return m
}

// Tick counts one processed step for controller
func (m *Metrics) Tick(controller string) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(controller).Inc()
}

// SetState marks state as the active navigation state
func (m *Metrics) SetState(state models.RobotState) {
	if m == nil {
		return
	}
	for _, s := range models.States() {
		v := 0.0
		if s == state {
			v = 1
		}
		m.state.WithLabelValues(s.String()).Set(v)
	}
}

// Transition counts a state change and updates the state gauge
func (m *Metrics) Transition(from, to models.RobotState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
	m.SetState(to)
}

// TargetDistance records the robot-to-target distance
func (m *Metrics) TargetDistance(d float64) {
	if m == nil {
		return
	}
	m.targetDistance.Set(d)
}

func (m *Metrics) ObstacleAvoided() {
	if m == nil {
		return
	}
	m.obstacleAvoidances.Inc()
}

func (m *Metrics) SearchRestarted() {
	if m == nil {
		return
	}
	m.searchRestarts.Inc()
}

// Wheels records the commanded wheel velocities
func (m *Metrics) Wheels(left, right float64) {
	if m == nil {
		return
	}
	m.wheelVelocity.WithLabelValues("left").Set(left)
	m.wheelVelocity.WithLabelValues("right").Set(right)
}

// Box records a box position and, when known, its mass
func (m *Metrics) Box(name string, pos geometry.Vec3, mass float64, hasMass bool) {
	if m == nil {
		return
	}
	m.boxPosition.WithLabelValues(name, "x").Set(pos.X())
	m.boxPosition.WithLabelValues(name, "y").Set(pos.Y())
	m.boxPosition.WithLabelValues(name, "z").Set(pos.Z())
	if hasMass {
		m.boxMass.WithLabelValues(name).Set(mass)
	}
}

// Phase records the movement tester phase
func (m *Metrics) Phase(phase int) {
	if m == nil {
		return
	}
	m.testPhase.Set(float64(phase))
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Router returns the /metrics and /health routes
func (m *Metrics) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/metrics", m.Handler()).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}).Methods("GET")
	return router
}

// NewServer wraps Router in an HTTP server listening on addr
func (m *Metrics) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      m.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// WriteText writes a snapshot of every metric family in the text format
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}

	_, err = w.Write(buf.Bytes())
	return err
}
