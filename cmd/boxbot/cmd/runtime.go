package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/psantana5/boxbot/internal/sim"
	"github.com/psantana5/boxbot/pkg/logging"
	"github.com/psantana5/boxbot/pkg/metrics"
	"github.com/psantana5/boxbot/pkg/models"
	"github.com/psantana5/boxbot/pkg/shutdown"
	"github.com/psantana5/boxbot/pkg/store"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// session is everything one controller run needs: the simulated world,
// logging, metrics, the optional recorder and graceful shutdown.
type session struct {
	runID    string
	world    *sim.World
	sim      *sim.Sim
	logger   *logging.Logger
	metrics  *metrics.Metrics
	store    store.Store
	shutdown *shutdown.Manager
	ctx      context.Context
	cancel   context.CancelFunc
}

func newSession(cmd *cobra.Command, controller string) (*session, error) {
	runID := uuid.New().String()

	base, err := logging.NewComponentLogger(controller, cfg.LogLevel(), cfg.Log.JSON, cfg.Log.Dir)
	if err != nil {
		return nil, err
	}
	logger := base.WithFields(logging.Fields{"controller": controller, "run_id": runID})

	s := &session{
		runID:    runID,
		logger:   logger,
		metrics:  metrics.New(),
		shutdown: shutdown.New(shutdownTimeout, logger),
	}
	s.shutdown.Register("logger", shutdown.CloseResource(base))

	world, err := loadWorld()
	if err != nil {
		s.shutdown.Shutdown()
		return nil, err
	}
	s.world = world

	s.sim, err = sim.New(world,
		sim.WithRealtime(cfg.Realtime),
		sim.WithMaxDuration(cfg.MaxDuration),
		sim.WithLogger(logger.WithField("component", "sim")),
	)
	if err != nil {
		s.shutdown.Shutdown()
		return nil, err
	}

	if cfg.Record.Path != "" {
		db, err := store.NewSQLiteStore(cfg.Record.Path)
		if err != nil {
			s.shutdown.Shutdown()
			return nil, err
		}
		s.store = db
		s.shutdown.Register("run recorder", shutdown.CloseResource(db))
	}

	if cfg.Metrics.Addr != "" {
		server := s.metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			logger.Info("metrics server listening", logging.Fields{"addr": cfg.Metrics.Addr})
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", logging.Fields{"error": err.Error()})
			}
		}()
		s.shutdown.Register("metrics server", shutdown.StopHTTPServer(server))
	}

	s.ctx, s.cancel = s.shutdown.Context(cmd.Context())
	return s, nil
}

func loadWorld() (*sim.World, error) {
	if cfg.World == "" {
		return sim.DefaultWorld(), nil
	}
	return sim.LoadWorld(cfg.World)
}

// begin records the start of a run when a recorder is configured
func (s *session) begin(controller, target string) {
	if s.store == nil {
		return
	}
	err := s.store.CreateRun(&store.Run{
		ID:         s.runID,
		Controller: controller,
		StartedAt:  time.Now(),
		Target:     target,
	})
	if err != nil {
		s.logger.Warn("failed to record run", logging.Fields{"error": err.Error()})
		s.store = nil
	}
}

// abort releases a session whose controller could not be built
func (s *session) abort() {
	s.cancel()
	s.shutdown.Shutdown()
}

// finish closes the run record, dumps metrics if asked and releases
// everything registered with the shutdown manager.
func (s *session) finish(cmd *cobra.Command, finalState models.RobotState, ticks int) {
	defer s.shutdown.Shutdown()
	defer s.cancel()

	if s.store != nil {
		if err := s.store.FinishRun(s.runID, time.Now(), finalState, ticks); err != nil {
			s.logger.Warn("failed to close run record", logging.Fields{"error": err.Error()})
		}
	}

	if cfg.Metrics.Dump {
		fmt.Fprintln(cmd.OutOrStdout())
		if err := s.metrics.WriteText(cmd.OutOrStdout()); err != nil {
			s.logger.Warn("failed to dump metrics", logging.Fields{"error": err.Error()})
		}
	}
}
