package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/ledger-atlas/pkg/models/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type Controller interface {
	Start(ctx context.Context) error
	Trigger(ctx context.Context) domain.WorkflowRun
	Cancel(ctx context.Context) error
	LastRun() (domain.WorkflowRun, bool)
}

type Settings struct {
	Schedule string // standard five-field cron expression
	Timezone string
}

// DefaultController runs the portfolio recompute on a cron schedule. Runs never
// overlap: a tick that fires while a run is in progress is skipped.
type DefaultController struct {
	runner   *Runner
	settings Settings

	mu      sync.Mutex
	cron    *cron.Cron
	running sync.Mutex
	last    *domain.WorkflowRun
}

func NewController(runner *Runner, settings Settings) *DefaultController {
	return &DefaultController{
		runner:   runner,
		settings: settings,
	}
}

func (ctrl *DefaultController) Start(ctx context.Context) error {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()

	if ctrl.cron != nil {
		return fmt.Errorf("workflow %s already started", ctrl.runner.name)
	}

	location := time.UTC
	if ctrl.settings.Timezone != "" {
		loc, err := time.LoadLocation(ctrl.settings.Timezone)
		if err != nil {
			return fmt.Errorf("invalid schedule timezone %q: %w", ctrl.settings.Timezone, err)
		}
		location = loc
	}

	logger := zerolog.Ctx(ctx).With().Str("workflow", ctrl.runner.name).Logger()
	cronLogger := cronLogger{logger: logger}

	c := cron.New(
		cron.WithLocation(location),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(ctrl.settings.Schedule, func() {
		ctrl.Trigger(ctx)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", ctrl.settings.Schedule, err)
	}

	c.Start()
	ctrl.cron = c
	logger.Info().Str("schedule", ctrl.settings.Schedule).Msg("workflow scheduled")
	return nil
}

// Trigger runs the recompute immediately, waiting for a run already in progress.
func (ctrl *DefaultController) Trigger(ctx context.Context) domain.WorkflowRun {
	ctrl.running.Lock()
	defer ctrl.running.Unlock()

	run := ctrl.runner.Run(ctx)

	ctrl.mu.Lock()
	ctrl.last = &run
	ctrl.mu.Unlock()
	return run
}

// Cancel stops the schedule and waits for a running recompute to return.
func (ctrl *DefaultController) Cancel(ctx context.Context) error {
	ctrl.mu.Lock()
	c := ctrl.cron
	ctrl.cron = nil
	ctrl.mu.Unlock()

	if c == nil {
		return fmt.Errorf("workflow not running: %s", ctrl.runner.name)
	}

	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (ctrl *DefaultController) LastRun() (domain.WorkflowRun, bool) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if ctrl.last == nil {
		return domain.WorkflowRun{}, false
	}
	return *ctrl.last, true
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
