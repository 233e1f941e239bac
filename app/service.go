package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/capsched/config"
	coremetrics "github.com/kilianp07/capsched/core/metrics"
	"github.com/kilianp07/capsched/core/model"
	"github.com/kilianp07/capsched/core/runlog"
	"github.com/kilianp07/capsched/core/scheduler"
	"github.com/kilianp07/capsched/core/scoring"
	"github.com/kilianp07/capsched/infra/landscapefile"
	"github.com/kilianp07/capsched/infra/logger"
	"github.com/kilianp07/capsched/infra/metrics"
	"github.com/kilianp07/capsched/infra/mqtt"
	"github.com/kilianp07/capsched/internal/eventbus"
)

// Service wires the scheduler to its run log, metrics sinks and work order
// publisher.
type Service struct {
	Scheduler *scheduler.Scheduler

	cfg      *config.Config
	store    runlog.Store
	bus      *eventbus.Bus
	gatherer prometheus.Gatherer
	cli      mqtt.Client
	closeCli func()
	cancel   context.CancelFunc
	done     <-chan struct{}
	log      logger.Logger
	once     sync.Once
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher replaces the MQTT client built from the configuration.
func WithPublisher(cli mqtt.Client) Option { return func(s *Service) { s.cli = cli } }

// WithGatherer replaces the registry written to the metrics textfile.
func WithGatherer(g prometheus.Gatherer) Option { return func(s *Service) { s.gatherer = g } }

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	s := &Service{cfg: cfg, gatherer: prometheus.DefaultGatherer, log: logger.New("service")}
	for _, opt := range opts {
		opt(s)
	}

	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return nil, fmt.Errorf("run log: %w", err)
	}
	s.store = store
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	s.bus = eventbus.New()
	s.Scheduler = scheduler.New(
		scheduler.WithLogger(logger.New("scheduler")),
		scheduler.WithBus(s.bus),
		scheduler.WithSink(sink),
		scheduler.WithRunLog(store),
	)
	if err := s.Scheduler.InitSettings(cfg.Scheduler); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("scheduler settings: %w", err)
	}
	if err := s.Scheduler.InitScoring(cfg.Scoring); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("scoring policy: %w", err)
	}

	if s.cli == nil && cfg.MQTT.Enabled {
		pc, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.cli = pc
		s.closeCli = pc.Disconnect
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = mqtt.StartWorkOrderPublisher(ctx, s.bus, s.cli, cfg.MQTT.AckTimeout)
	return s, nil
}

// Schedule loads the landscape document at path and schedules its tasks.
// With keys only the named tasks are scheduled. The returned document holds
// the resulting schedule.
func (s *Service) Schedule(ctx context.Context, path string, keys []string) (*landscapefile.File, error) {
	tasks, err := s.load(path, keys)
	if err != nil {
		return nil, err
	}
	if err := s.Scheduler.Schedule(ctx, tasks); err != nil {
		return nil, err
	}
	s.report()
	return landscapefile.FromLandscape(s.Scheduler.Landscape()), nil
}

// Unschedule loads the landscape document at path and releases the named
// tasks, or every scheduled production task when keys is empty.
func (s *Service) Unschedule(ctx context.Context, path string, keys []string) (*landscapefile.File, error) {
	tasks, err := s.load(path, keys)
	if err != nil {
		return nil, err
	}
	if err := s.Scheduler.Unschedule(ctx, tasks); err != nil {
		return nil, err
	}
	s.report()
	return landscapefile.FromLandscape(s.Scheduler.Landscape()), nil
}

// History returns the run records matching q.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.RunRecord, error) {
	return s.store.Query(ctx, q)
}

// Rules lists the scoring rules a policy may name.
func Rules() []string { return scoring.NewRegistry().Names() }

func (s *Service) load(path string, keys []string) ([]*model.Task, error) {
	doc, err := landscapefile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load landscape: %w", err)
	}
	l, tasks, err := doc.Landscape()
	if err != nil {
		return nil, fmt.Errorf("landscape %s: %w", path, err)
	}
	if err := s.Scheduler.InitLandscape(l); err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return tasks, nil
	}
	out := make([]*model.Task, 0, len(keys))
	for _, k := range keys {
		t, ok := l.Task(k)
		if !ok {
			return nil, fmt.Errorf("unknown task %s", k)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *Service) report() {
	if s.cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := metrics.WriteTextfile(s.cfg.Metrics.TextfilePath, s.gatherer); err != nil {
		s.log.Errorf("write metrics textfile: %v", err)
	}
}

// Close drains pending work orders and releases the run log and the broker
// connection.
func (s *Service) Close() error {
	var err error
	s.once.Do(func() {
		s.bus.Close()
		<-s.done
		s.cancel()
		if s.closeCli != nil {
			s.closeCli()
		}
		err = s.store.Close()
	})
	return err
}
