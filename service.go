package treemirror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/treemirror/logging"
	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/progress"
	"github.com/viant/treemirror/runtime/lock"
	"github.com/viant/treemirror/runtime/pool"
	"github.com/viant/treemirror/service/action/download"
	"github.com/viant/treemirror/service/action/extract"
	"github.com/viant/treemirror/service/dao"
	dbadger "github.com/viant/treemirror/service/dao/badger"
	dfs "github.com/viant/treemirror/service/dao/fs"
	dmemory "github.com/viant/treemirror/service/dao/memory"
	"github.com/viant/treemirror/service/event"
	"github.com/viant/treemirror/service/messaging/memory"
	"github.com/viant/treemirror/service/mirror"
	"github.com/viant/treemirror/service/scheduler"
	"github.com/viant/treemirror/tracing"
	"go.uber.org/zap"
)

const (
	serviceName    = "treemirror"
	serviceVersion = "0.1.0"
)

// Service owns the pool registry, the tree, the scheduler and their shared
// infrastructure.
type Service struct {
	config   *Config
	logger   *zap.Logger
	metrics  *metrics.Metrics
	provider mirror.Provider
	handles  dao.Service[string, mirror.Handle]
	client   *http.Client

	registry  *pool.Registry
	events    *event.Service
	mirror    *mirror.Service
	scheduler *scheduler.Service
	downloads *pool.Pool[*download.Task]
	extracts  *pool.Pool[*extract.Task]
	env       *download.Env

	mux     sync.Mutex
	cancel  context.CancelFunc
	pulse   sync.WaitGroup
	closers []func() error
}

// New validates the configuration and wires the components. Nothing runs
// until Start.
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(); err != nil {
		_ = ret.closeAll()
		return nil, err
	}
	return ret, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		logger, err := logging.New(s.config.Log)
		if err != nil {
			return err
		}
		s.logger = logger
	}
	if s.metrics == nil && s.config.Metrics.Enabled {
		s.metrics = metrics.New()
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Init(serviceName, serviceVersion, s.config.Tracing.Output); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.provider == nil {
		s.provider = afs.New()
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.config.Install.Timeout}
	}
	if s.handles == nil {
		handles, err := s.newHandleStore()
		if err != nil {
			return err
		}
		s.handles = handles
	}
	s.registry = pool.NewRegistry(
		pool.WithLogger(s.logger.Named("pool")),
		pool.WithMetrics(s.metrics),
		pool.WithBulk(s.config.Pool.Bulk),
	)
	s.events = event.New(
		event.WithLogger(s.logger.Named("event")),
		event.WithNewMemoryQueueConfig(func(string) memory.Config { return s.config.Events.queueConfig() }),
	)
	s.mirror = mirror.New(
		mirror.WithConfig(&s.config.Tree),
		mirror.WithProvider(s.provider),
		mirror.WithRegistry(s.registry),
		mirror.WithLock(lock.New(lock.WithLogger(s.logger.Named("lock")), lock.WithMetrics(s.metrics))),
		mirror.WithHandleStore(s.handles),
		mirror.WithEvents(s.events),
		mirror.WithLogger(s.logger.Named("tree")),
		mirror.WithMetrics(s.metrics),
	)
	s.scheduler = scheduler.New(
		scheduler.WithConfig(&s.config.Scheduler),
		scheduler.WithLogger(s.logger.Named("scheduler")),
		scheduler.WithMetrics(s.metrics),
	)
	tasks := s.logger.Named("tasks")
	s.scheduler.Watch(func(p progress.Progress) {
		tasks.Debug("progress", zap.Int("total", p.TotalTasks), zap.Int("running", p.RunningTasks), zap.Int("pending", p.PendingTasks), zap.Int("done", p.Done()))
	})
	s.downloads = pool.Of[*download.Task](s.registry, download.New)
	s.extracts = pool.Of[*extract.Task](s.registry, extract.New)
	s.env = &download.Env{Mirror: s.mirror, Client: s.client, Metrics: s.metrics}
	return nil
}

func (s *Service) newHandleStore() (dao.Service[string, mirror.Handle], error) {
	store := s.config.Store
	switch store.Type {
	case StoreFS:
		return dfs.New[mirror.Handle](context.Background(), store.Path, mirror.HandleID,
			dfs.WithLogger[mirror.Handle](s.logger.Named("store")))
	case StoreBadger:
		ret, err := dbadger.New[mirror.Handle](dbadger.Config{Path: store.Path}, "treemirror/handle/", mirror.HandleID)
		if err != nil {
			return nil, fmt.Errorf("failed to open handle store: %w", err)
		}
		s.closers = append(s.closers, ret.Close)
		return ret, nil
	default:
		return dmemory.New[string, mirror.Handle](mirror.HandleID), nil
	}
}

// Init starts mirroring rootURL.
func (s *Service) Init(ctx context.Context, rootURL string) error {
	return s.mirror.Init(ctx, rootURL)
}

// Restore mirrors the persisted root.
func (s *Service) Restore(ctx context.Context) error {
	return s.mirror.Restore(ctx)
}

// Start runs the pool pulse and, when configured, the scheduled sweep. It is
// a no-op when already started.
func (s *Service) Start(ctx context.Context) {
	s.mux.Lock()
	defer s.mux.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.pulse.Add(1)
	go func() {
		defer s.pulse.Done()
		s.registry.Pulse(ctx, s.config.Pool.TickInterval)
	}()
	if s.config.Tree.Scheduled {
		s.mirror.Start(ctx)
	}
	s.logger.Debug("started", zap.Duration("tick", s.config.Pool.TickInterval), zap.Bool("scheduled", s.config.Tree.Scheduled))
}

// Shutdown cancels outstanding tasks, stops the sweep and the pulse, then
// closes owned resources.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.scheduler.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if err := s.mirror.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("tree: %w", err))
	}
	s.mux.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mux.Unlock()
	if cancel != nil {
		cancel()
		s.pulse.Wait()
	}
	s.events.Close()
	if err := s.closeAll(); err != nil {
		errs = append(errs, err)
	}
	if s.config.Tracing.Enabled {
		if err := tracing.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing: %w", err))
		}
	}
	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func (s *Service) closeAll() error {
	var errs []error
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func (s *Service) Config() *Config { return s.config }

func (s *Service) Logger() *zap.Logger { return s.logger }

// Metrics returns nil when metrics are disabled.
func (s *Service) Metrics() *metrics.Metrics { return s.metrics }

func (s *Service) Registry() *pool.Registry { return s.registry }

func (s *Service) Mirror() *mirror.Service { return s.mirror }

func (s *Service) Scheduler() *scheduler.Service { return s.scheduler }
