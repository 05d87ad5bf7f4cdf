// Package mirror keeps an in-memory tree reconciled with an external folder
// hierarchy. Every public operation runs under one priority lock owned by the
// correlation id carried in its context, so nested calls share the hold of
// their top-level caller.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
	"github.com/viant/treemirror/internal/clock"
	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/model/tree"
	"github.com/viant/treemirror/runtime/correlation"
	"github.com/viant/treemirror/runtime/lock"
	"github.com/viant/treemirror/runtime/pool"
	"github.com/viant/treemirror/service/dao"
	"github.com/viant/treemirror/service/event"
	"github.com/viant/treemirror/tracing"
	"go.uber.org/zap"
)

// MaxPriority is used by Init and Stop to jump the lock queue.
const MaxPriority = math.MaxInt32

const (
	StatusIdle         = "idle"
	statusInitializing = "initializing"
	statusSweeping     = "sweeping"
	statusStopping     = "stopping"
	statusResolving    = "resolving"
	statusCreating     = "creating"
	statusReading      = "reading"
	statusWriting      = "writing"
	statusDeleting     = "deleting"
	statusRenaming     = "renaming"
	statusMoving       = "moving"
	statusExtracting   = "extracting"
	statusToggling     = "toggling"
	statusViewing      = "viewing"
)

// Service mirrors one root location.
type Service struct {
	config    *Config
	provider  Provider
	lock      *lock.Lock
	registry  *pool.Registry
	files     *pool.Pool[*tree.File]
	folders   *pool.Pool[*tree.Folder]
	handles   dao.Service[string, Handle]
	events    *event.Service
	ownEvents bool
	publisher *event.Publisher[SweepEvent]
	logger    *zap.Logger
	metrics   *metrics.Metrics

	// root is mutated only under lock
	root *tree.Folder

	mux     sync.RWMutex
	rootURL string
	status  string
	stats   Stats

	loopMux sync.Mutex
	loopCtx context.Context
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Stats summarises completed sweeps.
type Stats struct {
	Sweeps       int           `json:"sweeps" yaml:"sweeps"`
	Files        int           `json:"files" yaml:"files"`
	Folders      int           `json:"folders" yaml:"folders"`
	LastSweep    time.Time     `json:"lastSweep,omitempty" yaml:"lastSweep,omitempty"`
	LastDuration time.Duration `json:"lastDuration,omitempty" yaml:"lastDuration,omitempty"`
	LastError    string        `json:"lastError,omitempty" yaml:"lastError,omitempty"`
}

// Snapshot is a diagnostic view of the service.
type Snapshot struct {
	Status  string       `json:"status" yaml:"status"`
	RootURL string       `json:"rootURL,omitempty" yaml:"rootURL,omitempty"`
	Locked  bool         `json:"locked" yaml:"locked"`
	Owner   string       `json:"owner,omitempty" yaml:"owner,omitempty"`
	Waiters int          `json:"waiters" yaml:"waiters"`
	Stats   Stats        `json:"stats" yaml:"stats"`
	Pools   []pool.Stats `json:"pools" yaml:"pools"`
	// Events is the backlog of sweep notifications.
	Events event.QueueStats `json:"events" yaml:"events"`
}

// New creates a service; call Init or Restore before any tree operation.
func New(options ...Option) *Service {
	ret := &Service{status: StatusIdle}
	for _, opt := range options {
		opt(ret)
	}
	if ret.config == nil {
		ret.config = DefaultConfig()
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	if ret.provider == nil {
		ret.provider = afs.New()
	}
	if ret.registry == nil {
		ret.registry = pool.NewRegistry(pool.WithLogger(ret.logger), pool.WithMetrics(ret.metrics))
	}
	if ret.lock == nil {
		ret.lock = lock.New(lock.WithLogger(ret.logger), lock.WithMetrics(ret.metrics))
	}
	if ret.events == nil {
		ret.events = event.New(event.WithLogger(ret.logger))
		ret.ownEvents = true
	}
	ret.files = pool.Of[*tree.File](ret.registry, tree.NewFile)
	ret.folders = pool.Of[*tree.Folder](ret.registry, tree.NewFolder)
	ret.publisher = event.PublisherOf[SweepEvent](ret.events)
	return ret
}

// run executes fn as one logical operation. A call whose context owner does
// not hold the lock acquires it, tags the status and releases both when fn
// returns; nested calls reuse the hold.
func (s *Service) run(ctx context.Context, status string, priority int, fn func(ctx context.Context) error) (err error) {
	ctx, owner, _ := correlation.Ensure(ctx)
	acquired := false
	if s.lock.Owner() != owner {
		if err = s.lock.Lock(ctx, owner, priority); err != nil {
			return err
		}
		acquired = true
		s.setStatus(status)
	}
	ctx, span := tracing.StartSpan(ctx, "mirror."+status, "INTERNAL")
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v panicked: %v", status, r)
			s.logger.Error("tree operation panicked", zap.String("status", status), zap.Any("panic", r))
		}
		tracing.EndSpan(span, err)
		if !acquired {
			return
		}
		s.setStatus(StatusIdle)
		if unlockErr := s.lock.Unlock(owner); unlockErr != nil && err == nil {
			err = unlockErr
		}
	}()
	return fn(ctx)
}

func (s *Service) setStatus(status string) {
	s.mux.Lock()
	s.status = status
	s.mux.Unlock()
}

// Init starts mirroring rootURL, creating it when missing. The previous tree
// is released and the root handle persisted when a handle store is
// configured. A running sweep loop is paused for the switch and resumed with
// the context it was started with.
func (s *Service) Init(ctx context.Context, rootURL string) error {
	if strings.TrimSpace(rootURL) == "" {
		return fmt.Errorf("%w: empty root URL", ErrInvalidPath)
	}
	s.loopMux.Lock()
	loopCtx, scheduled := s.loopCtx, s.stopCh != nil
	s.loopMux.Unlock()
	if scheduled {
		defer s.Start(loopCtx)
	}
	if err := s.Stop(ctx); err != nil {
		return err
	}
	s.lock.Reset()
	return s.run(ctx, statusInitializing, MaxPriority, func(ctx context.Context) error {
		if s.root != nil {
			if err := s.root.ReleaseAll(); err != nil {
				s.logger.Error("failed to release previous tree", zap.Error(err))
			}
			s.root = nil
		}
		exists, err := s.provider.Exists(ctx, rootURL)
		if err != nil {
			return fmt.Errorf("failed to check %v: %w", rootURL, err)
		}
		if !exists {
			if err = s.provider.Create(ctx, rootURL, file.DefaultDirOsMode, true); err != nil {
				return fmt.Errorf("failed to create %v: %w", rootURL, err)
			}
		}
		_, name := tree.Parent(url.Path(rootURL))
		root, err := s.folders.Acquire(0, 0, tree.Entry{Name: name, URL: rootURL, Dir: true}, "")
		if err != nil {
			return err
		}
		s.root = root
		s.mux.Lock()
		s.rootURL = rootURL
		s.stats = Stats{}
		s.mux.Unlock()
		if s.handles != nil {
			if err = s.handles.Save(ctx, &Handle{ID: RootHandleID, URL: rootURL, SavedAt: clock.Now()}); err != nil {
				return fmt.Errorf("failed to save root handle: %w", err)
			}
		}
		s.logger.Info("mirroring", zap.String("url", rootURL))
		return s.Sweep(ctx)
	})
}

// Restore re-initialises from the persisted root handle.
func (s *Service) Restore(ctx context.Context) error {
	if s.handles == nil {
		return fmt.Errorf("%w: no handle store", ErrNotInitialized)
	}
	handle, err := s.handles.Load(ctx, RootHandleID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return fmt.Errorf("%w: no persisted root", ErrNotInitialized)
		}
		return err
	}
	return s.Init(ctx, handle.URL)
}

// RootURL returns the mirrored location.
func (s *Service) RootURL() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.rootURL
}

// Status returns the current status tag.
func (s *Service) Status() string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.status
}

// Snapshot returns diagnostics without taking the tree lock.
func (s *Service) Snapshot() Snapshot {
	s.mux.RLock()
	ret := Snapshot{Status: s.status, RootURL: s.rootURL, Stats: s.stats}
	s.mux.RUnlock()
	ret.Locked = s.lock.Locked()
	ret.Owner = s.lock.Owner()
	ret.Waiters = len(s.lock.Waiters())
	ret.Pools = s.registry.Stats()
	ret.Events = s.publisher.Stats()
	return ret
}

// Registry returns the pool registry nodes are allocated from.
func (s *Service) Registry() *pool.Registry { return s.registry }

// Lock returns the tree lock.
func (s *Service) Lock() *lock.Lock { return s.lock }

// Subscribe registers fn for sweep notifications. fn runs on the event
// listener goroutine, never under the tree lock.
func (s *Service) Subscribe(fn func(SweepEvent)) func() {
	return event.Subscribe[SweepEvent](s.events, func(e *event.Event[SweepEvent]) {
		fn(e.Data)
	})
}

// Close stops the scheduled sweep and the owned event service.
func (s *Service) Close(ctx context.Context) error {
	err := s.Stop(ctx)
	if s.ownEvents {
		s.events.Close()
	}
	return err
}

// ignored reports whether a file name ends with a configured suffix.
func (s *Service) ignored(name string) bool {
	for _, suffix := range s.config.IgnoreSuffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func entryOf(object storage.Object) tree.Entry {
	return tree.Entry{
		Name:    object.Name(),
		URL:     object.URL(),
		Dir:     object.IsDir(),
		Size:    object.Size(),
		ModTime: object.ModTime(),
	}
}

// entry reads the provider handle of URL.
func (s *Service) entry(ctx context.Context, URL string) (tree.Entry, error) {
	object, err := s.provider.Object(ctx, URL)
	if err != nil {
		return tree.Entry{}, fmt.Errorf("failed to stat %v: %w", URL, err)
	}
	return entryOf(object), nil
}
