package mirror

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/viant/afs/url"
	"github.com/viant/treemirror/internal/clock"
	"github.com/viant/treemirror/internal/idgen"
	"github.com/viant/treemirror/model/tree"
	"github.com/viant/treemirror/runtime/correlation"
	"github.com/viant/treemirror/service/event"
	"go.uber.org/zap"
)

// SweepEvent is published after every sweep.
type SweepEvent struct {
	RootURL  string        `json:"rootURL"`
	Sweep    int           `json:"sweep"`
	Files    int           `json:"files"`
	Folders  int           `json:"folders"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Sweep reconciles the whole tree with the provider.
func (s *Service) Sweep(ctx context.Context) error {
	return s.run(ctx, statusSweeping, 0, func(ctx context.Context) error {
		if s.root == nil {
			return ErrNotInitialized
		}
		started := clock.Now()
		err := s.sweep(ctx, s.root)
		elapsed := clock.Now().Sub(started)
		files, folders := s.root.Count()
		s.metrics.ObserveSweep(elapsed, err)
		s.metrics.ObserveTree(folders, files)

		s.mux.Lock()
		s.stats.Sweeps++
		s.stats.Files = files
		s.stats.Folders = folders
		s.stats.LastSweep = started
		s.stats.LastDuration = elapsed
		s.stats.LastError = ""
		if err != nil {
			s.stats.LastError = err.Error()
		}
		done := SweepEvent{RootURL: s.rootURL, Sweep: s.stats.Sweeps, Files: files, Folders: folders, Duration: elapsed, Error: s.stats.LastError}
		s.mux.Unlock()

		owner, _ := correlation.FromContext(ctx)
		if pubErr := s.publisher.Publish(ctx, event.NewEvent(&event.Context{ID: idgen.New(), EventType: "sweep", Source: done.RootURL, Owner: owner}, done)); pubErr != nil {
			s.logger.Warn("failed to publish sweep event", zap.Error(pubErr))
		}
		return err
	})
}

// sweep reconciles folder and its subtree. Existing nodes are refreshed in
// place, new entries allocated, and children no longer listed released. An
// error aborts this subtree before its prune, leaving siblings as committed.
func (s *Service) sweep(ctx context.Context, folder *tree.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	objects, err := s.provider.List(ctx, folder.URL)
	if err != nil {
		return fmt.Errorf("failed to list %v: %w", folder.Path, err)
	}
	self := strings.TrimRight(url.Path(folder.URL), "/")
	seenFiles := make(map[string]bool, len(objects))
	seenFolders := make(map[string]bool)
	var subFolders []*tree.Folder
	for _, object := range objects {
		if object.IsDir() && strings.TrimRight(url.Path(object.URL()), "/") == self {
			continue
		}
		name := object.Name()
		if name == "" || (!object.IsDir() && s.ignored(name)) {
			continue
		}
		entry := entryOf(object)
		if entry.Dir {
			seenFolders[name] = true
			child := folder.Folder(name)
			if child == nil {
				if child, err = s.folders.Acquire(0, 0, entry, folder.Path); err != nil {
					return err
				}
				folder.AddFolder(child)
			} else {
				child.Update(entry, folder.Path)
			}
			subFolders = append(subFolders, child)
			continue
		}
		seenFiles[name] = true
		if child := folder.File(name); child != nil {
			child.Update(entry, folder.Path)
			continue
		}
		child, err := s.files.Acquire(0, 0, entry, folder.Path)
		if err != nil {
			return err
		}
		folder.AddFile(child)
	}
	for _, child := range subFolders {
		if err = s.sweep(ctx, child); err != nil {
			return err
		}
	}
	goneFiles, goneFolders := folder.Prune(seenFiles, seenFolders)
	for _, gone := range goneFiles {
		if err = gone.Release(); err != nil {
			s.logger.Error("failed to release file node", zap.String("path", gone.Path), zap.Error(err))
		}
	}
	for _, gone := range goneFolders {
		if err = gone.ReleaseAll(); err != nil {
			s.logger.Error("failed to release folder node", zap.String("path", gone.Path), zap.Error(err))
		}
	}
	folder.Classify(s.config.Marker)
	return nil
}

// Start runs the scheduled sweep until Stop or ctx is done. A tick finding
// the lock held is skipped; drift is picked up by the next tick.
func (s *Service) Start(ctx context.Context) {
	s.loopMux.Lock()
	defer s.loopMux.Unlock()
	if s.stopCh != nil {
		return
	}
	s.loopCtx = ctx
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.watch(ctx, s.stopCh)
}

// Stop waits for the in-flight operation to release the lock, then ends the
// scheduled sweep.
func (s *Service) Stop(ctx context.Context) error {
	s.loopMux.Lock()
	stopCh := s.stopCh
	s.stopCh = nil
	s.loopMux.Unlock()
	if stopCh == nil {
		return nil
	}
	closed := false
	err := s.run(ctx, statusStopping, MaxPriority, func(ctx context.Context) error {
		close(stopCh)
		closed = true
		s.wg.Wait()
		return nil
	})
	if !closed {
		close(stopCh)
	}
	return err
}

// Scheduled reports whether the sweep loop is running.
func (s *Service) Scheduled() bool {
	s.loopMux.Lock()
	defer s.loopMux.Unlock()
	return s.stopCh != nil
}

func (s *Service) watch(ctx context.Context, stopCh chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.scheduledSweep(ctx)
		}
	}
}

func (s *Service) scheduledSweep(ctx context.Context) {
	owner := idgen.New()
	if !s.lock.TryLock(owner) {
		s.metrics.SweepSkipped()
		s.logger.Debug("scheduled sweep skipped, tree busy", zap.String("holder", s.lock.Owner()))
		return
	}
	s.setStatus(statusSweeping)
	defer func() {
		s.setStatus(StatusIdle)
		if err := s.lock.Unlock(owner); err != nil {
			s.logger.Error("failed to unlock after scheduled sweep", zap.Error(err))
		}
	}()
	err := s.Sweep(correlation.WithOwner(ctx, owner))
	switch {
	case err == nil:
	case errors.Is(err, ErrNotInitialized):
		s.logger.Debug("scheduled sweep before init")
	default:
		s.logger.Warn("scheduled sweep failed", zap.Error(err))
	}
}
