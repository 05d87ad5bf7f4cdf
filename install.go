package treemirror

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/model/tree"
	"github.com/viant/treemirror/service/action/download"
	"github.com/viant/treemirror/service/action/extract"
	"github.com/viant/treemirror/tracing"
	"go.uber.org/zap"
)

// InstallRequest describes an archive to download and extract.
type InstallRequest struct {
	URL string `json:"url" yaml:"url" validate:"required,url"`
	// Dest is the tree folder receiving the archive entries.
	Dest string `json:"dest" yaml:"dest" validate:"required"`
	// Name is the archive file name, the last URL segment by default.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	MD5  string `json:"md5,omitempty" yaml:"md5,omitempty" validate:"omitempty,hexadecimal,len=32"`
	// Marker, when set, is written into Dest after extraction.
	Marker     string `json:"marker,omitempty" yaml:"marker,omitempty"`
	MarkerData []byte `json:"markerData,omitempty" yaml:"markerData,omitempty"`
	Priority   int    `json:"priority,omitempty" yaml:"priority,omitempty"`
	// OnStatus observes both tasks of the chain.
	OnStatus func(task.Info) `json:"-" yaml:"-"`
	// OnProgress observes both tasks of the chain.
	OnProgress func(task.Info) `json:"-" yaml:"-"`
}

// Install submits a download task chained to an extract task and returns the
// download task id. The extract task receives its own id once submitted.
func (s *Service) Install(ctx context.Context, request InstallRequest) (id uint32, err error) {
	_, span := tracing.StartSpan(ctx, "install", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()
	span.WithAttributes(map[string]string{"url": request.URL, "dest": request.Dest})
	if err = validate.Struct(&request); err != nil {
		return 0, fmt.Errorf("invalid install request: %w", err)
	}
	name := request.Name
	if name == "" {
		location := request.URL
		if i := strings.IndexAny(location, "?#"); i >= 0 {
			location = location[:i]
		}
		name = path.Base(location)
	}
	fetch, err := s.downloads.Acquire(0, 0, download.Request{
		URL:      request.URL,
		Dir:      s.config.Install.ArchiveDir,
		Name:     name,
		MD5:      request.MD5,
		Priority: request.Priority,
	}, s.env)
	if err != nil {
		return 0, err
	}
	unpack, err := s.extracts.Acquire(0, 0, extract.Request{
		Dest:       tree.Normalize(request.Dest),
		Marker:     request.Marker,
		MarkerData: request.MarkerData,
		Priority:   request.Priority,
	}, s.mirror)
	if err != nil {
		_ = fetch.Release()
		return 0, err
	}
	for _, t := range []interface {
		OnStatus(func(task.Info))
		OnProgress(func(task.Info))
	}{fetch, unpack} {
		if request.OnStatus != nil {
			t.OnStatus(request.OnStatus)
		}
		if request.OnProgress != nil {
			t.OnProgress(request.OnProgress)
		}
	}
	fetch.SetNext(unpack)
	if id, err = s.scheduler.Submit(fetch); err != nil {
		if releaseErr := task.ReleaseChain(fetch); releaseErr != nil {
			s.logger.Error("failed to release install chain", zap.Error(releaseErr))
		}
		return 0, err
	}
	s.logger.Info("install submitted", zap.Uint32("id", id), zap.String("url", request.URL), zap.String("dest", request.Dest))
	return id, nil
}
