// Package extract unpacks the zip archive handed over by the preceding task
// into the mirrored tree.
package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/treemirror/archive"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/model/tree"
	"github.com/viant/treemirror/service/mirror"
)

// Kind identifies extract tasks.
const Kind = "extract"

var (
	ErrNoInput = errors.New("extract: no archive input")
	ErrRequest = errors.New("extract: invalid request")
)

// Request describes one extraction.
type Request struct {
	// Dest is the tree folder receiving the entries.
	Dest string `json:"dest" yaml:"dest"`
	// Marker, when set, names a file written into Dest after extraction.
	Marker     string `json:"marker,omitempty" yaml:"marker,omitempty"`
	MarkerData []byte `json:"markerData,omitempty" yaml:"markerData,omitempty"`
	Priority   int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Mirror is the part of the tree an extraction needs.
type Mirror interface {
	Extract(ctx context.Context, dest string, entries []archive.Entry, onProgress func(done, total int)) error
	CreateFile(ctx context.Context, dir, name string, data []byte) (*mirror.FileNode, error)
}

// Task extracts its input. Acquire it with (Request, Mirror).
type Task struct {
	task.Base
	request Request
	mirror  Mirror
}

// New is the Task pool factory.
func New() *Task { return &Task{} }

func (t *Task) OnAcquire(args ...interface{}) {
	if len(args) > 0 {
		t.request, _ = args[0].(Request)
	}
	if len(args) > 1 {
		t.mirror, _ = args[1].(Mirror)
	}
	t.Init(Kind, t.request.Priority)
}

func (t *Task) OnRelease() {
	t.Reset()
	t.request = Request{}
	t.mirror = nil
}

func (t *Task) Request() Request { return t.request }

func (t *Task) Execute(ctx context.Context) error {
	if t.mirror == nil {
		return fmt.Errorf("%w: no mirror", ErrRequest)
	}
	data := t.Input()
	if len(data) == 0 {
		return ErrNoInput
	}
	entries, err := archive.Unzip(data)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.SetAbort(cancel)
	dest := tree.Normalize(t.request.Dest)
	err = t.mirror.Extract(ctx, dest, entries, func(done, total int) {
		t.SetProgress(done * 100 / total)
	})
	if err != nil {
		return err
	}
	if t.request.Marker != "" {
		if _, err = t.mirror.CreateFile(ctx, dest, t.request.Marker, t.request.MarkerData); err != nil {
			return err
		}
	}
	t.SetProgress(100)
	return nil
}

var _ task.Task = (*Task)(nil)
