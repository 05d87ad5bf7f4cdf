// Package download fetches a remote file into the mirrored tree and hands
// its content to the successor task.
package download

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/viant/treemirror/metrics"
	"github.com/viant/treemirror/model/task"
	"github.com/viant/treemirror/model/tree"
	"github.com/viant/treemirror/service/mirror"
)

// Kind identifies download tasks.
const Kind = "download"

const chunkSize = 32 * 1024

var (
	// ErrChecksum reports an MD5 mismatch; nothing is written.
	ErrChecksum = errors.New("download: checksum mismatch")
	ErrStatus   = errors.New("download: unexpected status")
	ErrRequest  = errors.New("download: invalid request")
)

// Request describes one download.
type Request struct {
	URL string `json:"url" yaml:"url"`
	// Dir is the tree folder receiving the file.
	Dir string `json:"dir" yaml:"dir"`
	// Name defaults to the last URL path segment.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	// MD5 is the optional hex digest of the content.
	MD5      string `json:"md5,omitempty" yaml:"md5,omitempty"`
	Priority int    `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Mirror is the part of the tree a download needs.
type Mirror interface {
	Content(ctx context.Context, p string) ([]byte, error)
	CreateFile(ctx context.Context, dir, name string, data []byte) (*mirror.FileNode, error)
}

// Env carries collaborators shared by download tasks.
type Env struct {
	Mirror  Mirror
	Client  *http.Client
	Metrics *metrics.Metrics
}

// Task downloads Request.URL. Acquire it with (Request, *Env).
type Task struct {
	task.Base
	request Request
	env     *Env
}

// New is the Task pool factory.
func New() *Task { return &Task{} }

func (t *Task) OnAcquire(args ...interface{}) {
	if len(args) > 0 {
		t.request, _ = args[0].(Request)
	}
	if len(args) > 1 {
		t.env, _ = args[1].(*Env)
	}
	t.Init(Kind, t.request.Priority)
}

func (t *Task) OnRelease() {
	t.Reset()
	t.request = Request{}
	t.env = nil
}

// Request returns the task request.
func (t *Task) Request() Request { return t.request }

// Target returns the tree path the file is written to.
func (t *Task) Target() string {
	return tree.Join(t.request.Dir, t.name())
}

func (t *Task) name() string {
	if t.request.Name != "" {
		return t.request.Name
	}
	location := t.request.URL
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return path.Base(location)
}

// Execute reuses an existing target, otherwise fetches, verifies and writes
// it. The content becomes the successor input either way.
func (t *Task) Execute(ctx context.Context) error {
	if t.env == nil || t.env.Mirror == nil {
		return fmt.Errorf("%w: no mirror", ErrRequest)
	}
	if t.request.URL == "" {
		return fmt.Errorf("%w: empty URL", ErrRequest)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.SetAbort(cancel)

	target := t.Target()
	data, err := t.env.Mirror.Content(ctx, target)
	switch {
	case err == nil:
		t.handOver(data)
		t.SetProgress(100)
		return nil
	case !errors.Is(err, mirror.ErrNotFound):
		return err
	}
	if data, err = t.fetch(ctx); err != nil {
		return err
	}
	if err = t.verify(data); err != nil {
		return err
	}
	dir, name := tree.Parent(target)
	if _, err = t.env.Mirror.CreateFile(ctx, dir, name, data); err != nil {
		return err
	}
	t.handOver(data)
	t.SetProgress(100)
	return nil
}

func (t *Task) fetch(ctx context.Context) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, t.request.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	client := t.env.Client
	if client == nil {
		client = http.DefaultClient
	}
	response, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %v: %w", t.request.URL, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %v %v", ErrStatus, t.request.URL, response.Status)
	}
	total := response.ContentLength
	var buffer bytes.Buffer
	if total > 0 {
		buffer.Grow(int(total))
	}
	chunk := make([]byte, chunkSize)
	var read int64
	for {
		n, err := response.Body.Read(chunk)
		if n > 0 {
			buffer.Write(chunk[:n])
			read += int64(n)
			t.env.Metrics.BytesFetched(n)
			if total > 0 {
				// keep 100 for after the write
				t.SetProgress(int(read * 99 / total))
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %v: %w", t.request.URL, err)
		}
	}
	return buffer.Bytes(), nil
}

func (t *Task) verify(data []byte) error {
	expected := strings.TrimSpace(t.request.MD5)
	if expected == "" {
		return nil
	}
	sum := md5.Sum(data)
	actual := hex.EncodeToString(sum[:])
	if !strings.EqualFold(expected, actual) {
		return fmt.Errorf("%w: %v expected %v, got %v", ErrChecksum, t.request.URL, expected, actual)
	}
	return nil
}

func (t *Task) handOver(data []byte) {
	if next := t.Next(); next != nil {
		next.SetInput(data)
	}
}

var _ task.Task = (*Task)(nil)
