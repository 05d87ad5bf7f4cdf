package progress

import (
	"sync"
	"time"
)

// Delta is a signed counter change.
type Delta struct {
	Total     int
	Completed int
	Cancelled int
	Failed    int
	Running   int
	Pending   int
}

// Progress keeps aggregated task counters. It is safe for concurrent use.
type Progress struct {
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`

	TotalTasks     int `json:"total" yaml:"total"`
	CompletedTasks int `json:"completed" yaml:"completed"`
	CancelledTasks int `json:"cancelled" yaml:"cancelled"`
	FailedTasks    int `json:"failed" yaml:"failed"`
	RunningTasks   int `json:"running" yaml:"running"`
	PendingTasks   int `json:"pending" yaml:"pending"`

	mux      sync.Mutex
	onChange func(Progress)
}

// New creates a tracker.
func New(name string, onChange func(Progress)) *Progress {
	return &Progress{Name: name, StartedAt: time.Now(), onChange: onChange}
}

// Update applies d. The onChange callback receives a copy and runs outside
// the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.TotalTasks += d.Total
	p.CompletedTasks += d.Completed
	p.CancelledTasks += d.Cancelled
	p.FailedTasks += d.Failed
	p.RunningTasks += d.Running
	p.PendingTasks += d.Pending
	snapshot := p.copy()
	cb := p.onChange
	p.mux.Unlock()
	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.mux.Lock()
	defer p.mux.Unlock()
	return p.copy()
}

// OnChange replaces the change callback; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.mux.Lock()
	p.onChange = cb
	p.mux.Unlock()
}

// Done reports the share of finished tasks in percent.
func (p Progress) Done() int {
	if p.TotalTasks == 0 {
		return 100
	}
	finished := p.CompletedTasks + p.CancelledTasks + p.FailedTasks
	return finished * 100 / p.TotalTasks
}

func (p *Progress) copy() Progress {
	return Progress{
		Name:           p.Name,
		StartedAt:      p.StartedAt,
		TotalTasks:     p.TotalTasks,
		CompletedTasks: p.CompletedTasks,
		CancelledTasks: p.CancelledTasks,
		FailedTasks:    p.FailedTasks,
		RunningTasks:   p.RunningTasks,
		PendingTasks:   p.PendingTasks,
	}
}
