// Package result defines the shared outcome vocabulary for all pipeline
// phases. A Result is the unit of cross-process communication: every job,
// image build, and composite check records exactly one, and the finalizer
// reads them back to decide merge-readiness.
package result

import (
	"strings"
	"time"
)

// Status is the enumerated outcome of a job, build, or check.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"

	// Non-terminal states a job runner may leave behind if it crashes or is
	// never scheduled. The finalizer treats these as "not completed".
	StatusPending Status = "pending"
	StatusRunning Status = "running"
)

// Blocking reports whether the status blocks merge-readiness. StatusError
// additionally denotes an infrastructural fault rather than a failure of the
// thing under test.
func (s Status) Blocking() bool {
	return s == StatusFailed || s == StatusError
}

// Terminal reports whether the status is a final outcome.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusError, StatusSkipped:
		return true
	}
	return false
}

// Result is the persisted outcome record for one unit of work. Results are
// written once by their owning process; the only in-place mutation permitted
// is status correction during finalization.
type Result struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`

	// Info holds structured diagnostic entries. They are joined only at the
	// presentation boundary, never concatenated in place.
	Info []string `json:"info,omitempty"`

	// Results holds ordered sub-results for composite checks.
	Results []Result `json:"results,omitempty"`

	// Files holds paths of attached evidence, e.g. a failed build log.
	Files []string `json:"files,omitempty"`
}

// Ok reports whether the result is non-blocking (success or skipped).
func (r Result) Ok() bool {
	return r.Status == StatusSuccess || r.Status == StatusSkipped
}

// Completed reports whether a terminal status has been recorded.
func (r Result) Completed() bool {
	return r.Status.Terminal()
}

// AddInfo appends a diagnostic entry.
func (r *Result) AddInfo(entry string) {
	if entry == "" {
		return
	}
	r.Info = append(r.Info, entry)
}

// InfoText renders the diagnostic entries for humans.
func (r Result) InfoText() string {
	return strings.Join(r.Info, "\n")
}

// Find returns the sub-result with the given name, or nil.
func (r *Result) Find(name string) *Result {
	for i := range r.Results {
		if r.Results[i].Name == name {
			return &r.Results[i]
		}
	}
	return nil
}

// Aggregate builds a composite Result from sub-results. The composite status
// is the worst of its children: error dominates failed, failed dominates
// success, skipped never degrades the aggregate.
func Aggregate(name string, results []Result, sw *Stopwatch) Result {
	status := StatusSuccess
	for _, sub := range results {
		switch sub.Status {
		case StatusError:
			status = StatusError
		case StatusFailed:
			if status != StatusError {
				status = StatusFailed
			}
		}
	}
	return Result{
		Name:      name,
		Status:    status,
		StartTime: sw.StartTime(),
		Duration:  sw.Elapsed(),
		Results:   results,
	}
}

// Stopwatch captures a start time and measures elapsed wall time.
type Stopwatch struct {
	start time.Time
}

func NewStopwatch() *Stopwatch {
	return &Stopwatch{start: time.Now()}
}

func (s *Stopwatch) StartTime() time.Time {
	return s.start
}

func (s *Stopwatch) Elapsed() time.Duration {
	return time.Since(s.start)
}
