// Package orchestrate drives the stop/update/restart sequence for one
// server build across every world currently running it.
package orchestrate

import (
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// State identifies the phase an orchestration run is in.
type State string

const (
	StateComputingAffected State = "computing-affected"
	StateStopping          State = "stopping"
	StateStopFailed        State = "stop-failed"
	StateDownloading       State = "downloading"
	StateDownloadFailed    State = "download-failed"
	StateRestarting        State = "restarting"
	StateDone              State = "done"
)

// Outcome records the result of one per-world operation.
type Outcome struct {
	World string
	Err   error
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Record is the ephemeral run record of one orchestration run. The
// outcome maps are concurrent because the stop and restart phases may run
// on a worker pool; everything else is written by the control goroutine
// only.
type Record struct {
	// RunID uniquely identifies this run in logs and reports.
	RunID string
	// Build is the target server build.
	Build string
	// Force marks a forced update (worlds are killed if they do not stop).
	Force bool

	// Affected is the snapshot of online worlds bound to the build,
	// computed once before any stop is attempted. It never changes for
	// the remainder of the run.
	Affected []string

	// StopResults maps world name to its stop outcome.
	StopResults cmap.ConcurrentMap[string, Outcome]
	// RestartResults maps world name to its restart outcome.
	RestartResults cmap.ConcurrentMap[string, Outcome]

	// BlockedBy names the world that refused to stop, if any. A non-empty
	// value means the update was never attempted.
	BlockedBy string
	// UpdateAttempted reports whether the download phase was reached.
	UpdateAttempted bool
	// UpdateErr is the build update failure, if any.
	UpdateErr error

	state State
}

// NewRecord creates the run record for one orchestration run.
func NewRecord(build string, force bool) *Record {
	return &Record{
		RunID:          uuid.NewString(),
		Build:          build,
		Force:          force,
		StopResults:    cmap.New[Outcome](),
		RestartResults: cmap.New[Outcome](),
		state:          StateComputingAffected,
	}
}

// State returns the phase the run is currently in.
func (r *Record) State() State { return r.state }

func (r *Record) setState(s State) { r.state = s }

// Stopped returns, in snapshot order, every affected world this run
// actually stopped. These worlds are the run's restart obligation.
func (r *Record) Stopped() []string {
	var stopped []string
	for _, name := range r.Affected {
		if out, ok := r.StopResults.Get(name); ok && out.OK() {
			stopped = append(stopped, name)
		}
	}
	return stopped
}

// StopFailures returns the stop outcomes that failed, in snapshot order.
func (r *Record) StopFailures() []Outcome {
	return r.failures(r.StopResults)
}

// RestartFailures returns the restart outcomes that failed, in snapshot
// order.
func (r *Record) RestartFailures() []Outcome {
	return r.failures(r.RestartResults)
}

func (r *Record) failures(results cmap.ConcurrentMap[string, Outcome]) []Outcome {
	var failed []Outcome
	for _, name := range r.Affected {
		if out, ok := results.Get(name); ok && !out.OK() {
			failed = append(failed, out)
		}
	}
	return failed
}

// Failed reports whether any step of the run failed. The run still
// completes its cleanup phases before this is inspected; a true value
// maps to a non-zero process exit status.
func (r *Record) Failed() bool {
	return r.BlockedBy != "" ||
		r.UpdateErr != nil ||
		len(r.StopFailures()) > 0 ||
		len(r.RestartFailures()) > 0
}
