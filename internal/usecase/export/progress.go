package export

import (
	"maps"
	"sync"
	"time"
)

// State of the export job.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Progress is a point-in-time view of a running export.
type Progress struct {
	State       State            `json:"state"`
	Collection  string           `json:"collection,omitempty"`
	StartedAt   time.Time        `json:"started_at,omitempty"`
	Jobs        int              `json:"jobs"`
	JobsDone    int              `json:"jobs_done"`
	Tuples      int64            `json:"tuples"`
	Skipped     int64            `json:"skipped"`
	ShardTuples map[string]int64 `json:"shard_tuples,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type tracker struct {
	mu sync.Mutex
	p  Progress
}

func (t *tracker) start(collection string, jobs int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p = Progress{
		State:       StateRunning,
		Collection:  collection,
		StartedAt:   time.Now(),
		Jobs:        jobs,
		ShardTuples: map[string]int64{},
	}
}

func (t *tracker) add(shard string, tuples, skipped int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.p.Tuples += tuples
	t.p.Skipped += skipped
	t.p.ShardTuples[shard] += tuples
}

func (t *tracker) jobDone() {
	t.mu.Lock()
	t.p.JobsDone++
	t.mu.Unlock()
}

func (t *tracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.p.State = StateFailed
		t.p.Error = err.Error()
		return
	}
	t.p.State = StateDone
}

func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.p
	if p.State == "" {
		p.State = StateIdle
	}
	p.ShardTuples = maps.Clone(t.p.ShardTuples)
	return p
}
