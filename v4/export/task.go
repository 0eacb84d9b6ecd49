package export

import (
	"fmt"
	"time"
)

// JobState is the lifecycle position of an export job.
type JobState int

const (
	JobPending JobState = iota
	JobOpeningOutput
	JobStreaming
	JobClosing
	JobDone
	JobErrored
	// JobSkipped is the outcome of names that sanitize to nothing.
	JobSkipped
)

var jobStateNames = [...]string{
	JobPending:       "pending",
	JobOpeningOutput: "opening_output",
	JobStreaming:     "streaming",
	JobClosing:       "closing",
	JobDone:          "done",
	JobErrored:       "errored",
	JobSkipped:       "skipped",
}

func (s JobState) String() string {
	if s < 0 || int(s) >= len(jobStateNames) {
		return fmt.Sprintf("JobState(%d)", int(s))
	}
	return jobStateNames[s]
}

// Finished reports whether the state is an outcome.
func (s JobState) Finished() bool {
	return s == JobDone || s == JobErrored || s == JobSkipped
}

var jobTransitions = map[JobState][]JobState{
	JobPending:       {JobOpeningOutput, JobSkipped},
	JobOpeningOutput: {JobStreaming, JobErrored},
	JobStreaming:     {JobClosing, JobErrored},
	JobClosing:       {JobDone, JobErrored},
}

// ExportJob tracks the export of one table or query subject into one file.
type ExportJob struct {
	// Name is the name as given, Table the sanitized one.
	Name     string
	Table    string
	FilePath string
	State    JobState
	Rows     uint64
	Bytes    uint64
	Err      error
	Start    time.Time
	Elapsed  time.Duration
}

// NewExportJob returns a pending job for name.
func NewExportJob(name string) *ExportJob {
	return &ExportJob{
		Name:  name,
		Table: SanitizeTableName(name),
		State: JobPending,
	}
}

func (j *ExportJob) transit(to JobState) error {
	for _, s := range jobTransitions[j.State] {
		if s == to {
			if j.State == JobPending {
				j.Start = time.Now()
			}
			j.State = to
			if to.Finished() && !j.Start.IsZero() {
				j.Elapsed = time.Since(j.Start)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid job transition of %s from %s to %s", j.Name, j.State, to)
}

// fail records err and moves the job to JobErrored. Only jobs past
// JobPending can fail.
func (j *ExportJob) fail(err error) error {
	if j.Err == nil {
		j.Err = err
	}
	if j.State == JobErrored {
		return nil
	}
	return j.transit(JobErrored)
}

// Summary collects the outcomes of a run, one job per input name.
type Summary struct {
	RunID   string
	Jobs    []*ExportJob
	Elapsed time.Duration
}

// Count returns the number of jobs in state s.
func (s *Summary) Count(state JobState) int {
	n := 0
	for _, j := range s.Jobs {
		if j.State == state {
			n++
		}
	}
	return n
}

// TotalRows returns the rows written by every finished job.
func (s *Summary) TotalRows() uint64 {
	var n uint64
	for _, j := range s.Jobs {
		n += j.Rows
	}
	return n
}

// TotalBytes returns the bytes written by every job.
func (s *Summary) TotalBytes() uint64 {
	var n uint64
	for _, j := range s.Jobs {
		n += j.Bytes
	}
	return n
}

// HasErrors reports whether any job errored.
func (s *Summary) HasErrors() bool {
	return s.Count(JobErrored) > 0
}
