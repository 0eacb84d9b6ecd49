package export

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportJobLifecycle(t *testing.T) {
	job := NewExportJob("FEATURE")
	require.Equal(t, JobPending, job.State)
	require.NoError(t, job.transit(JobOpeningOutput))
	require.NoError(t, job.transit(JobStreaming))
	require.NoError(t, job.transit(JobClosing))
	require.NoError(t, job.transit(JobDone))
	require.True(t, job.State.Finished())
	require.Error(t, job.transit(JobErrored))
}

func TestExportJobInvalidTransitions(t *testing.T) {
	job := NewExportJob("FEATURE")
	require.Error(t, job.transit(JobStreaming))
	require.Error(t, job.transit(JobDone))
	require.Error(t, job.fail(errors.New("boom")))
	require.Equal(t, JobPending, job.State)
}

func TestExportJobFail(t *testing.T) {
	for _, reached := range []JobState{JobOpeningOutput, JobStreaming, JobClosing} {
		job := NewExportJob("FEATURE")
		for _, s := range []JobState{JobOpeningOutput, JobStreaming, JobClosing} {
			require.NoError(t, job.transit(s))
			if s == reached {
				break
			}
		}
		first := errors.New("first")
		require.NoError(t, job.fail(first))
		require.NoError(t, job.fail(errors.New("second")))
		require.Equal(t, JobErrored, job.State)
		require.Equal(t, first, job.Err)
	}
}

func TestExportJobSkip(t *testing.T) {
	job := NewExportJob("--")
	require.Equal(t, "", job.Table)
	require.NoError(t, job.transit(JobSkipped))
	require.True(t, job.State.Finished())
	require.Equal(t, "skipped", job.State.String())
}

func TestSummary(t *testing.T) {
	s := &Summary{Jobs: []*ExportJob{
		{State: JobDone, Rows: 3, Bytes: 30},
		{State: JobErrored, Rows: 1, Bytes: 5},
		{State: JobSkipped},
	}}
	require.Equal(t, 1, s.Count(JobDone))
	require.Equal(t, uint64(4), s.TotalRows())
	require.Equal(t, uint64(35), s.TotalBytes())
	require.True(t, s.HasErrors())
}
