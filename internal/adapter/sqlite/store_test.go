package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/windshadow-calendar/internal/domain"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "jobs.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func fixedClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC))
	domain.SetClock(fc)
	t.Cleanup(func() { domain.SetClock(clockwork.NewRealClock()) })
	return fc
}

func TestStore_SaveAndLoad(t *testing.T) {
	fixedClock(t)
	s, _ := openTestStore(t)
	ctx := context.Background()

	job := domain.NewJob("job-1")
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Load(ctx, "job-1")
	require.NoError(t, err)
	if diff := cmp.Diff(job, got); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_SaveUpserts(t *testing.T) {
	fc := fixedClock(t)
	s, _ := openTestStore(t)
	ctx := context.Background()

	job := domain.NewJob("job-2")
	require.NoError(t, s.Save(ctx, job))

	fc.Advance(time.Minute)
	job.Progress(27, "Processed 200/730 timesteps")
	job.Complete(domain.Outputs{
		CSVPath:           "/p/outputs/shadow_calendar.csv",
		AnimationDataPath: "/p/outputs/animation_data.json",
		ComputedDays:      []string{"2025-06-21"},
		Rows:              3,
	})
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Load(ctx, "job-2")
	require.NoError(t, err)
	if diff := cmp.Diff(job, got); diff != "" {
		t.Errorf("job mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, domain.StatusDone, got.Status)
}

func TestStore_FailedJobKeepsError(t *testing.T) {
	fixedClock(t)
	s, _ := openTestStore(t)
	ctx := context.Background()

	job := domain.NewJob("job-3")
	job.Fail(errors.New("disk full"))
	require.NoError(t, s.Save(ctx, job))

	got, err := s.Load(ctx, "job-3")
	require.NoError(t, err)
	require.NotNil(t, got.Error)
	assert.Equal(t, "disk full", *got.Error)
	assert.Equal(t, []string{"disk full"}, got.Logs)
}

func TestStore_LoadAllOrdered(t *testing.T) {
	fc := fixedClock(t)
	s, _ := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, s.Save(ctx, domain.NewJob(id)))
		fc.Advance(time.Second)
	}

	jobs, err := s.LoadAll(ctx)
	require.NoError(t, err)
	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestStore_LoadMissing(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStore_ReopenKeepsJobs(t *testing.T) {
	fixedClock(t)
	s, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, domain.NewJob("persisted")))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.Ping(ctx))
	jobs, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "persisted", jobs[0].ID)
}

func TestStore_Validation(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)

	s, _ := openTestStore(t)
	require.Error(t, s.Save(context.Background(), domain.Job{}))
}
