// Package jobs runs calendar computations in the background and tracks their
// progress for the HTTP API.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/geo"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
)

// InterruptedByRestart is recorded on jobs found running when the manager starts.
const InterruptedByRestart = "interrupted by restart"

const publishTimeout = 10 * time.Second

// ErrShuttingDown is returned by Submit once Shutdown has been called.
var ErrShuttingDown = errors.New("job manager is shutting down")

// Runner executes one calendar run.
type Runner interface {
	Run(ctx context.Context, params calendar.Params, progress calendar.ProgressFunc) (domain.Outputs, error)
}

// Store persists job state across restarts.
type Store interface {
	Save(ctx context.Context, job domain.Job) error
	LoadAll(ctx context.Context) ([]domain.Job, error)
	Ping(ctx context.Context) error
}

// Publisher announces finished jobs.
type Publisher interface {
	PublishJob(ctx context.Context, job domain.Job) error
}

// AOILoader reads an area of interest from a file.
type AOILoader func(path string) (geo.MultiPolygon, error)

// Options configures a Manager. Zero values fall back to the calendar defaults;
// Store and Publisher are optional.
type Options struct {
	Store        Store
	Publisher    Publisher
	LoadAOI      AOILoader
	ProjectsRoot string
	Location     *time.Location
	Year         int
	Step         time.Duration
	Workers      int
	NewID        func() string
}

// Inputs are the resolved geometry of a job, kept for rendering frames.
type Inputs struct {
	AOI      geo.MultiPolygon
	Turbines []domain.Turbine
	EPSG     int
}

type record struct {
	job    domain.Job
	inputs *Inputs
}

// Manager owns the job table and the worker goroutines.
type Manager struct {
	runner  Runner
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics

	mu     sync.RWMutex
	jobs   map[string]*record
	order  []string
	closed bool // set by Shutdown; guards wg.Add

	ready  atomic.Bool
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Manager. Call Start before submitting work.
func New(runner Runner, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Manager {
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		jobs:    make(map[string]*record),
		base:    base,
		cancel:  cancel,
	}
}

// Start restores persisted jobs. Jobs that were still running when the
// previous process stopped are marked failed.
func (m *Manager) Start(ctx context.Context) error {
	if m.opts.Store != nil {
		stored, err := m.opts.Store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("restore jobs: %w", err)
		}
		interrupted := 0
		m.mu.Lock()
		for _, job := range stored {
			if job.Status == domain.StatusRunning {
				job.Fail(errors.New(InterruptedByRestart))
				if err := m.opts.Store.Save(ctx, job); err != nil {
					m.logger.Error("persist interrupted job failed", "job_id", job.ID, "error", err)
				}
				interrupted++
			}
			if _, ok := m.jobs[job.ID]; !ok {
				m.order = append(m.order, job.ID)
			}
			m.jobs[job.ID] = &record{job: job}
		}
		m.mu.Unlock()
		m.logger.Info("jobs restored", "count", len(stored), "interrupted", interrupted)
	}
	m.ready.Store(true)
	return nil
}

// CheckReadiness returns nil once the manager has started and its store responds.
func (m *Manager) CheckReadiness(ctx context.Context) error {
	if !m.ready.Load() {
		return errors.New("job manager has not started")
	}
	if m.opts.Store != nil {
		if err := m.opts.Store.Ping(ctx); err != nil {
			return fmt.Errorf("job store unreachable: %w", err)
		}
	}
	return nil
}

// Submit validates req, resolves its area of interest and starts a background run.
func (m *Manager) Submit(ctx context.Context, req domain.RunRequest) (domain.Job, error) {
	if err := req.Validate(); err != nil {
		return domain.Job{}, err
	}
	projectDir, err := m.confine("project_dir", req.ProjectDir)
	if err != nil {
		return domain.Job{}, err
	}
	aoi, err := m.resolveAOI(req)
	if err != nil {
		return domain.Job{}, err
	}

	job := domain.NewJob(m.opts.NewID())
	rec := &record{
		job:    job,
		inputs: &Inputs{AOI: aoi, Turbines: append([]domain.Turbine(nil), req.Turbines...), EPSG: req.ProjectEPSG},
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.Job{}, ErrShuttingDown
	}
	m.jobs[job.ID] = rec
	m.order = append(m.order, job.ID)
	m.wg.Add(1)
	m.mu.Unlock()
	m.persist(ctx, job)

	params := calendar.Params{
		ProjectDir:           projectDir,
		AOI:                  aoi,
		EPSG:                 req.ProjectEPSG,
		Turbines:             req.Turbines,
		MinSolarElevationDeg: req.MinSolarElevationDeg,
		Year:                 req.EffectiveYear(m.opts.Year),
		Location:             m.opts.Location,
		Step:                 m.opts.Step,
		Workers:              m.opts.Workers,
	}

	m.metrics.JobsSubmitted.Inc()
	m.logger.Info("job submitted",
		"job_id", job.ID,
		"project_dir", projectDir,
		"turbines", len(req.Turbines),
		"year", params.Year,
	)

	go m.work(job.ID, params)
	return job.Clone(), nil
}

func (m *Manager) work(id string, params calendar.Params) {
	defer m.wg.Done()
	m.metrics.JobsRunning.Inc()
	defer m.metrics.JobsRunning.Dec()

	progress := func(pct int, msg string) {
		job, ok := m.update(id, func(j *domain.Job) { j.Progress(pct, msg) })
		if ok {
			m.persist(m.base, job)
		}
	}

	out, err := m.runner.Run(m.base, params, progress)

	var job domain.Job
	if err != nil {
		if m.base.Err() != nil && errors.Is(err, context.Canceled) {
			err = errors.New("interrupted by shutdown")
		}
		job, _ = m.update(id, func(j *domain.Job) { j.Fail(err) })
		m.metrics.JobsFinished.WithLabelValues(domain.StatusError).Inc()
		m.logger.Error("job failed", "job_id", id, "error", err)
	} else {
		job, _ = m.update(id, func(j *domain.Job) { j.Complete(out) })
		m.metrics.JobsFinished.WithLabelValues(domain.StatusDone).Inc()
		m.logger.Info("job done", "job_id", id, "rows", out.Rows, "computed_days", len(out.ComputedDays))
	}

	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(m.base), publishTimeout)
	defer cancel()
	m.persist(finishCtx, job)
	if m.opts.Publisher != nil {
		if err := m.opts.Publisher.PublishJob(finishCtx, job); err != nil {
			m.logger.Warn("publish job event failed", "job_id", id, "error", err)
		}
	}
}

// update applies fn to the job under the lock and returns a snapshot.
func (m *Manager) update(id string, fn func(*domain.Job)) (domain.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	fn(&rec.job)
	return rec.job.Clone(), true
}

func (m *Manager) persist(ctx context.Context, job domain.Job) {
	if m.opts.Store == nil {
		return
	}
	if err := m.opts.Store.Save(ctx, job); err != nil {
		m.logger.Warn("persist job failed", "job_id", job.ID, "error", err)
	}
}

// Get returns a snapshot of one job.
func (m *Manager) Get(id string) (domain.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return rec.job.Clone(), nil
}

// Inputs returns the geometry a job was submitted with. Jobs restored from
// the store have none.
func (m *Manager) Inputs(id string) (Inputs, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.jobs[id]
	if !ok || rec.inputs == nil {
		return Inputs{}, false
	}
	return *rec.inputs, true
}

// List returns all jobs in creation order.
func (m *Manager) List() []domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].job.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Shutdown cancels running jobs and waits for their workers to record the outcome.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

func (m *Manager) resolveAOI(req domain.RunRequest) (geo.MultiPolygon, error) {
	if req.AOIPath != "" {
		path, err := m.confine("aoi_path", req.AOIPath)
		if err != nil {
			return nil, err
		}
		if m.opts.LoadAOI == nil {
			return nil, fmt.Errorf("%w: aoi_path is not supported", domain.ErrInvalidRequest)
		}
		aoi, err := m.opts.LoadAOI(path)
		if err != nil {
			return nil, fmt.Errorf("%w: aoi_path: %v", domain.ErrInvalidRequest, err)
		}
		return aoi, nil
	}
	ring := make(geo.Ring, len(req.AOI))
	for i, v := range req.AOI {
		ring[i] = geo.Point{X: v[0], Y: v[1]}
	}
	return geo.MultiPolygon{{Outer: ring}}, nil
}

// confine resolves path against ProjectsRoot and rejects anything outside it.
// Without a root the path is returned unchanged.
func (m *Manager) confine(field, path string) (string, error) {
	root := m.opts.ProjectsRoot
	if root == "" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s must be inside the projects root", domain.ErrInvalidRequest, field)
	}
	return path, nil
}
