package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/windshadow-calendar/internal/adapter/http"
	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/geo"
	"github.com/couchcryptid/windshadow-calendar/internal/jobs"
	"github.com/couchcryptid/windshadow-calendar/internal/observability"
	"github.com/couchcryptid/windshadow-calendar/internal/render"
)

// --- mocks ---

type mockJobs struct {
	readyErr  error
	submitErr error
	submitted []domain.RunRequest
	jobs      map[string]domain.Job
	inputs    map[string]jobs.Inputs
}

func newMockJobs() *mockJobs {
	return &mockJobs{jobs: map[string]domain.Job{}, inputs: map[string]jobs.Inputs{}}
}

func (m *mockJobs) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockJobs) Submit(_ context.Context, req domain.RunRequest) (domain.Job, error) {
	if err := req.Validate(); err != nil {
		return domain.Job{}, err
	}
	if m.submitErr != nil {
		return domain.Job{}, m.submitErr
	}
	m.submitted = append(m.submitted, req)
	job := domain.NewJob(fmt.Sprintf("job-%d", len(m.submitted)))
	m.jobs[job.ID] = job
	return job, nil
}

func (m *mockJobs) Get(id string) (domain.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrJobNotFound
	}
	return job, nil
}

func (m *mockJobs) List() []domain.Job {
	out := make([]domain.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out
}

func (m *mockJobs) Inputs(id string) (jobs.Inputs, bool) {
	in, ok := m.inputs[id]
	return in, ok
}

func newTestServer(svc *mockJobs) (*httpadapter.Server, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	cache := render.NewFrameCache(8, metrics)
	return httpadapter.NewServer(":0", svc, cache, metrics, slog.Default()), metrics
}

func do(t *testing.T, srv http.Handler, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["detail"]
}

func runBody(turbines int) []byte {
	req := map[string]any{
		"project_dir":             "/p",
		"aoi":                     [][2]float64{{0, 0}, {10, 0}, {10, 10}},
		"project_epsg":            32633,
		"min_solar_elevation_deg": 3,
	}
	ts := make([]map[string]any, turbines)
	for i := range ts {
		ts[i] = map[string]any{"id": fmt.Sprintf("T%d", i+1), "x": 1, "y": 2, "hub_height_m": 100, "rotor_diameter_m": 120}
	}
	req["turbines"] = ts
	b, _ := json.Marshal(req)
	return b
}

func runBodyDuplicate() []byte {
	var req map[string]any
	_ = json.Unmarshal(runBody(2), &req)
	req["turbines"].([]any)[1].(map[string]any)["id"] = "T1"
	b, _ := json.Marshal(req)
	return b
}

// finishedJob writes real output files for a done job and registers it.
func finishedJob(t *testing.T, svc *mockJobs) (domain.Job, string) {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "shadow_calendar.csv")
	animPath := filepath.Join(dir, "animation_data.json")

	require.NoError(t, calendar.WriteHitsCSV(csvPath, []domain.Hit{{
		TurbineID: "T1", TimestampLocal: "2025-06-21T13:00:00+02:00", Date: "2025-06-21", Time: "13:00",
		SunAzimuthDeg: 178.66, SunElevationDeg: 71.44,
	}}))
	const ts = "2025-06-21T13:00:00+02:00"
	require.NoError(t, calendar.WriteAnimation(animPath, domain.AnimationData{
		Days: map[string]*domain.AnimationDay{
			"2025-06-21": {HasHit: true, Timesteps: map[string]*domain.Frame{
				ts: {
					Sun: domain.SunPosition{AzimuthDeg: 178.66, ElevationDeg: 71.44},
					Turbines: []domain.ShadowFrame{{
						TurbineID: "T1", Center: [2]float64{500201, 4649837}, MajorM: 148, MinorM: 140,
						RotationDeg: 268.66, IntersectsAOI: true,
					}},
				},
			}},
		},
		Meta: domain.AnimationMeta{Year: 2025, ProjectEPSG: 32633},
	}))

	job := domain.NewJob("done-1")
	job.Complete(domain.Outputs{CSVPath: csvPath, AnimationDataPath: animPath, ComputedDays: []string{"2025-06-21"}, Rows: 1})
	svc.jobs[job.ID] = job
	svc.inputs[job.ID] = jobs.Inputs{
		AOI:      geo.MultiPolygon{geo.NewPolygon(geo.Point{X: 500000, Y: 4649700}, geo.Point{X: 501100, Y: 4649700}, geo.Point{X: 501100, Y: 4650400})},
		Turbines: []domain.Turbine{{ID: "T1", X: 500200, Y: 4649800, HubHeightM: 110, RotorDiameterM: 140}},
		EPSG:     32633,
	}
	return job, ts
}

// --- tests ---

func TestHealthReturnsTime(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())
	rec := do(t, srv, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())
	rec := do(t, srv, http.MethodGet, "/healthz", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	svc := newMockJobs()
	svc.readyErr = fmt.Errorf("job store unreachable")
	srv, _ := newTestServer(svc)
	rec := do(t, srv, http.MethodGet, "/readyz", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "job store unreachable", body["error"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())
	rec := do(t, srv, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())
	rec := do(t, srv, http.MethodGet, "/metrics", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRun_ReturnsJobID(t *testing.T) {
	svc := newMockJobs()
	srv, _ := newTestServer(svc)
	rec := do(t, srv, http.MethodPost, "/calendar/run", runBody(2), "application/json")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "job-1", body["job_id"])
	require.Len(t, svc.submitted, 1)
	assert.InDelta(t, 3, svc.submitted[0].MinSolarElevationDeg, 0)
}

func TestRun_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   []byte
		status int
		detail string
	}{
		{"too many turbines", runBody(21), http.StatusBadRequest, "max 20 turbines"},
		{"duplicate turbine ids", runBodyDuplicate(), http.StatusBadRequest, "duplicate turbine id"},
		{"malformed json", []byte(`{"project_dir":`), http.StatusBadRequest, "invalid JSON body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(newMockJobs())
			rec := do(t, srv, http.MethodPost, "/calendar/run", tt.body, "application/json")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, detail(t, rec), tt.detail)
		})
	}
}

func TestRun_AcceptsEmptyTurbineList(t *testing.T) {
	svc := newMockJobs()
	srv, _ := newTestServer(svc)
	rec := do(t, srv, http.MethodPost, "/calendar/run", runBody(0), "application/json")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, svc.submitted, 1)
	assert.Empty(t, svc.submitted[0].Turbines)
}

func TestRun_ShuttingDown(t *testing.T) {
	svc := newMockJobs()
	svc.submitErr = jobs.ErrShuttingDown
	srv, _ := newTestServer(svc)
	rec := do(t, srv, http.MethodPost, "/calendar/run", runBody(1), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobs_GetAndList(t *testing.T) {
	svc := newMockJobs()
	job, _ := finishedJob(t, svc)
	srv, _ := newTestServer(svc)

	rec := do(t, srv, http.MethodGet, "/calendar/jobs/"+job.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "done", got["status"])
	assert.Equal(t, []any{"2025-06-21"}, got["computed_days"])
	assert.Nil(t, got["error"])

	rec = do(t, srv, http.MethodGet, "/calendar/jobs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(t, srv, http.MethodGet, "/calendar/jobs/unknown", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "job not found", detail(t, rec))
}

func TestFiles(t *testing.T) {
	svc := newMockJobs()
	job, _ := finishedJob(t, svc)
	running := domain.NewJob("running-1")
	svc.jobs[running.ID] = running
	srv, _ := newTestServer(svc)

	rec := do(t, srv, http.MethodGet, "/files/"+job.ID+"/csv", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "turbine_id,timestamp_local"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "shadow_calendar.csv")

	rec = do(t, srv, http.MethodGet, "/files/"+job.ID+"/animation", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	tests := []struct {
		target string
		status int
		detail string
	}{
		{"/files/" + job.ID + "/zip", http.StatusBadRequest, "kind must be csv|animation"},
		{"/files/unknown/csv", http.StatusNotFound, "job not found"},
		{"/files/" + running.ID + "/csv", http.StatusNotFound, "file missing"},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, tt.target, nil, "")
		assert.Equal(t, tt.status, rec.Code, tt.target)
		assert.Equal(t, tt.detail, detail(t, rec), tt.target)
	}
}

func TestFiles_DeletedOutput(t *testing.T) {
	svc := newMockJobs()
	job, _ := finishedJob(t, svc)
	require.NoError(t, os.Remove(job.Outputs.CSVPath))
	srv, _ := newTestServer(svc)

	rec := do(t, srv, http.MethodGet, "/files/"+job.ID+"/csv", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file missing", detail(t, rec))
}

func TestFrame_RendersAndCaches(t *testing.T) {
	svc := newMockJobs()
	job, ts := finishedJob(t, svc)
	srv, metrics := newTestServer(svc)

	target := "/files/" + job.ID + "/frame?ts=" + url.QueryEscape(ts)
	rec := do(t, srv, http.MethodGet, target, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	// Unescaped "+" decodes to a space.
	rec = do(t, srv, http.MethodGet, "/files/"+job.ID+"/frame?ts="+ts, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FrameCache.WithLabelValues("miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FrameCache.WithLabelValues("hit")), 0)
}

func TestFrame_Errors(t *testing.T) {
	svc := newMockJobs()
	job, _ := finishedJob(t, svc)
	srv, _ := newTestServer(svc)

	rec := do(t, srv, http.MethodGet, "/files/"+job.ID+"/frame?ts="+url.QueryEscape("2025-06-21T13:15:00+02:00"), nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "timestep not found", detail(t, rec))

	rec = do(t, srv, http.MethodGet, "/files/"+job.ID+"/frame?ts=noon", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/files/unknown/frame?ts=noon", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseTurbines_RawBody(t *testing.T) {
	srv, metrics := newTestServer(newMockJobs())
	body := []byte("\ufeffid;x;y;hub_height_m;rotor_diameter_m\r\nT1;500200;4649800;110;140\r\nT2;abc;;100\r\n")
	rec := do(t, srv, http.MethodPost, "/turbines/parse", body, "text/csv")

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Turbines []map[string]any `json:"turbines"`
		Count    int              `json:"count"`
		Max      int              `json:"max"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, 20, got.Max)
	assert.Equal(t, "T2", got.Turbines[1]["id"])
	assert.Nil(t, got.Turbines[1]["x"])
	assert.InDelta(t, 0, got.Turbines[1]["y"], 0)
	assert.Nil(t, got.Turbines[1]["rotor_diameter_m"])
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.TurbineRowsParsed), 0)
}

func TestParseTurbines_Multipart(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "turbines.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(domain.TurbineCSVTemplate))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := do(t, srv, http.MethodPost, "/turbines/parse", buf.Bytes(), mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = do(t, srv, http.MethodPost, "/turbines/parse", []byte("--x--\r\n"), "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportPlaceholder(t *testing.T) {
	srv, _ := newTestServer(newMockJobs())
	rec := do(t, srv, http.MethodGet, "/export/frame.png", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="animation-frame.png"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}
