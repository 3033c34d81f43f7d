package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/windshadow-calendar/internal/calendar"
	"github.com/couchcryptid/windshadow-calendar/internal/domain"
	"github.com/couchcryptid/windshadow-calendar/internal/render"
)

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req domain.RunRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	job, err := s.jobs.Submit(r.Context(), req)
	switch {
	case err == nil:
		sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"job_id": job.ID})
	case errors.Is(err, domain.ErrTooManyTurbines):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("submit job failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r.PathValue("id"))
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, job)
}

func (s *Server) lookupJob(w http.ResponseWriter, id string) (domain.Job, bool) {
	job, err := s.jobs.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrJobNotFound.Error())
		return domain.Job{}, false
	}
	return job, true
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r.PathValue("id"))
	if !ok {
		return
	}

	var path, contentType string
	switch r.PathValue("kind") {
	case "csv":
		path, contentType = job.Outputs.CSVPath, "text/csv; charset=utf-8"
	case "animation":
		path, contentType = job.Outputs.AnimationDataPath, "application/json"
	default:
		writeError(w, http.StatusBadRequest, "kind must be csv|animation")
		return
	}

	f, info, ok := openOutput(path)
	if !ok {
		writeError(w, http.StatusNotFound, "file missing")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(path)}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func openOutput(path string) (*os.File, os.FileInfo, bool) {
	if path == "" {
		return nil, nil, false
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, false
	}
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		f.Close()
		return nil, nil, false
	}
	return f, info, true
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := s.lookupJob(w, id)
	if !ok {
		return
	}

	// An unescaped "+" in the offset arrives as a space.
	ts := strings.ReplaceAll(r.URL.Query().Get("ts"), " ", "+")
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ts must be an RFC 3339 timestamp")
		return
	}
	if job.Outputs.AnimationDataPath == "" {
		writeError(w, http.StatusNotFound, "file missing")
		return
	}

	png, err := s.frames.GetOrRender(render.FrameKey(id, ts), func() ([]byte, error) {
		anim, err := calendar.ReadAnimation(job.Outputs.AnimationDataPath)
		if err != nil {
			return nil, err
		}
		day, ok := anim.Days[at.Format(time.DateOnly)]
		if !ok || day.Timesteps[ts] == nil {
			return nil, render.ErrNoFrame
		}
		in := render.FrameInput{Timestamp: ts, Frame: day.Timesteps[ts]}
		if inputs, ok := s.jobs.Inputs(id); ok {
			in.AOI = inputs.AOI
			in.Turbines = inputs.Turbines
		}
		var buf bytes.Buffer
		if err := render.Frame(&buf, in); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	})
	switch {
	case errors.Is(err, render.ErrNoFrame):
		writeError(w, http.StatusNotFound, "timestep not found")
		return
	case err != nil:
		s.logger.Error("render frame failed", "job_id", id, "ts", ts, "error", err)
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png) //nolint:errcheck // client went away
}

type parseResponse struct {
	Turbines []domain.Turbine `json:"turbines"`
	Count    int              `json:"count"`
	Max      int              `json:"max"`
}

func (s *Server) handleParseTurbines(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var src io.Reader = r.Body
	if ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); ct == "multipart/form-data" {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "multipart field \"file\" is required")
			return
		}
		defer file.Close()
		src = file
	}

	turbines, err := domain.ParseTurbineCSV(src)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.metrics.TurbineRowsParsed.Add(float64(len(turbines)))
	sharedobs.WriteJSON(w, http.StatusOK, parseResponse{Turbines: turbines, Count: len(turbines), Max: domain.MaxTurbines})
}

func handleExportPlaceholder(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := render.Placeholder(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="animation-frame.png"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}
