package domain

import "time"

// Job status values.
const (
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Outputs describes the files written by a finished run.
type Outputs struct {
	CSVPath           string   `json:"csv_path,omitempty"`
	AnimationDataPath string   `json:"animation_data_path,omitempty"`
	ComputedDays      []string `json:"computed_days,omitempty"`
	Rows              int      `json:"rows"`
}

// Job is the externally visible state of a background calendar run.
type Job struct {
	ID              string    `json:"job_id"`
	Status          string    `json:"status"`
	ProgressPct     int       `json:"progress_pct"`
	ProgressMessage string    `json:"progress_message"`
	Logs            []string  `json:"logs"`
	Outputs         Outputs   `json:"outputs"`
	Error           *string   `json:"error"`
	ComputedDays    []string  `json:"computed_days"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewJob returns a queued job stamped with the package clock.
func NewJob(id string) Job {
	now := clock.Now().UTC()
	return Job{
		ID:              id,
		Status:          StatusRunning,
		ProgressPct:     0,
		ProgressMessage: "Queued",
		Logs:            []string{},
		ComputedDays:    []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Progress records a progress update and appends the message to the log.
func (j *Job) Progress(pct int, msg string) {
	j.ProgressPct = pct
	j.ProgressMessage = msg
	j.Logs = append(j.Logs, msg)
	j.UpdatedAt = clock.Now().UTC()
}

// Complete marks the job done with the run's outputs.
func (j *Job) Complete(out Outputs) {
	j.Status = StatusDone
	j.Outputs = out
	j.ComputedDays = append([]string{}, out.ComputedDays...)
	j.UpdatedAt = clock.Now().UTC()
}

// Fail marks the job failed and logs the error text.
func (j *Job) Fail(err error) {
	msg := err.Error()
	j.Status = StatusError
	j.Error = &msg
	j.Logs = append(j.Logs, msg)
	j.UpdatedAt = clock.Now().UTC()
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == StatusDone || j.Status == StatusError
}

// Clone returns a deep copy that stays valid while the job keeps changing.
func (j Job) Clone() Job {
	c := j
	c.Logs = append([]string{}, j.Logs...)
	c.ComputedDays = append([]string{}, j.ComputedDays...)
	c.Outputs.ComputedDays = append([]string(nil), j.Outputs.ComputedDays...)
	if j.Error != nil {
		msg := *j.Error
		c.Error = &msg
	}
	return c
}
