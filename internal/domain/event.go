package domain

import "time"

// Job event types carried in the event_type header.
const (
	EventJobDone  = "calendar.job.done"
	EventJobError = "calendar.job.error"
)

// JobEvent is published once per job when it reaches a terminal status.
type JobEvent struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	ComputedDays []string  `json:"computed_days"`
	Rows         int       `json:"rows"`
	Error        *string   `json:"error"`
	FinishedAt   time.Time `json:"finished_at"`
}

// NewJobEvent summarises a finished job.
func NewJobEvent(job Job) JobEvent {
	days := job.ComputedDays
	if days == nil {
		days = []string{}
	}
	return JobEvent{
		JobID:        job.ID,
		Status:       job.Status,
		ComputedDays: days,
		Rows:         job.Outputs.Rows,
		Error:        job.Error,
		FinishedAt:   job.UpdatedAt,
	}
}

// Type returns the event_type header value.
func (e JobEvent) Type() string {
	if e.Status == StatusError {
		return EventJobError
	}
	return EventJobDone
}
