package job

import "time"

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Terminal reports whether a status can no longer transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusError
}

// TargetType describes what a run was executed against.
type TargetType string

const (
	TargetDataSource TargetType = "datasource"
	TargetUpload     TargetType = "upload"
	TargetIndicator  TargetType = "indicator"
)

// Run records one ingestion or execution attempt. Synchronous ingestions are
// created running; deferred ones are created queued and claimed by the worker
// pool. A run transitions forward only, and FinishedAt is set exactly once at
// the terminal transition.
type Run struct {
	ID             int64      `json:"id"`
	OrganizationID int64      `json:"organizationId"`
	TargetType     TargetType `json:"targetType"`
	TargetID       int64      `json:"targetId,omitempty"`
	TargetRef      string     `json:"targetRef,omitempty"`
	Status         Status     `json:"status"`
	Logs           string     `json:"logs,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	FinishedAt     *time.Time `json:"finishedAt,omitempty"`
}
