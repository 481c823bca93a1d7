package taskqueue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending     Status = "pending"
	StatusRunning     Status = "running"
	StatusDone        Status = "done"
	StatusFailed      Status = "failed"
	StatusInterrupted Status = "interrupted"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusDone, StatusFailed, StatusInterrupted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusInterrupted
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a query or wire value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, v)
	}
	return s, nil
}

// TerminalStatuses returns the default status set for bulk cleanup.
func TerminalStatuses() []Status {
	return []Status{StatusDone, StatusFailed, StatusInterrupted}
}

// Type is the closed set of generation job kinds.
type Type string

const (
	TypeTxt2Img Type = "txt2img"
	TypeImg2Img Type = "img2img"
)

func (t Type) Valid() bool {
	return t == TypeTxt2Img || t == TypeImg2Img
}

// ParseType converts a query or wire value into a Type.
func ParseType(v string) (Type, error) {
	t := Type(v)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unsupported task type %q", ErrValidation, v)
	}
	return t, nil
}

// Task is the persisted unit of work.
//
// Priority orders pending tasks ascending: the lowest value is served first.
// Timestamps are kept in UTC. Queue wait and generation time are derived from
// the timestamps on demand and are never stored on the struct.
type Task struct {
	ID               string
	ExternalTaskID   *string
	ExternalCallback *string
	Name             *string
	Type             Type
	Params           json.RawMessage
	BinaryParams     []byte
	Priority         int64
	WorkerID         string
	Status           Status
	Result           *string
	Bookmarked       bool
	AckTag           *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

// QueueWaitSeconds is StartedAt - CreatedAt, or nil before the task started.
func (t *Task) QueueWaitSeconds() *float64 {
	if t.StartedAt == nil || t.CreatedAt.IsZero() {
		return nil
	}
	d := t.StartedAt.Sub(t.CreatedAt).Seconds()
	return &d
}

// GenerationTimeSeconds is FinishedAt - StartedAt, or nil until both are set.
func (t *Task) GenerationTimeSeconds() *float64 {
	if t.StartedAt == nil || t.FinishedAt == nil {
		return nil
	}
	d := t.FinishedAt.Sub(*t.StartedAt).Seconds()
	return &d
}

// Validate checks the fields every stored task must carry.
func (t *Task) Validate() error {
	switch {
	case t.ID == "":
		return fmt.Errorf("%w: id is required", ErrValidation)
	case !t.Type.Valid():
		return fmt.Errorf("%w: unsupported task type %q", ErrValidation, t.Type)
	case !validParams(t.Params):
		return fmt.Errorf("%w: params must be a JSON value", ErrValidation)
	case t.BinaryParams == nil:
		return fmt.Errorf("%w: binary params are required", ErrValidation)
	case t.WorkerID == "":
		return fmt.Errorf("%w: worker id is required", ErrValidation)
	case !t.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.ExternalTaskID = clonePtr(t.ExternalTaskID)
	c.ExternalCallback = clonePtr(t.ExternalCallback)
	c.Name = clonePtr(t.Name)
	c.Result = clonePtr(t.Result)
	c.AckTag = clonePtr(t.AckTag)
	c.StartedAt = clonePtr(t.StartedAt)
	c.FinishedAt = clonePtr(t.FinishedAt)
	c.Params = slices.Clone(t.Params)
	c.BinaryParams = slices.Clone(t.BinaryParams)
	if t.BinaryParams != nil && c.BinaryParams == nil {
		c.BinaryParams = []byte{}
	}
	return &c
}

// PriorityAt returns the default priority for a task enqueued at now,
// which yields FIFO order when no explicit priority is given.
func PriorityAt(now time.Time) int64 {
	return now.UnixMilli()
}

// ChannelName is the work-signal channel for a worker identity.
func ChannelName(workerID string) string {
	return "agentscheduler:" + workerID
}

func validParams(p json.RawMessage) bool {
	trimmed := bytes.TrimSpace(p)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false
	}
	return json.Valid(trimmed)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func utcNow() time.Time {
	return time.Now().UTC()
}
