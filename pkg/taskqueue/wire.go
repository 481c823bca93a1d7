package taskqueue

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

// WireTask is the public JSON representation of a task. Binary params are
// base64 text, timestamps are epoch seconds and params is embedded as a JSON
// value. Pointer fields are optional on input.
type WireTask struct {
	ID                    string          `json:"id"`
	ExternalTaskID        *string         `json:"external_task_id"`
	ExternalCallback      *string         `json:"external_callback"`
	Name                  *string         `json:"name"`
	Type                  Type            `json:"type"`
	Params                json.RawMessage `json:"params"`
	BinaryParams          *string         `json:"binary_params"`
	Priority              *int64          `json:"priority"`
	WorkerID              string          `json:"worker_id"`
	Status                Status          `json:"status"`
	Result                *string         `json:"result"`
	Bookmarked            *bool           `json:"bookmarked"`
	AckTag                *int64          `json:"ack_tag"`
	CreatedAt             *int64          `json:"created_at"`
	UpdatedAt             *int64          `json:"updated_at"`
	StartedAt             *int64          `json:"started_at"`
	FinishedAt            *int64          `json:"finished_at"`
	QueueWaitSeconds      *float64        `json:"queue_wait_seconds"`
	GenerationTimeSeconds *float64        `json:"generation_time_seconds"`
}

// ToWire converts a task into its wire representation.
func ToWire(t *Task) WireTask {
	bin := base64.StdEncoding.EncodeToString(t.BinaryParams)
	priority := t.Priority
	bookmarked := t.Bookmarked
	created := t.CreatedAt.Unix()
	updated := t.UpdatedAt.Unix()

	return WireTask{
		ID:                    t.ID,
		ExternalTaskID:        t.ExternalTaskID,
		ExternalCallback:      t.ExternalCallback,
		Name:                  t.Name,
		Type:                  t.Type,
		Params:                t.Params,
		BinaryParams:          &bin,
		Priority:              &priority,
		WorkerID:              t.WorkerID,
		Status:                t.Status,
		Result:                t.Result,
		Bookmarked:            &bookmarked,
		AckTag:                t.AckTag,
		CreatedAt:             &created,
		UpdatedAt:             &updated,
		StartedAt:             unixPtr(t.StartedAt),
		FinishedAt:            unixPtr(t.FinishedAt),
		QueueWaitSeconds:      t.QueueWaitSeconds(),
		GenerationTimeSeconds: t.GenerationTimeSeconds(),
	}
}

// FromWire converts a wire task into a Task, substituting documented defaults
// for missing optional fields: priority = now in ms, status = pending,
// bookmarked = false, created/updated = now. A missing id gets a random UUID.
// Incoming derived durations are ignored; they are recomputed from timestamps.
func FromWire(w WireTask, now time.Time) (*Task, error) {
	if !w.Type.Valid() {
		return nil, fmt.Errorf("%w: unsupported task type %q", ErrValidation, w.Type)
	}
	if !validParams(w.Params) {
		return nil, fmt.Errorf("%w: params must be a JSON value", ErrValidation)
	}
	if w.BinaryParams == nil {
		return nil, fmt.Errorf("%w: binary_params is required", ErrValidation)
	}
	bin, err := base64.StdEncoding.DecodeString(*w.BinaryParams)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("%w: binary_params is not valid base64", ErrValidation), err)
	}

	opts := []TaskOption{
		WithClock(func() time.Time { return now }),
		WithID(w.ID),
		WithWorkerID(w.WorkerID),
	}
	if w.Priority != nil {
		opts = append(opts, WithPriority(*w.Priority))
	}
	if w.Status != "" {
		if _, err := ParseStatus(string(w.Status)); err != nil {
			return nil, err
		}
		opts = append(opts, WithStatus(w.Status))
	}
	if w.Bookmarked != nil {
		opts = append(opts, WithBookmarked(*w.Bookmarked))
	}

	t, err := NewTask(w.Type, w.Params, bin, opts...)
	if err != nil {
		return nil, err
	}

	t.ExternalTaskID = w.ExternalTaskID
	t.ExternalCallback = w.ExternalCallback
	t.Name = w.Name
	t.Result = w.Result
	t.AckTag = w.AckTag
	if w.CreatedAt != nil {
		t.CreatedAt = fromUnix(*w.CreatedAt)
	}
	if w.UpdatedAt != nil {
		t.UpdatedAt = fromUnix(*w.UpdatedAt)
	}
	if w.StartedAt != nil {
		v := fromUnix(*w.StartedAt)
		t.StartedAt = &v
	}
	if w.FinishedAt != nil {
		v := fromUnix(*w.FinishedAt)
		t.FinishedAt = &v
	}

	return t, nil
}

// EncodeWire marshals a task into its JSON wire form.
func EncodeWire(t *Task) ([]byte, error) {
	return sonic.ConfigStd.Marshal(ToWire(t))
}

// DecodeWire unmarshals a JSON wire payload into a Task, applying defaults.
func DecodeWire(data []byte) (*Task, error) {
	var w WireTask
	if err := sonic.ConfigStd.Unmarshal(data, &w); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: malformed task payload", ErrValidation), err)
	}
	return FromWire(w, utcNow())
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.Unix()
	return &v
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
