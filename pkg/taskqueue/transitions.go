package taskqueue

import "time"

// transitions lists the allowed target statuses per source status.
// Terminal statuses have no entry.
var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusInterrupted},
	StatusRunning: {StatusDone, StatusFailed, StatusInterrupted},
}

// CanTransition reports whether a task in from may move to to.
// Keeping the same status is always allowed for valid statuses, so that
// operator edits such as bookmarking work on finished tasks.
func CanTransition(from, to Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when from -> to is not allowed.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

// Transition moves t to status to at the given time.
// StartedAt is set once on entering running, FinishedAt once on entering a
// terminal status, and result is recorded for done and failed.
func (t *Task) Transition(to Status, at time.Time, result *string) error {
	if err := ValidateTransition(t.Status, to); err != nil {
		return err
	}
	if t.Status == to {
		return nil
	}

	at = at.UTC()
	t.Status = to

	if to == StatusRunning && t.StartedAt == nil {
		t.StartedAt = &at
	}
	if to.Terminal() && t.FinishedAt == nil {
		t.FinishedAt = &at
	}
	if to == StatusDone || to == StatusFailed {
		t.Result = clonePtr(result)
	}
	t.UpdatedAt = at

	return nil
}
