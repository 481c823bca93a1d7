package taskqueue

import (
	"context"
	"fmt"
)

// UsageWindow selects one of the precomputed model usage views.
type UsageWindow string

const (
	UsageWindow5Min  UsageWindow = "5_min"
	UsageWindow7Day  UsageWindow = "7_day"
	UsageWindow30Day UsageWindow = "30_day"
)

// ParseUsageWindow validates a user supplied window.
func ParseUsageWindow(v string) (UsageWindow, error) {
	switch w := UsageWindow(v); w {
	case UsageWindow5Min, UsageWindow7Day, UsageWindow30Day:
		return w, nil
	}
	return "", fmt.Errorf("%w: invalid usage window %q", ErrValidation, v)
}

// ModelUsage is the weight of one model within a usage window.
type ModelUsage struct {
	Model  string `json:"model"`
	Weight int64  `json:"weight"`
}

// UsageReader reads model usage statistics.
type UsageReader interface {
	ModelUsage(ctx context.Context, window UsageWindow) ([]ModelUsage, error)
}
