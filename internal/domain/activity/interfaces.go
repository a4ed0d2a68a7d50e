package activity

import (
	"context"
	"errors"
)

// ErrInvalidInput is returned for nil or incomplete entries.
var ErrInvalidInput = errors.New("invalid activity entry")

// Repository provides persistence operations for activity entries.
type Repository interface {
	Log(ctx context.Context, entry *ActivityEntry) error
	List(ctx context.Context, opts ListActivityOptions) ([]ActivityEntry, error)
}
