package record

import (
	"context"
	"time"

	"github.com/rpggio/partdesk/internal/domain/activity"
)

// Store is the backend-agnostic record store the service writes through.
// Implementations decide which backend serves each call.
type Store interface {
	Create(ctx context.Context, rec *Record, photo *Photo) (CreateResult, error)
	List(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, id string, patch Patch) (Outcome, error)
	AttachPhoto(ctx context.Context, id string, photo Photo, at time.Time) (Outcome, error)
	Delete(ctx context.Context, id string) (Outcome, error)
	Status() BackendStatus
}

// Outcome reports whether a mutation found its record and which backend served it.
type Outcome struct {
	Found    bool
	Backend  Backend
	PhotoRef *string
}

// ActivityRepository journals record activities.
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
}
