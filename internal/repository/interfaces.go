package repository

import (
	"context"

	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
)

// Backend persists records and their photo blobs
type Backend interface {
	// Append stores rec, assigning rec.ID when it is empty.
	Append(ctx context.Context, rec *record.Record) error
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (*record.Record, error)
	Update(ctx context.Context, id string, patch record.Patch) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	// StoreBlob saves photo and returns a reference a client can resolve.
	StoreBlob(ctx context.Context, photo record.Photo) (string, error)
	// DeleteBlob removes a blob by reference. Unknown references are ignored.
	DeleteBlob(ctx context.Context, ref string) error
	Info() BackendInfo
}

// RemoteBackend is a Backend that must be probed before use
type RemoteBackend interface {
	Backend
	Probe(ctx context.Context) error
}

// BackendInfo describes where a backend keeps its data
type BackendInfo struct {
	Project    string
	Bucket     string
	Collection string
	Root       string
}

// ActivityRepository manages activity journal persistence
type ActivityRepository interface {
	Log(ctx context.Context, entry *activity.ActivityEntry) error
	List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error)
}
