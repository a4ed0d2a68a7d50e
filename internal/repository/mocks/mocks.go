package mocks

import (
	"context"
	"time"

	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
	"github.com/stretchr/testify/mock"
)

// Backend is a mock for repository.Backend.
type Backend struct {
	mock.Mock
}

func (m *Backend) Append(ctx context.Context, rec *record.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *Backend) List(ctx context.Context) ([]record.Record, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]record.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Get(ctx context.Context, id string) (*record.Record, error) {
	args := m.Called(ctx, id)
	if rec, ok := args.Get(0).(*record.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Backend) Update(ctx context.Context, id string, patch record.Patch) (bool, error) {
	args := m.Called(ctx, id, patch)
	return args.Bool(0), args.Error(1)
}

func (m *Backend) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *Backend) StoreBlob(ctx context.Context, photo record.Photo) (string, error) {
	args := m.Called(ctx, photo)
	return args.String(0), args.Error(1)
}

func (m *Backend) DeleteBlob(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *Backend) Info() repository.BackendInfo {
	args := m.Called()
	if info, ok := args.Get(0).(repository.BackendInfo); ok {
		return info
	}
	return repository.BackendInfo{}
}

// RemoteBackend is a mock for repository.RemoteBackend.
type RemoteBackend struct {
	Backend
}

func (m *RemoteBackend) Probe(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Store is a mock for record.Store.
type Store struct {
	mock.Mock
}

func (m *Store) Create(ctx context.Context, rec *record.Record, photo *record.Photo) (record.CreateResult, error) {
	args := m.Called(ctx, rec, photo)
	return args.Get(0).(record.CreateResult), args.Error(1)
}

func (m *Store) List(ctx context.Context) ([]record.Record, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]record.Record); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Update(ctx context.Context, id string, patch record.Patch) (record.Outcome, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(record.Outcome), args.Error(1)
}

func (m *Store) AttachPhoto(ctx context.Context, id string, photo record.Photo, at time.Time) (record.Outcome, error) {
	args := m.Called(ctx, id, photo, at)
	return args.Get(0).(record.Outcome), args.Error(1)
}

func (m *Store) Delete(ctx context.Context, id string) (record.Outcome, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(record.Outcome), args.Error(1)
}

func (m *Store) Status() record.BackendStatus {
	args := m.Called()
	return args.Get(0).(record.BackendStatus)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
