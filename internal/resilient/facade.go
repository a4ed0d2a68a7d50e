// Package resilient serves record calls from the remote backend when it is
// reachable and from the local backend otherwise.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
)

// State is the facade lifecycle state.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateProbing       State = "PROBING"
	StateRemoteActive  State = "REMOTE_ACTIVE"
	StateLocalActive   State = "LOCAL_ACTIVE"
)

// Facade implements record.Store on top of a remote and a local backend.
//
// The remote backend is probed once per process. A failed probe selects the
// local backend for good. While the remote backend is active, any call it
// reports as unavailable is retried on the local backend without changing
// the state.
type Facade struct {
	remote    repository.RemoteBackend
	local     repository.Backend
	configErr error
	logger    *slog.Logger

	once       sync.Once
	mu         sync.RWMutex
	state      State
	lastServed record.Backend
}

var _ record.Store = (*Facade)(nil)

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithConfigError records why the remote backend could not be built.
func WithConfigError(err error) Option {
	return func(f *Facade) { f.configErr = err }
}

// New creates a facade. remote may be nil when no remote backend is configured.
func New(remote repository.RemoteBackend, local repository.Backend, opts ...Option) *Facade {
	f := &Facade{
		remote: remote,
		local:  local,
		logger: slog.Default(),
		state:  StateUninitialized,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Init probes the remote backend and selects the active one. Only the
// first call probes. Later calls, and every other method, reuse the result.
func (f *Facade) Init(ctx context.Context) {
	f.once.Do(func() {
		f.setState(StateProbing)

		if f.remote == nil {
			if f.configErr != nil {
				f.logger.Error("remote backend unusable, using local store", "error", f.configErr)
			} else {
				f.logger.Warn("remote backend not configured, using local store")
			}
			f.setState(StateLocalActive)
			remoteActive.Set(0)
			return
		}

		start := time.Now()
		if err := f.remote.Probe(ctx); err != nil {
			f.logger.Warn("remote backend probe failed, using local store", "error", err, "duration", time.Since(start))
			f.setState(StateLocalActive)
			remoteActive.Set(0)
			return
		}

		info := f.remote.Info()
		f.logger.Info("remote backend active", "project", info.Project, "bucket", info.Bucket, "collection", info.Collection, "duration", time.Since(start))
		f.setState(StateRemoteActive)
		remoteActive.Set(1)
	})
}

// State returns the current lifecycle state.
func (f *Facade) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Create stores rec, and photo when given, on one backend.
// The blob and the record always land on the same backend. A record write
// that fails after the blob was stored leaves the blob behind.
func (f *Facade) Create(ctx context.Context, rec *record.Record, photo *record.Photo) (record.CreateResult, error) {
	res, backend, err := call(ctx, f, "create", func(b repository.Backend) (record.CreateResult, error) {
		attempt := *rec
		attempt.HasPhoto = false
		attempt.PhotoRef = nil

		if photo != nil {
			ref, err := b.StoreBlob(ctx, *photo)
			if err != nil {
				return record.CreateResult{}, err
			}
			attempt.HasPhoto = true
			attempt.PhotoRef = &ref
		}
		if err := b.Append(ctx, &attempt); err != nil {
			return record.CreateResult{}, err
		}
		*rec = attempt
		return record.CreateResult{ID: attempt.ID, PhotoRef: attempt.PhotoRef}, nil
	})
	if err != nil {
		return record.CreateResult{}, err
	}
	res.Backend = backend
	return res, nil
}

// List returns every record, newest first. While the remote backend is
// active, records written locally during fallbacks are merged in.
// On duplicate ids the remote copy wins.
func (f *Facade) List(ctx context.Context) ([]record.Record, error) {
	f.Init(ctx)

	if f.State() == StateRemoteActive {
		remoteRecs, err := f.remote.List(ctx)
		observe("list", record.BackendRemote, err)
		switch {
		case err == nil:
			f.served(record.BackendRemote)
			localRecs, lerr := f.local.List(ctx)
			observe("list", record.BackendLocal, lerr)
			if lerr != nil {
				f.logger.Warn("local records unavailable for merge", "error", lerr)
				localRecs = nil
			}
			return sortNewestFirst(merge(remoteRecs, localRecs)), nil
		case errors.Is(err, repository.ErrBackendUnavailable):
			f.fallback("list", err)
		default:
			return nil, err
		}
	}

	recs, err := f.local.List(ctx)
	observe("list", record.BackendLocal, err)
	if err != nil {
		return nil, err
	}
	f.served(record.BackendLocal)
	return sortNewestFirst(recs), nil
}

// Update applies patch to an existing record. It never creates one.
func (f *Facade) Update(ctx context.Context, id string, patch record.Patch) (record.Outcome, error) {
	return mutate(ctx, f, "update", func(b repository.Backend) (bool, *string, error) {
		found, err := b.Update(ctx, id, patch)
		return found, nil, err
	})
}

// AttachPhoto stores photo and links it to the record with id on the
// backend that holds the record. A photo it replaces is removed.
func (f *Facade) AttachPhoto(ctx context.Context, id string, photo record.Photo, at time.Time) (record.Outcome, error) {
	return mutate(ctx, f, "attach_photo", func(b repository.Backend) (bool, *string, error) {
		prev, err := b.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil, nil
			}
			return false, nil, err
		}

		ref, err := b.StoreBlob(ctx, photo)
		if err != nil {
			return false, nil, err
		}
		hasPhoto := true
		found, err := b.Update(ctx, id, record.Patch{PhotoRef: &ref, HasPhoto: &hasPhoto, UpdatedAt: &at})
		if err != nil || !found {
			if derr := b.DeleteBlob(ctx, ref); derr != nil {
				f.logger.Warn("orphaned photo left behind", "ref", ref, "error", derr)
			}
			return false, nil, err
		}
		if prev.PhotoRef != nil && *prev.PhotoRef != ref {
			if err := b.DeleteBlob(ctx, *prev.PhotoRef); err != nil {
				f.logger.Warn("replaced photo not removed", "record_id", id, "ref", *prev.PhotoRef, "error", err)
			}
		}
		return true, &ref, nil
	})
}

// Delete removes the record with id and its photo.
func (f *Facade) Delete(ctx context.Context, id string) (record.Outcome, error) {
	return mutate(ctx, f, "delete", func(b repository.Backend) (bool, *string, error) {
		rec, err := b.Get(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, nil, nil
			}
			return false, nil, err
		}

		found, err := b.Delete(ctx, id)
		if err != nil || !found {
			return found, nil, err
		}
		if rec.PhotoRef != nil {
			if err := b.DeleteBlob(ctx, *rec.PhotoRef); err != nil {
				f.logger.Warn("photo not removed", "record_id", id, "ref", *rec.PhotoRef, "error", err)
			}
		}
		return true, rec.PhotoRef, nil
	})
}

// Status describes the active backend. It does not trigger the probe.
func (f *Facade) Status() record.BackendStatus {
	f.mu.RLock()
	state, last := f.state, f.lastServed
	f.mu.RUnlock()

	st := record.BackendStatus{
		State:      string(state),
		LastServed: last,
		LocalRoot:  f.local.Info().Root,
	}
	switch state {
	case StateRemoteActive:
		st.Active = record.BackendRemote
	case StateLocalActive:
		st.Active = record.BackendLocal
	}
	if f.remote != nil {
		info := f.remote.Info()
		st.Project = info.Project
		st.Bucket = info.Bucket
		st.Collection = info.Collection
	}
	if f.configErr != nil {
		st.ConfigError = f.configErr.Error()
	}
	return st
}

// call runs fn on the remote backend when it is active, falling back to the
// local backend when the remote one reports itself unavailable.
func call[T any](ctx context.Context, f *Facade, op string, fn func(repository.Backend) (T, error)) (T, record.Backend, error) {
	f.Init(ctx)

	if f.State() == StateRemoteActive {
		v, err := fn(f.remote)
		observe(op, record.BackendRemote, err)
		if err == nil {
			f.served(record.BackendRemote)
			return v, record.BackendRemote, nil
		}
		if !errors.Is(err, repository.ErrBackendUnavailable) {
			return v, record.BackendRemote, err
		}
		f.fallback(op, err)
	}

	v, err := fn(f.local)
	observe(op, record.BackendLocal, err)
	if err != nil {
		return v, record.BackendLocal, err
	}
	f.served(record.BackendLocal)
	return v, record.BackendLocal, nil
}

// mutate runs fn like call. A record the remote backend does not know is
// also looked up locally, since it may have been written during a fallback.
func mutate(ctx context.Context, f *Facade, op string, fn func(repository.Backend) (bool, *string, error)) (record.Outcome, error) {
	f.Init(ctx)

	if f.State() == StateRemoteActive {
		found, ref, err := fn(f.remote)
		switch {
		case err == nil && found:
			observe(op, record.BackendRemote, nil)
			f.served(record.BackendRemote)
			return record.Outcome{Found: true, Backend: record.BackendRemote, PhotoRef: ref}, nil
		case err == nil:
			observe(op, record.BackendRemote, repository.ErrNotFound)
		case errors.Is(err, repository.ErrBackendUnavailable):
			observe(op, record.BackendRemote, err)
			f.fallback(op, err)
		default:
			observe(op, record.BackendRemote, err)
			return record.Outcome{}, err
		}
	}

	found, ref, err := fn(f.local)
	if err == nil && !found {
		observe(op, record.BackendLocal, repository.ErrNotFound)
	} else {
		observe(op, record.BackendLocal, err)
	}
	if err != nil {
		return record.Outcome{}, err
	}
	f.served(record.BackendLocal)
	return record.Outcome{Found: found, Backend: record.BackendLocal, PhotoRef: ref}, nil
}

func (f *Facade) fallback(op string, err error) {
	backendFallbacks.WithLabelValues(op).Inc()
	f.logger.Warn("remote backend unavailable, serving from local store", "operation", op, "error", err)
}

func (f *Facade) served(b record.Backend) {
	f.mu.Lock()
	f.lastServed = b
	f.mu.Unlock()
}

func (f *Facade) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func merge(remote, local []record.Record) []record.Record {
	out := make([]record.Record, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote))
	for _, rec := range remote {
		seen[rec.ID] = struct{}{}
		out = append(out, rec)
	}
	for _, rec := range local {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func sortNewestFirst(recs []record.Record) []record.Record {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}
