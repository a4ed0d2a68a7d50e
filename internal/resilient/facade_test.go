package resilient_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/jsonstore"
	"github.com/rpggio/partdesk/internal/repository"
	"github.com/rpggio/partdesk/internal/repository/mocks"
	"github.com/rpggio/partdesk/internal/resilient"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errDown = errors.Join(repository.ErrBackendUnavailable, errors.New("deadline exceeded"))

func newLocal(t *testing.T) *jsonstore.Store {
	t.Helper()
	store, err := jsonstore.New(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

func newRemote(probeErr error) *mocks.RemoteBackend {
	remote := &mocks.RemoteBackend{}
	remote.On("Probe", mock.Anything).Return(probeErr)
	remote.On("Info").Return(repository.BackendInfo{Project: "acme", Bucket: "acme.firebasestorage.app", Collection: "pedidos"})
	return remote
}

func pending(part string, created time.Time) *record.Record {
	return &record.Record{Technician: "Ana", Part: part, Status: record.StatusPending, CreatedAt: created}
}

func TestFacade_NoRemote_UsesLocal(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	f := resilient.New(nil, local, resilient.WithConfigError(errors.New("remote credentials not configured")))

	require.Equal(t, resilient.StateUninitialized, f.State())
	res, err := f.Create(ctx, pending("Fuser", time.Now()), nil)
	require.NoError(t, err)
	require.Equal(t, record.BackendLocal, res.Backend)
	require.Len(t, res.ID, 8)
	require.Nil(t, res.PhotoRef)

	st := f.Status()
	require.Equal(t, string(resilient.StateLocalActive), st.State)
	require.Equal(t, record.BackendLocal, st.Active)
	require.Equal(t, record.BackendLocal, st.LastServed)
	require.Equal(t, "remote credentials not configured", st.ConfigError)
	require.Equal(t, local.Root(), st.LocalRoot)
}

func TestFacade_InitLogsConfigErrorSeparately(t *testing.T) {
	var unset, broken bytes.Buffer

	f := resilient.New(nil, newLocal(t), resilient.WithLogger(slog.New(slog.NewTextHandler(&unset, nil))))
	f.Init(context.Background())
	require.Contains(t, unset.String(), "level=WARN")
	require.Contains(t, unset.String(), "remote backend not configured")
	require.Empty(t, f.Status().ConfigError)

	f = resilient.New(nil, newLocal(t),
		resilient.WithLogger(slog.New(slog.NewTextHandler(&broken, nil))),
		resilient.WithConfigError(errors.New("invalid remote configuration: project_id missing from credentials")),
	)
	f.Init(context.Background())
	require.Contains(t, broken.String(), "level=ERROR")
	require.Contains(t, broken.String(), "project_id missing")
	require.Equal(t, resilient.StateLocalActive, f.State())
	require.NotEmpty(t, f.Status().ConfigError)
}

func TestFacade_ProbeFailure_NeverTouchesRemoteAgain(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(errDown)
	f := resilient.New(remote, newLocal(t))

	for i := 0; i < 3; i++ {
		_, err := f.Create(ctx, pending("Fuser", time.Now()), nil)
		require.NoError(t, err)
	}
	recs, err := f.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	require.Equal(t, resilient.StateLocalActive, f.State())
	remote.AssertNumberOfCalls(t, "Probe", 1)
	remote.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	remote.AssertNotCalled(t, "List", mock.Anything)
}

func TestFacade_ProbesOnceUnderConcurrency(t *testing.T) {
	remote := newRemote(nil)
	f := resilient.New(remote, newLocal(t))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Init(context.Background())
		}()
	}
	wg.Wait()

	require.Equal(t, resilient.StateRemoteActive, f.State())
	remote.AssertNumberOfCalls(t, "Probe", 1)
}

func TestFacade_CreateFallsBackPerCall(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(nil)
	remote.On("Append", mock.Anything, mock.MatchedBy(func(r *record.Record) bool { return r.Part == "Fuser" })).Return(errDown).Once()
	remote.On("Append", mock.Anything, mock.MatchedBy(func(r *record.Record) bool { return r.Part == "Roller" })).
		Run(func(args mock.Arguments) { args.Get(1).(*record.Record).ID = "remoteid0001" }).
		Return(nil).Once()

	f := resilient.New(remote, newLocal(t))

	res, err := f.Create(ctx, pending("Fuser", time.Now()), nil)
	require.NoError(t, err)
	require.Equal(t, record.BackendLocal, res.Backend)
	require.Equal(t, resilient.StateRemoteActive, f.State())

	res, err = f.Create(ctx, pending("Roller", time.Now()), nil)
	require.NoError(t, err)
	require.Equal(t, record.BackendRemote, res.Backend)
	require.Equal(t, "remoteid0001", res.ID)
	require.Equal(t, record.BackendRemote, f.Status().LastServed)
	remote.AssertNumberOfCalls(t, "Probe", 1)
}

func TestFacade_CreateKeepsBlobWithRecord(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(nil)
	remote.On("StoreBlob", mock.Anything, mock.Anything).Return("https://storage.googleapis.com/acme/fotos/x.jpg", nil)
	remote.On("Append", mock.Anything, mock.Anything).Return(errDown)
	remote.On("List", mock.Anything).Return([]record.Record{}, nil)

	f := resilient.New(remote, newLocal(t))
	res, err := f.Create(ctx, pending("Fuser", time.Now()), &record.Photo{Name: "x.jpg", ContentType: "image/jpeg", Data: []byte("jpg")})
	require.NoError(t, err)
	require.Equal(t, record.BackendLocal, res.Backend)
	require.NotNil(t, res.PhotoRef)
	require.True(t, strings.HasPrefix(*res.PhotoRef, "file://"))

	recs, err := f.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].HasPhoto)
	require.Equal(t, res.PhotoRef, recs[0].PhotoRef)

	// The remote blob stored before the failed append is left in place.
	remote.AssertCalled(t, "StoreBlob", mock.Anything, mock.Anything)
	remote.AssertNotCalled(t, "DeleteBlob", mock.Anything, mock.Anything)
}

func TestFacade_CreateSurfacesLocalStorageError(t *testing.T) {
	ctx := context.Background()
	local := &mocks.Backend{}
	local.On("Append", mock.Anything, mock.Anything).Return(repository.ErrStorageWrite)

	f := resilient.New(nil, local)
	_, err := f.Create(ctx, pending("Fuser", time.Now()), nil)
	require.ErrorIs(t, err, repository.ErrStorageWrite)
}

func TestFacade_ListMergesAndOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	local := newLocal(t)

	onlyLocal := pending("Belt", now.Add(-30*time.Minute))
	onlyLocal.ID = "local001"
	shadow := pending("Stale copy", now.Add(-10*time.Minute))
	shadow.ID = "shared01"
	require.NoError(t, local.Append(ctx, onlyLocal))
	require.NoError(t, local.Append(ctx, shadow))

	remote := newRemote(nil)
	remote.On("List", mock.Anything).Return([]record.Record{
		{ID: "shared01", Part: "Fuser", Status: record.StatusRequested, CreatedAt: now.Add(-10 * time.Minute)},
		{ID: "remote02", Part: "Roller", Status: record.StatusPending, CreatedAt: now.Add(-time.Hour)},
		{ID: "remote03", Part: "Drum", Status: record.StatusPending, CreatedAt: now},
	}, nil)

	f := resilient.New(remote, local)
	recs, err := f.List(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	require.Equal(t, []string{"remote03", "shared01", "local001", "remote02"}, ids)
	require.Equal(t, "Fuser", recs[1].Part)
}

func TestFacade_ListFallsBackSorted(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	local := newLocal(t)
	require.NoError(t, local.Append(ctx, pending("Old", now.Add(-time.Hour))))
	require.NoError(t, local.Append(ctx, pending("New", now)))

	remote := newRemote(nil)
	remote.On("List", mock.Anything).Return(nil, errDown)

	f := resilient.New(remote, local)
	recs, err := f.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "New", recs[0].Part)
	require.Equal(t, resilient.StateRemoteActive, f.State())
	require.Equal(t, record.BackendLocal, f.Status().LastServed)
}

func TestFacade_UpdateFindsFallbackRecord(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	rec := pending("Fuser", time.Now())
	require.NoError(t, local.Append(ctx, rec))

	remote := newRemote(nil)
	remote.On("Update", mock.Anything, rec.ID, mock.Anything).Return(false, nil)
	remote.On("Update", mock.Anything, "missing1", mock.Anything).Return(false, nil)

	f := resilient.New(remote, local)
	status := record.StatusDelivered
	out, err := f.Update(ctx, rec.ID, record.Patch{Status: &status})
	require.NoError(t, err)
	require.True(t, out.Found)
	require.Equal(t, record.BackendLocal, out.Backend)

	got, err := local.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, record.StatusDelivered, got.Status)

	out, err = f.Update(ctx, "missing1", record.Patch{Status: &status})
	require.NoError(t, err)
	require.False(t, out.Found)
}

func TestFacade_UpdateSurfacesOtherErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("permission model changed")
	remote := newRemote(nil)
	remote.On("Update", mock.Anything, "id1", mock.Anything).Return(false, boom)

	f := resilient.New(remote, newLocal(t))
	status := record.StatusRequested
	_, err := f.Update(ctx, "id1", record.Patch{Status: &status})
	require.ErrorIs(t, err, boom)
}

func TestFacade_AttachPhotoMissingRecordStoresNothing(t *testing.T) {
	ctx := context.Background()
	remote := newRemote(nil)
	remote.On("Get", mock.Anything, "missing1").Return(nil, repository.ErrNotFound)

	f := resilient.New(remote, newLocal(t))
	out, err := f.AttachPhoto(ctx, "missing1", record.Photo{Name: "x.jpg", Data: []byte("x")}, time.Now())
	require.NoError(t, err)
	require.False(t, out.Found)
	remote.AssertNotCalled(t, "StoreBlob", mock.Anything, mock.Anything)
}

func TestFacade_AttachPhotoAndDeleteLocal(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	f := resilient.New(nil, local)

	res, err := f.Create(ctx, pending("Fuser", time.Now()), nil)
	require.NoError(t, err)

	out, err := f.AttachPhoto(ctx, res.ID, record.Photo{Name: "x.jpg", Data: []byte("x")}, time.Now())
	require.NoError(t, err)
	require.True(t, out.Found)
	require.NotNil(t, out.PhotoRef)

	got, err := local.Get(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, got.HasPhoto)
	require.Equal(t, out.PhotoRef, got.PhotoRef)
	require.NotNil(t, got.UpdatedAt)

	out, err = f.Delete(ctx, res.ID)
	require.NoError(t, err)
	require.True(t, out.Found)

	recs, err := f.List(ctx)
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestFacade_AttachPhotoReplacesPreviousBlob(t *testing.T) {
	ctx := context.Background()
	local := newLocal(t)
	f := resilient.New(nil, local)

	res, err := f.Create(ctx, pending("Fuser", time.Now()), &record.Photo{Name: "first.jpg", Data: []byte("one")})
	require.NoError(t, err)
	require.NotNil(t, res.PhotoRef)
	firstPath := strings.TrimPrefix(*res.PhotoRef, "file://")
	_, err = os.Stat(firstPath)
	require.NoError(t, err)

	out, err := f.AttachPhoto(ctx, res.ID, record.Photo{Name: "second.jpg", Data: []byte("two")}, time.Now())
	require.NoError(t, err)
	require.True(t, out.Found)
	require.NotEqual(t, res.PhotoRef, out.PhotoRef)

	_, err = os.Stat(firstPath)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(strings.TrimPrefix(*out.PhotoRef, "file://"))
	require.NoError(t, err)
}

func TestFacade_StatusReportsRemoteInfo(t *testing.T) {
	remote := newRemote(nil)
	f := resilient.New(remote, newLocal(t))
	f.Init(context.Background())

	st := f.Status()
	require.Equal(t, string(resilient.StateRemoteActive), st.State)
	require.Equal(t, record.BackendRemote, st.Active)
	require.Equal(t, "acme", st.Project)
	require.Equal(t, "acme.firebasestorage.app", st.Bucket)
	require.Equal(t, "pedidos", st.Collection)
}
