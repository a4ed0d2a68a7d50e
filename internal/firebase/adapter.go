// Package firebase stores part requests in a Firestore collection and their
// photos in a Cloud Storage bucket.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	DefaultCollection   = "pedidos"
	DefaultTimeout      = 10 * time.Second
	DefaultSignedURLTTL = 365 * 24 * time.Hour

	IDModeServer = "server"
	IDModeLocal  = "local"

	blobFolder    = "fotos"
	publicBaseURL = "https://storage.googleapis.com/"
	localIDLength = 8
	maxIDAttempts = 5
)

var (
	// ErrNotConfigured means no credentials were supplied. The remote backend
	// is treated as unavailable.
	ErrNotConfigured = fmt.Errorf("%w: remote credentials not configured", repository.ErrBackendUnavailable)

	// ErrConfig means the credential payload is malformed or incomplete.
	ErrConfig = errors.New("invalid remote configuration")
)

// Config is read once when the adapter is built.
type Config struct {
	CredentialsJSON string
	Bucket          string
	Collection      string
	IDMode          string
	Timeout         time.Duration
	SignedURLTTL    time.Duration
}

// Credentials holds the service account fields the adapter needs.
type Credentials struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseCredentials decodes a service account JSON payload.
func ParseCredentials(raw string) (Credentials, error) {
	if strings.TrimSpace(raw) == "" {
		return Credentials{}, ErrNotConfigured
	}
	var creds Credentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: decoding credentials: %v", ErrConfig, err)
	}
	if strings.TrimSpace(creds.ProjectID) == "" {
		return Credentials{}, fmt.Errorf("%w: project_id missing from credentials", ErrConfig)
	}
	return creds, nil
}

// Adapter is the remote backend.
type Adapter struct {
	fs      *firestore.Client
	st      *storage.Client
	creds   Credentials
	cfg     Config
	project string
	bucket  string
	logger  *slog.Logger
}

// New parses the credentials in cfg and builds Firestore and Storage clients.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Adapter, error) {
	creds, err := ParseCredentials(cfg.CredentialsJSON)
	if err != nil {
		return nil, err
	}

	opt := option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	fs, err := firestore.NewClient(ctx, creds.ProjectID, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: creating firestore client: %w", repository.ErrBackendUnavailable, err)
	}
	st, err := storage.NewClient(ctx, opt)
	if err != nil {
		fs.Close()
		return nil, fmt.Errorf("%w: creating storage client: %w", repository.ErrBackendUnavailable, err)
	}

	return NewWithClients(fs, st, creds, cfg, logger), nil
}

// NewWithClients builds an adapter around existing clients.
func NewWithClients(fs *firestore.Client, st *storage.Client, creds Credentials, cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.IDMode == "" {
		cfg.IDMode = IDModeServer
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = DefaultSignedURLTTL
	}
	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket(creds.ProjectID)
	}
	return &Adapter{
		fs:      fs,
		st:      st,
		creds:   creds,
		cfg:     cfg,
		project: creds.ProjectID,
		bucket:  bucket,
		logger:  logger,
	}
}

// DefaultBucket returns the bucket Firebase creates for a project.
func DefaultBucket(projectID string) string {
	return projectID + ".firebasestorage.app"
}

// Close releases both clients.
func (a *Adapter) Close() error {
	var errs []error
	if a.fs != nil {
		errs = append(errs, a.fs.Close())
	}
	if a.st != nil {
		errs = append(errs, a.st.Close())
	}
	return errors.Join(errs...)
}

// Info describes the remote location.
func (a *Adapter) Info() repository.BackendInfo {
	return repository.BackendInfo{Project: a.project, Bucket: a.bucket, Collection: a.cfg.Collection}
}

// Probe checks that the bucket and the collection are reachable.
func (a *Adapter) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if _, err := a.st.Bucket(a.bucket).Attrs(ctx); err != nil {
		return unavailable("probing bucket", err)
	}
	iter := a.collection().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return unavailable("probing collection", err)
	}
	return nil
}

// Append creates a document for rec and sets rec.ID.
func (a *Adapter) Append(ctx context.Context, rec *record.Record) error {
	if err := record.ValidateRecord(rec); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalidInput, err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if rec.ID != "" {
		if _, err := a.collection().Doc(rec.ID).Create(ctx, rec); err != nil {
			return normalize("creating document", err)
		}
		return nil
	}

	if a.cfg.IDMode != IDModeLocal {
		ref := a.collection().NewDoc()
		if _, err := ref.Create(ctx, rec); err != nil {
			return normalize("creating document", err)
		}
		rec.ID = ref.ID
		return nil
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:localIDLength]
		_, err := a.collection().Doc(id).Create(ctx, rec)
		if err == nil {
			rec.ID = id
			return nil
		}
		if err = normalize("creating document", err); !errors.Is(err, repository.ErrConflict) {
			return err
		}
		a.logger.Debug("document id collision", "id", id)
	}
	return fmt.Errorf("%w: no free document id after %d attempts", repository.ErrConflict, maxIDAttempts)
}

// List returns every document ordered by creation time, newest first.
// A failed query fails the whole call.
func (a *Adapter) List(ctx context.Context) ([]record.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	iter := a.collection().OrderBy(record.FieldCreatedAt, firestore.Desc).Documents(ctx)
	defer iter.Stop()

	var out []record.Record
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, unavailable("listing documents", err)
		}
		rec, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns one document or repository.ErrNotFound.
func (a *Adapter) Get(ctx context.Context, id string) (*record.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	doc, err := a.collection().Doc(id).Get(ctx)
	if err != nil {
		return nil, normalize("reading document", err)
	}
	rec, err := decode(doc)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update applies patch. It reports false when the document does not exist.
func (a *Adapter) Update(ctx context.Context, id string, patch record.Patch) (bool, error) {
	if patch.Empty() {
		return false, fmt.Errorf("%w: empty patch", repository.ErrInvalidInput)
	}
	if patch.Status != nil {
		if err := record.ValidateStatus(*patch.Status); err != nil {
			return false, fmt.Errorf("%w: %w", repository.ErrInvalidInput, err)
		}
	}
	updates := patchUpdates(patch)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if _, err := a.collection().Doc(id).Update(ctx, updates); err != nil {
		err = normalize("updating document", err)
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes a document. It reports false when the document does not exist.
func (a *Adapter) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if _, err := a.collection().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		err = normalize("deleting document", err)
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// StoreBlob uploads photo and returns its public URL, or a long-lived
// signed URL when the object cannot be made public.
func (a *Adapter) StoreBlob(ctx context.Context, photo record.Photo) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	name := fmt.Sprintf("%s/%s_%s", blobFolder, strings.ReplaceAll(uuid.NewString(), "-", ""), record.SafeFileName(photo.Name))
	obj := a.st.Bucket(a.bucket).Object(name)

	w := obj.NewWriter(ctx)
	w.ContentType = photo.ContentType
	if w.ContentType == "" {
		w.ContentType = "image/jpeg"
	}
	if _, err := w.Write(photo.Data); err != nil {
		w.Close()
		return "", unavailable("uploading photo", err)
	}
	if err := w.Close(); err != nil {
		return "", unavailable("uploading photo", err)
	}

	aclErr := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
	if aclErr == nil {
		return publicURL(a.bucket, name), nil
	}
	a.logger.Warn("public ACL rejected, using signed URL", "object", name, "error", aclErr)

	signed, err := a.st.Bucket(a.bucket).SignedURL(name, &storage.SignedURLOptions{
		GoogleAccessID: a.creds.ClientEmail,
		PrivateKey:     []byte(a.creds.PrivateKey),
		Method:         "GET",
		Scheme:         storage.SigningSchemeV2,
		Expires:        time.Now().Add(a.cfg.SignedURLTTL),
	})
	if err != nil {
		return "", unavailable("signing photo URL", err)
	}
	return signed, nil
}

// DeleteBlob removes the object behind a URL returned by StoreBlob.
// References to other stores and missing objects are ignored.
func (a *Adapter) DeleteBlob(ctx context.Context, ref string) error {
	name, ok := objectName(a.bucket, ref)
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	if err := a.st.Bucket(a.bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil
		}
		return normalize("deleting photo", err)
	}
	return nil
}

func (a *Adapter) collection() *firestore.CollectionRef {
	return a.fs.Collection(a.cfg.Collection)
}

func decode(doc *firestore.DocumentSnapshot) (record.Record, error) {
	var rec record.Record
	if err := doc.DataTo(&rec); err != nil {
		return record.Record{}, fmt.Errorf("%w: decoding document %s: %w", repository.ErrBackendUnavailable, doc.Ref.ID, err)
	}
	rec.ID = doc.Ref.ID
	return rec, nil
}

func patchUpdates(p record.Patch) []firestore.Update {
	var updates []firestore.Update
	if p.Status != nil {
		updates = append(updates, firestore.Update{Path: record.FieldStatus, Value: string(*p.Status)})
	}
	if p.PhotoRef != nil {
		updates = append(updates, firestore.Update{Path: record.FieldPhotoRef, Value: *p.PhotoRef})
	}
	if p.HasPhoto != nil {
		updates = append(updates, firestore.Update{Path: record.FieldHasPhoto, Value: *p.HasPhoto})
	}
	if p.UpdatedAt != nil {
		updates = append(updates, firestore.Update{Path: record.FieldUpdatedAt, Value: *p.UpdatedAt})
	}
	return updates
}

func publicURL(bucket, name string) string {
	return publicBaseURL + bucket + "/" + name
}

func objectName(bucket, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Scheme != "https" || u.Host != "storage.googleapis.com" {
		return "", false
	}
	name, ok := strings.CutPrefix(u.Path, "/"+bucket+"/")
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
