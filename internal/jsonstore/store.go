// Package jsonstore keeps part requests in a JSON document on local disk
// and their photos in an attachments directory next to it.
package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rpggio/partdesk/internal/domain/record"
	"github.com/rpggio/partdesk/internal/repository"
)

const (
	// RecordsFile is the name of the records document under the root.
	RecordsFile = "db_local.json"
	// AttachmentsDir is the name of the photo directory under the root.
	AttachmentsDir = "uploads"

	refScheme = "file://"
	idLength  = 8
)

type document struct {
	Records []record.Record `json:"pedidos"`
}

// Store is the local file backend. Every call rereads the document, so
// edits made by other processes between calls are picked up.
type Store struct {
	root    string
	file    string
	uploads string
	logger  *slog.Logger

	mu sync.Mutex
}

// New creates a store rooted at root. Nothing is touched on disk until the first call.
func New(root string, logger *slog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving local root %s: %w", root, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		root:    abs,
		file:    filepath.Join(abs, RecordsFile),
		uploads: filepath.Join(abs, AttachmentsDir),
		logger:  logger,
	}, nil
}

// EnsureInitialized creates the attachments directory and an empty records
// document if they are missing. It is safe to call repeatedly.
func (s *Store) EnsureInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureInitialized()
}

func (s *Store) ensureInitialized() error {
	if err := os.MkdirAll(s.uploads, 0o750); err != nil {
		return storageErr("creating attachments directory", err)
	}
	if _, err := os.Stat(s.file); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return storageErr("checking records file", err)
	}
	s.logger.Info("initializing local records file", "path", s.file)
	return s.save(document{Records: []record.Record{}})
}

// Append stores rec, assigning an 8 character id when rec.ID is empty.
func (s *Store) Append(_ context.Context, rec *record.Record) error {
	if err := record.ValidateRecord(rec); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadInitialized()
	if err != nil {
		return err
	}

	taken := make(map[string]struct{}, len(doc.Records))
	for _, r := range doc.Records {
		taken[r.ID] = struct{}{}
	}
	if rec.ID == "" {
		rec.ID = newID(taken)
	} else if _, ok := taken[rec.ID]; ok {
		return fmt.Errorf("%w: %s", repository.ErrConflict, rec.ID)
	}

	doc.Records = append(doc.Records, *rec)
	return s.save(doc)
}

// List returns records in file order.
func (s *Store) List(_ context.Context) ([]record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadInitialized()
	if err != nil {
		return nil, err
	}
	return doc.Records, nil
}

// Get returns the record with id or repository.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (*record.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadInitialized()
	if err != nil {
		return nil, err
	}
	for i := range doc.Records {
		if doc.Records[i].ID == id {
			rec := doc.Records[i]
			return &rec, nil
		}
	}
	return nil, repository.ErrNotFound
}

// Update applies patch to the record with id. It reports false when no record matches.
func (s *Store) Update(_ context.Context, id string, patch record.Patch) (bool, error) {
	if err := validatePatch(patch); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadInitialized()
	if err != nil {
		return false, err
	}
	for i := range doc.Records {
		if doc.Records[i].ID != id {
			continue
		}
		patch.Apply(&doc.Records[i])
		if err := s.save(doc); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// Delete removes the record with id. It reports false when no record matches.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadInitialized()
	if err != nil {
		return false, err
	}
	for i := range doc.Records {
		if doc.Records[i].ID != id {
			continue
		}
		doc.Records = append(doc.Records[:i], doc.Records[i+1:]...)
		if err := s.save(doc); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// StoreBlob writes photo to <uuid-hex>_<name> in the attachments directory
// and returns a file:// reference to it.
func (s *Store) StoreBlob(_ context.Context, photo record.Photo) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitialized(); err != nil {
		return "", err
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + "_" + record.SafeFileName(photo.Name)
	path := filepath.Join(s.uploads, name)
	if err := writeAtomic(path, photo.Data); err != nil {
		return "", storageErr("writing attachment", err)
	}
	return refScheme + filepath.ToSlash(path), nil
}

// DeleteBlob removes a blob previously returned by StoreBlob. References
// outside the attachments directory and missing files are ignored.
func (s *Store) DeleteBlob(_ context.Context, ref string) error {
	path, ok := s.pathForRef(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return storageErr("removing attachment", err)
	}
	return nil
}

// Info describes where the store keeps its data.
func (s *Store) Info() repository.BackendInfo {
	return repository.BackendInfo{Root: s.root}
}

// Root returns the absolute root directory.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) pathForRef(ref string) (string, bool) {
	if !strings.HasPrefix(ref, refScheme) {
		return "", false
	}
	path := filepath.Clean(filepath.FromSlash(strings.TrimPrefix(ref, refScheme)))
	if filepath.Dir(path) != s.uploads {
		return "", false
	}
	return path, true
}

func (s *Store) loadInitialized() (document, error) {
	if err := s.ensureInitialized(); err != nil {
		return document{}, err
	}
	data, err := os.ReadFile(s.file)
	if err != nil {
		return document{}, storageErr("reading records file", err)
	}
	var doc document
	if len(strings.TrimSpace(string(data))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, storageErr("decoding records file", err)
	}
	return doc, nil
}

func (s *Store) save(doc document) error {
	if doc.Records == nil {
		doc.Records = []record.Record{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return storageErr("encoding records", err)
	}
	if err := writeAtomic(s.file, data); err != nil {
		return storageErr("writing records file", err)
	}
	return nil
}

// writeAtomic writes data to a temp file, syncs it and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

func newID(taken map[string]struct{}) string {
	for {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:idLength]
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

func validatePatch(p record.Patch) error {
	if p.Empty() {
		return fmt.Errorf("%w: empty patch", repository.ErrInvalidInput)
	}
	if p.Status != nil {
		if err := record.ValidateStatus(*p.Status); err != nil {
			return fmt.Errorf("%w: %w", repository.ErrInvalidInput, err)
		}
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", repository.ErrStorageWrite, op, err)
}
