package record

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/partdesk/internal/domain/activity"
)

// Service handles part request business logic.
type Service struct {
	store      Store
	activities ActivityRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new record service.
func NewService(store Store, activities ActivityRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      store,
		activities: activities,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateRequest describes a part request creation.
type CreateRequest struct {
	Technician     string
	Part           string
	EquipmentModel string
	SerialNumber   string
	ServiceOrder   string
	Notes          string
	Photo          *Photo
}

// Create validates the request and stores a new Pending record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if err := ValidateCreateInput(req); err != nil {
		return CreateResult{}, err
	}

	rec := &Record{
		Technician:     strings.TrimSpace(req.Technician),
		Part:           strings.TrimSpace(req.Part),
		EquipmentModel: strings.TrimSpace(req.EquipmentModel),
		SerialNumber:   strings.TrimSpace(req.SerialNumber),
		ServiceOrder:   strings.TrimSpace(req.ServiceOrder),
		Notes:          strings.TrimSpace(req.Notes),
		Status:         StatusPending,
		CreatedAt:      s.now().UTC(),
	}

	var photo *Photo
	if req.Photo != nil {
		p := NormalizePhoto(*req.Photo)
		photo = &p
	}

	res, err := s.store.Create(ctx, rec, photo)
	if err != nil {
		return CreateResult{}, fmt.Errorf("creating request: %w", err)
	}

	s.journal(ctx, &activity.ActivityEntry{
		RecordID:     res.ID,
		ActivityType: activity.TypeRequestCreated,
		Backend:      string(res.Backend),
		Summary:      fmt.Sprintf("%s requested %s", rec.Technician, rec.Part),
	})

	return res, nil
}

// List returns records newest first, filtered by opts.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Record, error) {
	for _, st := range opts.Statuses {
		if err := ValidateStatus(st); err != nil {
			return nil, err
		}
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}

	out := make([]Record, 0, len(all))
	for _, rec := range all {
		if !opts.matches(rec) {
			continue
		}
		out = append(out, rec)
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

// UpdateStatus sets the status of an existing record. It never creates one.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrMissingID
	}
	if err := ValidateStatus(status); err != nil {
		return false, err
	}

	now := s.now().UTC()
	out, err := s.store.Update(ctx, id, Patch{Status: &status, UpdatedAt: &now})
	if err != nil {
		return false, fmt.Errorf("updating status: %w", err)
	}
	if !out.Found {
		return false, nil
	}

	s.journal(ctx, &activity.ActivityEntry{
		RecordID:     id,
		ActivityType: activity.TypeStatusChanged,
		Backend:      string(out.Backend),
		Summary:      fmt.Sprintf("status set to %s", status),
	})
	return true, nil
}

// AttachPhoto stores photo and links it to an existing record.
func (s *Service) AttachPhoto(ctx context.Context, id string, photo Photo) (Outcome, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Outcome{}, ErrMissingID
	}
	if len(photo.Data) == 0 {
		return Outcome{}, ErrEmptyPhoto
	}

	out, err := s.store.AttachPhoto(ctx, id, NormalizePhoto(photo), s.now().UTC())
	if err != nil {
		return Outcome{}, fmt.Errorf("attaching photo: %w", err)
	}
	if !out.Found {
		return out, nil
	}

	s.journal(ctx, &activity.ActivityEntry{
		RecordID:     id,
		ActivityType: activity.TypePhotoAttached,
		Backend:      string(out.Backend),
		Summary:      "photo attached",
		Details:      out.PhotoRef,
	})
	return out, nil
}

// Delete removes a record and its attachment.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, ErrMissingID
	}

	out, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("deleting request: %w", err)
	}
	if !out.Found {
		return false, nil
	}

	s.journal(ctx, &activity.ActivityEntry{
		RecordID:     id,
		ActivityType: activity.TypeRequestDeleted,
		Backend:      string(out.Backend),
		Summary:      "request deleted",
	})
	return true, nil
}

// BackendStatus reports which backend is active.
func (s *Service) BackendStatus() BackendStatus {
	return s.store.Status()
}

func (s *Service) journal(ctx context.Context, entry *activity.ActivityEntry) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Log(ctx, entry); err != nil {
		s.logger.Warn("journal write failed", "record_id", entry.RecordID, "type", entry.ActivityType, "error", err)
	}
}
