package record

import (
	"encoding/base64"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ValidateCreateInput validates fields required to create a record.
func ValidateCreateInput(req CreateRequest) error {
	if strings.TrimSpace(req.Technician) == "" {
		return ErrMissingTechnician
	}
	if strings.TrimSpace(req.Part) == "" {
		return ErrMissingPart
	}
	if req.Photo != nil && len(req.Photo.Data) == 0 {
		return ErrEmptyPhoto
	}
	return nil
}

// ValidateRecord checks the invariants every persisted record must hold.
func ValidateRecord(rec *Record) error {
	if rec == nil {
		return ErrValidation
	}
	if strings.TrimSpace(rec.Technician) == "" {
		return ErrMissingTechnician
	}
	if strings.TrimSpace(rec.Part) == "" {
		return ErrMissingPart
	}
	if !rec.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// ValidateStatus validates a requested status value.
func ValidateStatus(status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

// NormalizePhoto fills in a default file name and content type.
func NormalizePhoto(p Photo) Photo {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = strings.ReplaceAll(uuid.NewString(), "-", "") + ".jpg"
	}
	p.Name = filepath.Base(p.Name)
	if p.ContentType == "" {
		p.ContentType = contentTypeFor(p.Name, p.Data)
	}
	return p
}

func contentTypeFor(name string, data []byte) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	}
	if len(data) > 0 {
		return http.DetectContentType(data)
	}
	return "image/jpeg"
}

// DecodeDataURL converts "data:image/jpeg;base64,..." into bytes and its media type.
func DecodeDataURL(dataURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, "", ErrInvalidDataURL
	}
	mediaType := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", ErrInvalidDataURL
	}
	return data, mediaType, nil
}

// SafeFileName reduces name to a single path element usable on disk and in object names.
func SafeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "photo.jpg"
	}
	return name
}
