package record

import "time"

// Status represents the workflow state of a part request
type Status string

const (
	StatusPending   Status = "Pending"
	StatusRequested Status = "Requested"
	StatusDelivered Status = "Delivered"
)

// Statuses lists every valid status in workflow order.
var Statuses = []Status{StatusPending, StatusRequested, StatusDelivered}

// Valid reports whether s is one of the workflow states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRequested, StatusDelivered:
		return true
	}
	return false
}

// Firestore field names. They double as the JSON keys of the local file.
const (
	FieldStatus    = "status"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldHasPhoto  = "has_photo"
	FieldPhotoRef  = "photo_ref"
)

// Record is one part request
type Record struct {
	ID             string     `json:"id" firestore:"-"`
	Technician     string     `json:"technician" firestore:"technician"`
	Part           string     `json:"part" firestore:"part"`
	EquipmentModel string     `json:"equipment_model" firestore:"equipment_model"`
	SerialNumber   string     `json:"serial_number" firestore:"serial_number"`
	ServiceOrder   string     `json:"service_order" firestore:"service_order"`
	Notes          string     `json:"notes" firestore:"notes"`
	Status         Status     `json:"status" firestore:"status"`
	CreatedAt      time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" firestore:"updated_at,omitempty"`
	HasPhoto       bool       `json:"has_photo" firestore:"has_photo"`
	PhotoRef       *string    `json:"photo_ref" firestore:"photo_ref"`
}

// Photo is an attachment supplied at creation or attached later.
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}

// Patch lists the mutable fields of a record. Nil fields are left untouched.
type Patch struct {
	Status    *Status
	PhotoRef  *string
	HasPhoto  *bool
	UpdatedAt *time.Time
}

// Apply copies the set fields of p onto rec.
func (p Patch) Apply(rec *Record) {
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.PhotoRef != nil {
		ref := *p.PhotoRef
		rec.PhotoRef = &ref
	}
	if p.HasPhoto != nil {
		rec.HasPhoto = *p.HasPhoto
	}
	if p.UpdatedAt != nil {
		ts := *p.UpdatedAt
		rec.UpdatedAt = &ts
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Status == nil && p.PhotoRef == nil && p.HasPhoto == nil && p.UpdatedAt == nil
}

// Backend identifies which store served a call.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
)

// CreateResult is returned by a successful creation.
type CreateResult struct {
	ID       string  `json:"id"`
	PhotoRef *string `json:"photo_ref"`
	Backend  Backend `json:"backend"`
}

// BackendStatus describes the active backend for diagnostics
type BackendStatus struct {
	State       string  `json:"state"`
	Active      Backend `json:"active_backend"`
	LastServed  Backend `json:"last_served,omitempty"`
	Project     string  `json:"project,omitempty"`
	Bucket      string  `json:"bucket,omitempty"`
	Collection  string  `json:"collection,omitempty"`
	LocalRoot   string  `json:"local_root,omitempty"`
	ConfigError string  `json:"config_error,omitempty"`
}

// Stats summarizes a listing by status.
type Stats struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	Requested        int     `json:"requested"`
	Delivered        int     `json:"delivered"`
	DeliveredPercent float64 `json:"delivered_percent"`
}

// Summarize counts records per status.
func Summarize(records []Record) Stats {
	var st Stats
	for _, rec := range records {
		st.Total++
		switch rec.Status {
		case StatusPending:
			st.Pending++
		case StatusRequested:
			st.Requested++
		case StatusDelivered:
			st.Delivered++
		}
	}
	if st.Total > 0 {
		st.DeliveredPercent = float64(st.Delivered) / float64(st.Total) * 100
	}
	return st
}
