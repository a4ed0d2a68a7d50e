package mcp

import (
	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
)

type CreateRequestParams struct {
	Technician     string `json:"technician" jsonschema:"name of the technician raising the request"`
	Part           string `json:"part" jsonschema:"part being requested"`
	EquipmentModel string `json:"equipment_model,omitempty" jsonschema:"equipment model"`
	SerialNumber   string `json:"serial_number,omitempty" jsonschema:"equipment serial number"`
	ServiceOrder   string `json:"service_order,omitempty" jsonschema:"service order number"`
	Notes          string `json:"notes,omitempty" jsonschema:"free-form notes"`
	PhotoBase64    string `json:"photo_base64,omitempty" jsonschema:"photo bytes, standard base64"`
	PhotoDataURL   string `json:"photo_data_url,omitempty" jsonschema:"photo as a data:<mime>;base64 URL"`
	PhotoName      string `json:"photo_name,omitempty" jsonschema:"photo file name"`
}

type ListRequestsParams struct {
	Statuses []string `json:"statuses,omitempty" jsonschema:"only return requests in these statuses"`
	Limit    int      `json:"limit,omitempty" jsonschema:"maximum number of requests"`
}

type ListRequestsResult struct {
	Requests []record.Record `json:"requests"`
	Stats    record.Stats    `json:"stats"`
}

type UpdateStatusParams struct {
	ID       string `json:"id" jsonschema:"request id"`
	Status   string `json:"status" jsonschema:"Pending, Requested or Delivered"`
	Password string `json:"password,omitempty" jsonschema:"status password, when the server requires one"`
}

type UpdateStatusResult struct {
	ID     string        `json:"id"`
	Found  bool          `json:"found"`
	Status record.Status `json:"status,omitempty"`
}

type AttachPhotoParams struct {
	ID           string `json:"id" jsonschema:"request id"`
	PhotoBase64  string `json:"photo_base64,omitempty" jsonschema:"photo bytes, standard base64"`
	PhotoDataURL string `json:"photo_data_url,omitempty" jsonschema:"photo as a data:<mime>;base64 URL"`
	PhotoName    string `json:"photo_name,omitempty" jsonschema:"photo file name"`
	Password     string `json:"password,omitempty" jsonschema:"status password, when the server requires one"`
}

type AttachPhotoResult struct {
	ID       string         `json:"id"`
	Found    bool           `json:"found"`
	PhotoRef *string        `json:"photo_ref"`
	Backend  record.Backend `json:"backend,omitempty"`
}

type DeleteRequestParams struct {
	ID       string `json:"id" jsonschema:"request id"`
	Password string `json:"password,omitempty" jsonschema:"status password, when the server requires one"`
}

type DeleteRequestResult struct {
	ID    string `json:"id"`
	Found bool   `json:"found"`
}

type BackendStatusParams struct{}

type RecentActivityParams struct {
	RecordID string `json:"record_id,omitempty" jsonschema:"only entries for this request"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of entries, default 50"`
}

type RecentActivityResult struct {
	Entries []activity.ActivityEntry `json:"entries"`
}
