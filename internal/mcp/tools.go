package mcp

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/partdesk/internal/domain/activity"
	"github.com/rpggio/partdesk/internal/domain/record"
)

type tools struct {
	records  RecordService
	activity ActivityService
	password string
	logger   *slog.Logger
}

func registerTools(server *sdkmcp.Server, t *tools) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_request",
		Description: "Create a part request. New requests start as Pending. Returns the id, the photo reference and the backend that stored it.",
	}, t.createRequest)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_requests",
		Description: "List part requests newest first, optionally filtered by status, with per-status counts",
	}, t.listRequests)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_status",
		Description: "Set the status of an existing request. Returns found=false when no request has that id.",
	}, t.updateStatus)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "attach_photo",
		Description: "Attach or replace the photo of an existing request",
	}, t.attachPhoto)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_request",
		Description: "Delete a request and its photo",
	}, t.deleteRequest)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "backend_status",
		Description: "Report which storage backend is active and which one served the last call",
	}, t.backendStatus)

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent journal entries (creations, status changes, photos, deletions), newest first",
	}, t.recentActivity)
}

func (t *tools) createRequest(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateRequestParams) (*sdkmcp.CallToolResult, any, error) {
	photo, err := decodePhoto(in.PhotoBase64, in.PhotoDataURL, in.PhotoName)
	if err != nil {
		return errorResult(err)
	}

	res, err := t.records.Create(ctx, record.CreateRequest{
		Technician:     in.Technician,
		Part:           in.Part,
		EquipmentModel: in.EquipmentModel,
		SerialNumber:   in.SerialNumber,
		ServiceOrder:   in.ServiceOrder,
		Notes:          in.Notes,
		Photo:          photo,
	})
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(res)
}

func (t *tools) listRequests(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListRequestsParams) (*sdkmcp.CallToolResult, any, error) {
	opts := record.ListOptions{Limit: in.Limit}
	for _, s := range in.Statuses {
		opts.Statuses = append(opts.Statuses, record.Status(s))
	}

	recs, err := t.records.List(ctx, opts)
	if err != nil {
		return errorResult(err)
	}
	if recs == nil {
		recs = []record.Record{}
	}
	return jsonResult(ListRequestsResult{Requests: recs, Stats: record.Summarize(recs)})
}

func (t *tools) updateStatus(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateStatusParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(in.Password); err != nil {
		return errorResult(err)
	}

	status := record.Status(in.Status)
	found, err := t.records.UpdateStatus(ctx, in.ID, status)
	if err != nil {
		return errorResult(err)
	}
	out := UpdateStatusResult{ID: in.ID, Found: found}
	if found {
		out.Status = status
	}
	return jsonResult(out)
}

func (t *tools) attachPhoto(ctx context.Context, _ *sdkmcp.CallToolRequest, in AttachPhotoParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(in.Password); err != nil {
		return errorResult(err)
	}

	photo, err := decodePhoto(in.PhotoBase64, in.PhotoDataURL, in.PhotoName)
	if err != nil {
		return errorResult(err)
	}
	if photo == nil {
		return errorResult(record.ErrEmptyPhoto)
	}

	out, err := t.records.AttachPhoto(ctx, in.ID, *photo)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(AttachPhotoResult{ID: in.ID, Found: out.Found, PhotoRef: out.PhotoRef, Backend: out.Backend})
}

func (t *tools) deleteRequest(ctx context.Context, _ *sdkmcp.CallToolRequest, in DeleteRequestParams) (*sdkmcp.CallToolResult, any, error) {
	if err := t.authorize(in.Password); err != nil {
		return errorResult(err)
	}

	found, err := t.records.Delete(ctx, in.ID)
	if err != nil {
		return errorResult(err)
	}
	return jsonResult(DeleteRequestResult{ID: in.ID, Found: found})
}

func (t *tools) backendStatus(_ context.Context, _ *sdkmcp.CallToolRequest, _ BackendStatusParams) (*sdkmcp.CallToolResult, any, error) {
	return jsonResult(t.records.BackendStatus())
}

func (t *tools) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, any, error) {
	if t.activity == nil {
		return errorResult(ErrJournalDisabled)
	}

	opts := activity.ListActivityOptions{Limit: in.Limit}
	if in.RecordID != "" {
		opts.RecordID = &in.RecordID
	}
	entries, err := t.activity.GetRecentActivity(ctx, opts)
	if err != nil {
		return errorResult(err)
	}
	if entries == nil {
		entries = []activity.ActivityEntry{}
	}
	return jsonResult(RecentActivityResult{Entries: entries})
}

// authorize checks the status password. An empty configured password disables the gate.
func (t *tools) authorize(given string) error {
	if t.password == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(given), []byte(t.password)) != 1 {
		t.logger.Warn("status password rejected")
		return ErrUnauthorized
	}
	return nil
}

// decodePhoto builds a photo from either encoding. It returns nil when neither is set.
func decodePhoto(b64, dataURL, name string) (*record.Photo, error) {
	switch {
	case dataURL != "":
		data, mediaType, err := record.DecodeDataURL(dataURL)
		if err != nil {
			return nil, err
		}
		return &record.Photo{Name: name, ContentType: mediaType, Data: data}, nil
	case b64 != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
		if err != nil {
			return nil, fmt.Errorf("%w: photo_base64 is not valid base64", record.ErrValidation)
		}
		return &record.Photo{Name: name, Data: data}, nil
	default:
		return nil, nil
	}
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) (*sdkmcp.CallToolResult, any, error) {
	data, mErr := json.Marshal(MapError(err))
	if mErr != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
