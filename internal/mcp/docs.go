package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `partdesk tracks spare part requests raised by field technicians.

Each request has a technician, a part, optional equipment details (model, serial number, service order, notes),
an optional photo, and a status that moves Pending → Requested → Delivered.

Storage:
- Requests live in Firestore with photos in Cloud Storage when the remote backend is reachable at startup.
- Otherwise, and for any single call the remote backend cannot serve, they live in a local JSON file.
- list_requests always merges both and returns newest first. backend_status tells you which backend is active.

Tools:
- create_request: technician and part are required. Attach a photo with photo_base64 or photo_data_url.
- list_requests: optional status filter and limit. Returns per-status counts too.
- update_status, attach_photo, delete_request: may require the status password.
- backend_status, recent_activity: diagnostics.

Docs:
- partdesk://docs/workflow
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "partdesk://docs/workflow",
		Name:        "docs_workflow",
		Title:       "Part request workflow",
		Description: "Status lifecycle, photo handling, and what happens when the remote backend is down.",
		Content: `# Part request workflow

## Statuses

| status | meaning |
|---|---|
| ` + "`Pending`" + ` | raised by a technician, not yet ordered |
| ` + "`Requested`" + ` | ordered from the supplier |
| ` + "`Delivered`" + ` | handed to the technician |

New requests always start as ` + "`Pending`" + `. Any status can be set from any other; the server does not
enforce ordering.

## Photos

- Send raw bytes as ` + "`photo_base64`" + ` or a ` + "`data:image/jpeg;base64,...`" + ` URL as ` + "`photo_data_url`" + `.
- Without ` + "`photo_name`" + ` the file is named ` + "`<random>.jpg`" + `.
- The returned ` + "`photo_ref`" + ` is a public or signed HTTPS URL for remote storage, or a ` + "`file://`" + ` path
  for local storage.

## Availability

The server checks the remote backend once at startup.

- Remote reachable: calls go to Firestore. A call that fails because the remote side is unavailable is
  served from the local file instead and the response reports ` + "`backend: local`" + `.
- Remote unreachable or not configured: every call uses the local file until restart.

Records written locally during an outage stay local. They still show up in ` + "`list_requests`" + ` and can be
updated, given a photo, or deleted by id.

## Authorization

When the server has a status password, ` + "`update_status`" + `, ` + "`attach_photo`" + ` and ` + "`delete_request`" + `
need ` + "`password`" + `. A wrong or missing password returns ` + "`UNAUTHORIZED`" + `.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
