package rest

import (
	"context"
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// JobResponse identifies a scheduled background job.
type JobResponse struct {
	JobID string `json:"job_id"`
}

// FixturesRequest names the fixture file to load. The built-in fixtures are
// loaded when Path is empty.
type FixturesRequest struct {
	Path string `json:"path,omitempty"`
}

///////////////////////////////////////////////////////////////////////////////
//
// POST /admin/fixtures

type fixturesLoadHandler struct {
	req FixturesRequest
	sc  data.Connector
}

func makeLoadFixtures(sc data.Connector) gimlet.RouteHandler {
	return &fixturesLoadHandler{sc: sc}
}

func (h *fixturesLoadHandler) Factory() gimlet.RouteHandler {
	return &fixturesLoadHandler{sc: h.sc}
}

// Parse reads the optional fixtures request. An empty body loads the
// built-in fixtures.
func (h *fixturesLoadHandler) Parse(_ context.Context, r *http.Request) error {
	h.req = FixturesRequest{}
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}

	body := utility.NewRequestReader(r)
	defer body.Close()

	if err := utility.ReadJSON(body, &h.req); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    errors.Wrap(err, "problem reading fixtures request").Error(),
		}
	}

	return nil
}

// Run schedules the fixture load job.
func (h *fixturesLoadHandler) Run(ctx context.Context) gimlet.Responder {
	id, err := h.sc.ScheduleFixtureLoad(ctx, h.req.Path)
	if err != nil {
		return errorResponder(ctx, errors.Wrap(err, "problem scheduling fixture load"), "/admin/fixtures", message.Fields{"path": h.req.Path})
	}

	grip.Info(message.Fields{
		"message": "scheduled fixture load",
		"request": gimlet.GetRequestID(ctx),
		"job_id":  id,
		"path":    h.req.Path,
	})

	return gimlet.NewJSONResponse(&JobResponse{JobID: id})
}

///////////////////////////////////////////////////////////////////////////////
//
// POST /admin/export/{test_id}

type snapshotExportHandler struct {
	id string
	sc data.Connector
}

func makeExportSnapshot(sc data.Connector) gimlet.RouteHandler {
	return &snapshotExportHandler{sc: sc}
}

func (h *snapshotExportHandler) Factory() gimlet.RouteHandler {
	return &snapshotExportHandler{sc: h.sc}
}

// Parse fetches the test_id from the http request.
func (h *snapshotExportHandler) Parse(_ context.Context, r *http.Request) error {
	h.id = gimlet.GetVars(r)["test_id"]
	return nil
}

// Run schedules the snapshot export job for the test.
func (h *snapshotExportHandler) Run(ctx context.Context) gimlet.Responder {
	id, err := h.sc.ScheduleSnapshotExport(ctx, h.id)
	if err != nil {
		return errorResponder(ctx, errors.Wrapf(err, "problem scheduling snapshot export for test '%s'", h.id), "/admin/export/{test_id}", message.Fields{"test_id": h.id})
	}

	return gimlet.NewJSONResponse(&JobResponse{JobID: id})
}
