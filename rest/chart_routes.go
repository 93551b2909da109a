package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const (
	chartFormat           = "format"
	chartWidth            = "width"
	chartHeight           = "height"
	comparisonPlantPrefix = "plant."
)

////////////////////////////////////////////////////////////////////////
//
// GET /status

type StatusResponse struct {
	Revision string   `json:"revision"`
	Service  string   `json:"service"`
	RPCInfo  []string `json:"rpc_service,omitempty"`
}

func (s *Service) statusHandler(w http.ResponseWriter, r *http.Request) {
	resp := &StatusResponse{
		Revision: perffarm.BuildRevision,
		Service:  perffarm.ServiceName,
		RPCInfo:  s.RPCServers,
	}

	gimlet.WriteJSON(w, resp)
}

////////////////////////////////////////////////////////////////////////
//
// GET /tests/{test_id}/chart?branch=<branch>&plant=<plant>&format=<png|svg>

func (s *Service) lineChart(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	sel := dashboard.NewSelection(gimlet.GetVars(r)["test_id"])
	if branches, ok := vals[resultsBranch]; ok {
		sel.Branches = branches
	}
	sel.SelectPlant(vals.Get(resultsPlant))

	opts, err := parseRenderOptions(vals)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Title = sel.Test

	viewData, err := s.refresh(r, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	if viewData.Line.IsEmpty() {
		writeError(w, gimlet.ErrorResponse{StatusCode: http.StatusBadRequest, Message: viewData.Message})
		return
	}

	buf := &bytes.Buffer{}
	if err = dashboard.RenderLineChart(buf, viewData.Line, opts); err != nil {
		writeError(w, renderError(err))
		return
	}

	writeImage(w, opts.Format, buf)
}

////////////////////////////////////////////////////////////////////////
//
// GET /tests/{test_id}/comparison/chart?plant.<name>=<branch>&format=<png|svg>

func (s *Service) comparisonChart(w http.ResponseWriter, r *http.Request) {
	vals := r.URL.Query()
	sel := dashboard.NewSelection(gimlet.GetVars(r)["test_id"])
	if err := sel.SetViewMode(dashboard.ViewModeComparison); err != nil {
		writeError(w, err)
		return
	}
	for key := range vals {
		if !strings.HasPrefix(key, comparisonPlantPrefix) {
			continue
		}
		plant := strings.TrimPrefix(key, comparisonPlantPrefix)
		if err := sel.SetComparisonBranch(plant, vals.Get(key)); err != nil {
			writeError(w, gimlet.ErrorResponse{StatusCode: http.StatusBadRequest, Message: err.Error()})
			return
		}
	}

	opts, err := parseRenderOptions(vals)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Title = fmt.Sprintf("%s plant comparison", sel.Test)

	viewData, err := s.refresh(r, sel)
	if err != nil {
		writeError(w, err)
		return
	}
	if !viewData.Comparison.HasData() {
		writeError(w, gimlet.ErrorResponse{StatusCode: http.StatusBadRequest, Message: dashboard.EmptyComparisonMessage})
		return
	}

	buf := &bytes.Buffer{}
	if err = dashboard.RenderComparisonChart(buf, viewData.Comparison, opts); err != nil {
		writeError(w, renderError(err))
		return
	}

	writeImage(w, opts.Format, buf)
}

// refresh validates the selection built from the query, so malformed
// parameters are reported as bad requests, and derives its view data.
func (s *Service) refresh(r *http.Request, sel *dashboard.Selection) (*dashboard.ViewData, error) {
	if err := sel.Validate(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    errors.Wrap(err, "invalid selection").Error(),
		}
	}

	view, err := dashboard.NewView(s.sc, sel)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	viewData, err := view.Refresh(r.Context())
	if err != nil {
		grip.Debug(message.WrapError(err, message.Fields{
			"request": gimlet.GetRequestID(r.Context()),
			"path":    r.URL.Path,
			"test_id": sel.Test,
		}))
		return nil, err
	}

	return viewData, nil
}

func parseRenderOptions(vals url.Values) (dashboard.RenderOptions, error) {
	opts := dashboard.RenderOptions{Format: dashboard.ImageFormatPNG}
	if f := vals.Get(chartFormat); f != "" {
		opts.Format = dashboard.ImageFormat(strings.ToLower(f))
	}
	if err := opts.Format.Validate(); err != nil {
		return opts, gimlet.ErrorResponse{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}

	for key, dst := range map[string]*int{chartWidth: &opts.Width, chartHeight: &opts.Height} {
		raw := vals.Get(key)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return opts, gimlet.ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Message:    fmt.Sprintf("invalid %s '%s'", key, raw),
			}
		}
		*dst = v
	}

	return opts, nil
}

func renderError(err error) error {
	if errors.Cause(err) == dashboard.ErrEmptyView {
		return gimlet.ErrorResponse{StatusCode: http.StatusBadRequest, Message: err.Error()}
	}
	return errors.Wrap(err, "problem rendering chart")
}

func writeImage(w http.ResponseWriter, format dashboard.ImageFormat, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, err := w.Write(buf.Bytes())
	grip.Warning(message.WrapError(err, message.Fields{
		"message": "problem writing chart",
		"format":  format,
	}))
}

func writeError(w http.ResponseWriter, err error) {
	if resp, ok := errors.Cause(err).(gimlet.ErrorResponse); ok {
		gimlet.WriteJSONResponse(w, resp.StatusCode, resp)
		return
	}

	logRequestError(err, message.Fields{"message": "chart request failed"})
	gimlet.WriteJSONInternalError(w, gimlet.ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    err.Error(),
	})
}
