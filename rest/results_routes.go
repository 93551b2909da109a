package rest

import (
	"context"
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm/dashboard"
	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const (
	resultsPlant   = "plant"
	resultsBranch  = "branch"
	resultsSortBy  = "sort_by"
	resultsSortDSC = "sort_order_dsc"
	trueString     = "true"
)

///////////////////////////////////////////////////////////////////////////////
//
// GET /tests/{test_id}/results

type resultsGetByTestIDHandler struct {
	query dbmodel.ResultsQuery
	sort  *dashboard.SortConfig
	sc    data.Connector
}

func makeGetResultsByTestID(sc data.Connector) gimlet.RouteHandler {
	return &resultsGetByTestIDHandler{sc: sc}
}

// Factory returns a pointer to a new resultsGetByTestIDHandler.
func (h *resultsGetByTestIDHandler) Factory() gimlet.RouteHandler {
	return &resultsGetByTestIDHandler{sc: h.sc}
}

// Parse fetches the test_id from the http request along with the plant and
// branch filters and the optional sort order.
func (h *resultsGetByTestIDHandler) Parse(_ context.Context, r *http.Request) error {
	vals := r.URL.Query()
	h.query = dbmodel.ResultsQuery{
		TestID:   gimlet.GetVars(r)["test_id"],
		Plant:    vals.Get(resultsPlant),
		Branches: vals[resultsBranch],
	}
	h.sort = nil

	if sortBy := vals.Get(resultsSortBy); sortBy != "" {
		conf := dashboard.SortConfig{Key: dashboard.SortKey(sortBy), Direction: dashboard.SortAscending}
		if vals.Get(resultsSortDSC) == trueString {
			conf.Direction = dashboard.SortDescending
		}
		if err := conf.Validate(); err != nil {
			return gimlet.ErrorResponse{
				StatusCode: http.StatusBadRequest,
				Message:    err.Error(),
			}
		}
		h.sort = &conf
	}

	return nil
}

// Run returns the matching results in insertion order, or sorted when a sort
// key was requested.
func (h *resultsGetByTestIDHandler) Run(ctx context.Context) gimlet.Responder {
	results, err := h.sc.FetchResults(ctx, h.query)
	if err != nil {
		return errorResponder(ctx, errors.Wrapf(err, "problem getting results for test '%s'", h.query.TestID), "/tests/{test_id}/results", message.Fields{
			"test_id":  h.query.TestID,
			"plant":    h.query.Plant,
			"branches": h.query.Branches,
		})
	}

	if h.sort != nil {
		results = dashboard.SortResults(results, h.sort.Key, h.sort.Direction)
	}

	apiResults, err := model.ImportTestResults(results)
	if err != nil {
		return gimlet.MakeJSONInternalErrorResponder(errors.Wrap(err, "problem converting results"))
	}

	return gimlet.NewJSONResponse(apiResults)
}

///////////////////////////////////////////////////////////////////////////////
//
// POST /view

type viewHandler struct {
	selection *dashboard.Selection
	sc        data.Connector
}

func makeResultsView(sc data.Connector) gimlet.RouteHandler {
	return &viewHandler{sc: sc}
}

// Factory returns a pointer to a new viewHandler.
func (h *viewHandler) Factory() gimlet.RouteHandler {
	return &viewHandler{sc: h.sc}
}

// Parse reads the selection from the request body. Fields missing from the
// body keep their default values.
func (h *viewHandler) Parse(_ context.Context, r *http.Request) error {
	body := utility.NewRequestReader(r)
	defer body.Close()

	sel := dashboard.NewSelection("")
	if err := utility.ReadJSON(body, sel); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    errors.Wrap(err, "problem reading selection").Error(),
		}
	}
	if err := sel.Validate(); err != nil {
		return gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    errors.Wrap(err, "invalid selection").Error(),
		}
	}
	h.selection = sel

	return nil
}

// Run refreshes a view of the selection and returns the derived chart, table
// and comparison data.
func (h *viewHandler) Run(ctx context.Context) gimlet.Responder {
	view, err := dashboard.NewView(h.sc, h.selection)
	if err != nil {
		return gimlet.MakeJSONInternalErrorResponder(err)
	}

	viewData, err := view.Refresh(ctx)
	if err != nil {
		return errorResponder(ctx, err, "/view", message.Fields{"test_id": h.selection.Test})
	}

	return gimlet.NewJSONResponse(viewData)
}
