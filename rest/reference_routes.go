package rest

import (
	"context"
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

///////////////////////////////////////////////////////////////////////////////
//
// GET /branches

type branchesGetHandler struct {
	sc data.Connector
}

func makeGetBranches(sc data.Connector) gimlet.RouteHandler {
	return &branchesGetHandler{sc: sc}
}

func (h *branchesGetHandler) Factory() gimlet.RouteHandler {
	return &branchesGetHandler{sc: h.sc}
}

func (h *branchesGetHandler) Parse(_ context.Context, _ *http.Request) error { return nil }

// Run returns the known branches in display order.
func (h *branchesGetHandler) Run(ctx context.Context) gimlet.Responder {
	branches, err := h.sc.GetBranches(ctx)
	if err != nil {
		return errorResponder(ctx, errors.Wrap(err, "problem getting branches"), "/branches", nil)
	}

	return gimlet.NewJSONResponse(branches)
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /plants

type plantsGetHandler struct {
	sc data.Connector
}

func makeGetPlants(sc data.Connector) gimlet.RouteHandler {
	return &plantsGetHandler{sc: sc}
}

func (h *plantsGetHandler) Factory() gimlet.RouteHandler {
	return &plantsGetHandler{sc: h.sc}
}

func (h *plantsGetHandler) Parse(_ context.Context, _ *http.Request) error { return nil }

func (h *plantsGetHandler) Run(ctx context.Context) gimlet.Responder {
	plants, err := h.sc.GetPlants(ctx)
	if err != nil {
		return errorResponder(ctx, errors.Wrap(err, "problem getting plants"), "/plants", nil)
	}

	return gimlet.NewJSONResponse(plants)
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /plants/{name}

type plantGetByNameHandler struct {
	name string
	sc   data.Connector
}

func makeGetPlantByName(sc data.Connector) gimlet.RouteHandler {
	return &plantGetByNameHandler{sc: sc}
}

func (h *plantGetByNameHandler) Factory() gimlet.RouteHandler {
	return &plantGetByNameHandler{sc: h.sc}
}

// Parse fetches the plant name from the http request.
func (h *plantGetByNameHandler) Parse(_ context.Context, r *http.Request) error {
	h.name = gimlet.GetVars(r)["name"]
	return nil
}

func (h *plantGetByNameHandler) Run(ctx context.Context) gimlet.Responder {
	plant, err := h.sc.FindPlantByName(ctx, h.name)
	if err != nil {
		return errorResponder(ctx, errors.Wrapf(err, "problem getting plant '%s'", h.name), "/plants/{name}", message.Fields{"plant": h.name})
	}

	return gimlet.NewJSONResponse(plant)
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /tests

type testsGetHandler struct {
	sc data.Connector
}

func makeGetPerformanceTests(sc data.Connector) gimlet.RouteHandler {
	return &testsGetHandler{sc: sc}
}

func (h *testsGetHandler) Factory() gimlet.RouteHandler {
	return &testsGetHandler{sc: h.sc}
}

func (h *testsGetHandler) Parse(_ context.Context, _ *http.Request) error { return nil }

func (h *testsGetHandler) Run(ctx context.Context) gimlet.Responder {
	tests, err := h.sc.GetPerformanceTests(ctx)
	if err != nil {
		return errorResponder(ctx, errors.Wrap(err, "problem getting performance tests"), "/tests", nil)
	}

	return gimlet.NewJSONResponse(tests)
}

///////////////////////////////////////////////////////////////////////////////
//
// GET /tests/{test_id}

type testGetByIDHandler struct {
	id string
	sc data.Connector
}

func makeGetPerformanceTestByID(sc data.Connector) gimlet.RouteHandler {
	return &testGetByIDHandler{sc: sc}
}

func (h *testGetByIDHandler) Factory() gimlet.RouteHandler {
	return &testGetByIDHandler{sc: h.sc}
}

// Parse fetches the test_id from the http request.
func (h *testGetByIDHandler) Parse(_ context.Context, r *http.Request) error {
	h.id = gimlet.GetVars(r)["test_id"]
	return nil
}

// Run returns the performance test and the plants it has results for.
func (h *testGetByIDHandler) Run(ctx context.Context) gimlet.Responder {
	test, err := h.sc.FindPerformanceTestByID(ctx, h.id)
	if err != nil {
		return errorResponder(ctx, errors.Wrapf(err, "problem getting performance test '%s'", h.id), "/tests/{test_id}", message.Fields{"test_id": h.id})
	}

	return gimlet.NewJSONResponse(test)
}

// errorResponder logs a failed request and converts err into a responder,
// keeping the status code of a wrapped gimlet.ErrorResponse.
func errorResponder(ctx context.Context, err error, route string, fields message.Fields) gimlet.Responder {
	msg := message.Fields{
		"request": gimlet.GetRequestID(ctx),
		"route":   route,
	}
	for k, v := range fields {
		msg[k] = v
	}

	logRequestError(err, msg)

	resp, ok := errors.Cause(err).(gimlet.ErrorResponse)
	if !ok {
		return gimlet.MakeJSONInternalErrorResponder(err)
	}

	return gimlet.MakeJSONErrorResponder(gimlet.ErrorResponse{
		StatusCode: resp.StatusCode,
		Message:    err.Error(),
	})
}
