package rest

import (
	"context"
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

// Service serves the perffarm REST API.
type Service struct {
	Port        int
	Prefix      string
	CORSOrigins []string
	RPCServers  []string
	Environment perffarm.Environment

	// internal settings
	sc  data.Connector
	app *gimlet.APIApp
}

// Validate fills in defaults and prepares the application. Services without
// a connector read from the environment's database.
func (s *Service) Validate() error {
	if s.sc == nil {
		if s.Environment == nil {
			return errors.New("must specify an environment")
		}
		s.sc = data.CreateDBConnector(s.Environment)
	}

	if s.app == nil {
		s.app = gimlet.NewApp()
	}

	if s.Port == 0 {
		s.Port = perffarm.DefaultServicePort
	}

	if err := s.app.SetPort(s.Port); err != nil {
		return errors.WithStack(err)
	}

	if s.Prefix != "" {
		s.app.SetPrefix(s.Prefix)
	}

	s.app.AddMiddleware(gimlet.MakeRecoveryLogger())
	if len(s.CORSOrigins) > 0 {
		s.app.AddMiddleware(cors.New(cors.Options{
			AllowedOrigins: s.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
		}))
	}

	s.addRoutes()

	return nil
}

// Start resolves the routes and runs the service until the context is
// canceled.
func (s *Service) Start(ctx context.Context) error {
	if s.app == nil || s.sc == nil {
		return errors.New("application is not valid")
	}

	if err := s.app.Resolve(); err != nil {
		return errors.Wrap(err, "problem resolving routes")
	}

	return s.app.Run(ctx)
}

// Handler returns the resolved application as an http.Handler.
func (s *Service) Handler() (http.Handler, error) {
	if s.app == nil || s.sc == nil {
		return nil, errors.New("application is not valid")
	}

	h, err := s.app.Handler()
	return h, errors.Wrap(err, "problem resolving routes")
}

func (s *Service) addRoutes() {
	s.app.AddRoute("/status").Version(1).Get().Handler(s.statusHandler)

	s.app.AddRoute("/branches").Version(1).Get().RouteHandler(makeGetBranches(s.sc))
	s.app.AddRoute("/plants").Version(1).Get().RouteHandler(makeGetPlants(s.sc))
	s.app.AddRoute("/plants/{name}").Version(1).Get().RouteHandler(makeGetPlantByName(s.sc))
	s.app.AddRoute("/tests").Version(1).Get().RouteHandler(makeGetPerformanceTests(s.sc))
	s.app.AddRoute("/tests/{test_id}").Version(1).Get().RouteHandler(makeGetPerformanceTestByID(s.sc))
	s.app.AddRoute("/tests/{test_id}/results").Version(1).Get().RouteHandler(makeGetResultsByTestID(s.sc))
	s.app.AddRoute("/tests/{test_id}/chart").Version(1).Get().Handler(s.lineChart)
	s.app.AddRoute("/tests/{test_id}/comparison/chart").Version(1).Get().Handler(s.comparisonChart)
	s.app.AddRoute("/view").Version(1).Post().RouteHandler(makeResultsView(s.sc))

	s.app.AddRoute("/admin/fixtures").Version(1).Post().RouteHandler(makeLoadFixtures(s.sc))
	s.app.AddRoute("/admin/export/{test_id}").Version(1).Post().RouteHandler(makeExportSnapshot(s.sc))
}
