package rest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ClientSuite struct {
	service *Service
	sc      *data.MockConnector
	client  *Client
	server  *httptest.Server
	info    struct {
		host string
		port int
	}
	ctx    context.Context
	closer context.CancelFunc
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupSuite() {
	require := s.Require()
	s.ctx, s.closer = context.WithCancel(context.Background())

	sc, err := data.NewMockConnector(nil)
	require.NoError(err)
	s.sc = sc
	s.service = &Service{Prefix: "rest", sc: sc}
	require.NoError(s.service.Validate())

	h, err := s.service.Handler()
	require.NoError(err)
	s.server = httptest.NewServer(h)

	portStart := strings.LastIndex(s.server.URL, ":")
	port, err := strconv.Atoi(s.server.URL[portStart+1:])
	require.NoError(err)
	s.info.host = s.server.URL[:portStart]
	s.info.port = port
	grip.Infof("running test REST service at '%s', on port '%d'", s.info.host, s.info.port)
}

func (s *ClientSuite) TearDownSuite() {
	grip.Infof("closing test REST service at '%s', on port '%d'", s.info.host, s.info.port)
	s.server.Close()
	s.closer()
}

func (s *ClientSuite) SetupTest() {
	var err error
	s.client, err = NewClient(s.info.host, s.info.port, "rest")
	s.Require().NoError(err)
}

func (s *ClientSuite) TearDownTest() {
	s.client.Close()
}

////////////////////////////////////////////////////////////////////////
//
// A collection of tests that exercise and test the consistency and
// validation in the configuration interface for the REST client.
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestSetHostRequiresHttpURL() {
	example := "http://example.com"

	s.NoError(s.client.SetHost(example))
	s.Equal(example, s.client.Host())

	for _, uri := range []string{"foo", "1", "true", "htp", "ssh"} {
		s.Error(s.client.SetHost(uri))
		s.Equal(example, s.client.Host())
	}
}

func (s *ClientSuite) TestSetHostStripsTrailingSlash() {
	for _, uri := range []string{"http://foo.example.com/", "https://extra.example.net/bar/s/"} {
		s.NoError(s.client.SetHost(uri))
		s.Equal(uri[:len(uri)-1], s.client.Host())
	}
}

func (s *ClientSuite) TestSetPortRejectsInvalidPorts() {
	for _, port := range []int{0, -1, 65535, 100000} {
		s.Error(s.client.SetPort(port))
		s.Equal(defaultClientPort, s.client.Port())
	}

	s.NoError(s.client.SetPort(2289))
	s.Equal(2289, s.client.Port())
}

func (s *ClientSuite) TestURLConstruction() {
	s.Require().NoError(s.client.SetHost("http://perffarm.example.com"))
	s.Require().NoError(s.client.SetPort(8080))
	s.client.SetPrefix("/rest/")
	s.Equal("rest", s.client.Prefix())
	s.Equal("http://perffarm.example.com:8080/rest/v1/status", s.client.getURL("/status", nil))

	s.Require().NoError(s.client.SetPort(80))
	s.client.SetPrefix("")
	s.Equal("http://perffarm.example.com/v1/tests?plant=Plant+A", s.client.getURL("tests", map[string][]string{"plant": {"Plant A"}}))
}

func (s *ClientSuite) TestExistingClient() {
	_, err := NewClientFromExisting(nil, s.info.host, s.info.port, "rest")
	s.Error(err)

	client, err := NewClientFromExisting(&http.Client{}, s.info.host, s.info.port, "rest")
	s.Require().NoError(err)
	client.Close()
	_, err = client.GetStatus(s.ctx)
	s.NoError(err)
}

func (s *ClientSuite) TestClosedClient() {
	s.client.Close()
	_, err := s.client.GetStatus(s.ctx)
	s.Error(err)
}

////////////////////////////////////////////////////////////////////////
//
// Operations against the test service.
//
////////////////////////////////////////////////////////////////////////

func (s *ClientSuite) TestGetStatus() {
	status, err := s.client.GetStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal("perffarm", status.Service)
}

func (s *ClientSuite) TestReferenceData() {
	branches, err := s.client.GetBranches(s.ctx)
	s.Require().NoError(err)
	s.Len(branches, 10)

	plants, err := s.client.GetPlants(s.ctx)
	s.Require().NoError(err)
	s.Len(plants, 3)

	tests, err := s.client.GetPerformanceTests(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tests, 4)
	s.Equal("dbt2", model.FromAPIString(tests[0].ID))
}

func (s *ClientSuite) TestGetResults() {
	results, err := s.client.GetResults(s.ctx, ResultsOptions{
		TestID:   "dbt2",
		Branches: []string{"REL_14_STABLE"},
		Sort:     &dashboard.SortConfig{Key: dashboard.SortByMetric, Direction: dashboard.SortDescending},
	})
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.Equal(203, results[0].BuildNumber)
	s.Equal(201, results[2].BuildNumber)

	_, err = s.client.GetResults(s.ctx, ResultsOptions{TestID: "dbt9"})
	s.Require().Error(err)
	resp, ok := errors.Cause(err).(gimlet.ErrorResponse)
	s.Require().True(ok)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ClientSuite) TestView() {
	sel := dashboard.NewSelection("dbt2")
	sel.SelectPlant("Plant A")

	view, err := s.client.View(s.ctx, *sel)
	s.Require().NoError(err)
	s.False(view.Empty)
	s.Len(view.Records, 2)
	s.Equal("Plant A", view.Selection.Plant)

	sel.ToggleBranch("REL_13_STABLE", false)
	sel.ToggleBranch("REL_14_STABLE", false)
	view, err = s.client.View(s.ctx, *sel)
	s.Require().NoError(err)
	s.True(view.Empty)
}

func (s *ClientSuite) TestCharts() {
	png, err := s.client.GetLineChart(s.ctx, ResultsOptions{TestID: "dbt2"}, dashboard.ImageFormatPNG)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(png, []byte("\x89PNG")))

	svg, err := s.client.GetLineChart(s.ctx, ResultsOptions{TestID: "dbt2", Plant: "Plant B"}, dashboard.ImageFormatSVG)
	s.Require().NoError(err)
	s.Contains(string(svg), "<svg")

	_, err = s.client.GetLineChart(s.ctx, ResultsOptions{TestID: "dbt2", Branches: []string{"DEVEL"}}, dashboard.ImageFormatPNG)
	s.Error(err)

	png, err = s.client.GetComparisonChart(s.ctx, "dbt2", map[string]string{"Plant C": "REL_13_STABLE"}, dashboard.ImageFormatPNG)
	s.Require().NoError(err)
	s.True(bytes.HasPrefix(png, []byte("\x89PNG")))
}

func (s *ClientSuite) TestJobs() {
	before := len(s.sc.ScheduledJobs)

	id, err := s.client.LoadFixtures(s.ctx, "")
	s.Require().NoError(err)
	s.Contains(id, "load-fixtures")

	id, err = s.client.ExportSnapshot(s.ctx, "dbt2")
	s.Require().NoError(err)
	s.Contains(id, "export-snapshot.dbt2")

	_, err = s.client.ExportSnapshot(s.ctx, "dbt9")
	s.Error(err)

	s.Len(s.sc.ScheduledJobs, before+2)
}
