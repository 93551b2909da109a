package data

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm"
	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/evergreen-ci/perffarm/testutils"
	"github.com/mongodb/amboy"
	"github.com/stretchr/testify/suite"
)

const testDBName = "perffarm_test_rest_data"

type connectorSuite struct {
	ctx    context.Context
	cancel context.CancelFunc
	env    perffarm.Environment
	sc     Connector
	setup  func(*connectorSuite)

	suite.Suite
}

func TestDBConnectorSuite(t *testing.T) {
	s := &connectorSuite{}
	s.setup = func(s *connectorSuite) {
		s.env = testutils.NewEnvironment(s.T(), testDBName)
		_, err := dbmodel.DefaultFixtures().Load(s.ctx, s.env)
		s.Require().NoError(err)
		s.sc = CreateDBConnector(s.env)
	}
	suite.Run(t, s)
}

func TestMockConnectorSuite(t *testing.T) {
	s := &connectorSuite{}
	s.setup = func(s *connectorSuite) {
		sc, err := NewMockConnector(nil)
		s.Require().NoError(err)
		s.sc = sc
	}
	suite.Run(t, s)
}

func (s *connectorSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.setup(s)
}

func (s *connectorSuite) TearDownSuite() {
	if s.env != nil {
		amboy.WaitInterval(s.ctx, s.env.GetQueue(), 10*time.Millisecond)
	}
	s.cancel()
}

func (s *connectorSuite) requireStatus(err error, status int) {
	s.Require().Error(err)
	resp, ok := err.(gimlet.ErrorResponse)
	s.Require().True(ok, "%T", err)
	s.Equal(status, resp.StatusCode)
}

func (s *connectorSuite) TestGetBranches() {
	branches, err := s.sc.GetBranches(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(branches, 10)
	s.Equal("REL_13_STABLE", branches[0])
	s.Equal("FEATURE_B", branches[9])

	branches[0] = "changed"
	again, err := s.sc.GetBranches(s.ctx)
	s.Require().NoError(err)
	s.Equal("REL_13_STABLE", again[0])
}

func (s *connectorSuite) TestGetPlants() {
	plants, err := s.sc.GetPlants(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(plants, 3)
	names := []string{}
	for _, p := range plants {
		names = append(names, model.FromAPIString(p.Name))
	}
	s.Equal([]string{"Plant A", "Plant B", "Plant C"}, names)
}

func (s *connectorSuite) TestFindPlantByName() {
	plant, err := s.sc.FindPlantByName(s.ctx, "Plant B")
	s.Require().NoError(err)
	s.Equal("Admin2", model.FromAPIString(plant.Admin))
	s.Equal("host2.example.com", model.FromAPIString(plant.Host))

	_, err = s.sc.FindPlantByName(s.ctx, "Plant Z")
	s.requireStatus(err, http.StatusNotFound)
}

func (s *connectorSuite) TestGetPerformanceTests() {
	tests, err := s.sc.GetPerformanceTests(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(tests, 4)
	s.Equal("dbt2", model.FromAPIString(tests[0].ID))
	s.Equal("Database Test 2", model.FromAPIString(tests[0].Name))
	s.Equal("OLTP", model.FromAPIString(tests[0].Kind))
}

func (s *connectorSuite) TestFindPerformanceTestByID() {
	test, err := s.sc.FindPerformanceTestByID(s.ctx, "dbt2")
	s.Require().NoError(err)
	s.Equal("dbt2", model.FromAPIString(test.ID))
	s.Equal([]string{"Plant A", "Plant B", "Plant C"}, test.Plants)

	test, err = s.sc.FindPerformanceTestByID(s.ctx, "dbt3")
	s.Require().NoError(err)
	s.Empty(test.Plants)

	_, err = s.sc.FindPerformanceTestByID(s.ctx, "dbt9")
	s.requireStatus(err, http.StatusNotFound)
}

func (s *connectorSuite) TestFetchResults() {
	for name, test := range map[string]struct {
		query    dbmodel.ResultsQuery
		expected []int
	}{
		"AllResults": {
			query:    dbmodel.ResultsQuery{TestID: "dbt2"},
			expected: []int{101, 102, 103, 201, 202, 203, 301, 302, 303},
		},
		"Plant": {
			query:    dbmodel.ResultsQuery{TestID: "dbt2", Plant: "Plant A"},
			expected: []int{101, 201, 301},
		},
		"Branches": {
			query:    dbmodel.ResultsQuery{TestID: "dbt2", Branches: []string{"REL_15_STABLE", "REL_13_STABLE"}},
			expected: []int{101, 102, 103, 301, 302, 303},
		},
		"PlantAndBranch": {
			query:    dbmodel.ResultsQuery{TestID: "dbt2", Plant: "Plant C", Branches: []string{"REL_14_STABLE"}},
			expected: []int{203},
		},
		"NoResults": {
			query:    dbmodel.ResultsQuery{TestID: "dbt3"},
			expected: []int{},
		},
	} {
		s.Run(name, func() {
			results, err := s.sc.FetchResults(s.ctx, test.query)
			s.Require().NoError(err)
			builds := []int{}
			for _, r := range results {
				builds = append(builds, r.BuildNumber)
			}
			s.Equal(test.expected, builds)
		})
	}

	_, err := s.sc.FetchResults(s.ctx, dbmodel.ResultsQuery{TestID: "dbt9"})
	s.requireStatus(err, http.StatusNotFound)

	_, err = s.sc.FetchResults(s.ctx, dbmodel.ResultsQuery{})
	s.requireStatus(err, http.StatusBadRequest)
}

func (s *connectorSuite) TestScheduleJobs() {
	id, err := s.sc.ScheduleFixtureLoad(s.ctx, "")
	s.Require().NoError(err)
	s.Contains(id, "load-fixtures.")

	id, err = s.sc.ScheduleSnapshotExport(s.ctx, "dbt2")
	s.Require().NoError(err)
	s.Contains(id, "export-snapshot.dbt2.")

	_, err = s.sc.ScheduleSnapshotExport(s.ctx, "dbt9")
	s.requireStatus(err, http.StatusNotFound)
}
