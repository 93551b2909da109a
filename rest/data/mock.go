package data

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/evergreen-ci/gimlet"
	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/pkg/errors"
)

///////////////////////////////
// MockConnector Implementation
///////////////////////////////

// MockConnector is a Connector backed by an in-memory fixture set. Scheduled
// jobs are recorded rather than run.
type MockConnector struct {
	Source        *dbmodel.FixtureSource
	ScheduledJobs []string
}

// NewMockConnector returns a connector over the given fixture set, or over
// the built-in fixtures when set is nil.
func NewMockConnector(set *dbmodel.FixtureSet) (*MockConnector, error) {
	if set == nil {
		set = dbmodel.DefaultFixtures()
	}
	source, err := dbmodel.NewFixtureSource(set)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &MockConnector{Source: source}, nil
}

func (mc *MockConnector) GetBranches(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return append([]string{}, mc.Source.Fixtures().Branches...), nil
}

func (mc *MockConnector) GetPlants(ctx context.Context) ([]model.APIPlant, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return importPlants(mc.Source.Fixtures().Plants)
}

func (mc *MockConnector) FindPlantByName(ctx context.Context, name string) (*model.APIPlant, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	plant, ok := mc.Source.FindPlant(name)
	if !ok {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("plant '%s' not found", name),
		}
	}

	apiPlant := &model.APIPlant{}
	if err := apiPlant.Import(plant); err != nil {
		return nil, errors.WithStack(err)
	}

	return apiPlant, nil
}

func (mc *MockConnector) GetPerformanceTests(ctx context.Context) ([]model.APIPerformanceTest, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	return importPerformanceTests(mc.Source.Fixtures().Tests)
}

func (mc *MockConnector) FindPerformanceTestByID(ctx context.Context, id string) (*model.APIPerformanceTest, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	test, ok := mc.Source.FindTest(id)
	if !ok {
		return nil, testNotFound(id)
	}

	apiTest := &model.APIPerformanceTest{}
	if err := apiTest.Import(test); err != nil {
		return nil, errors.WithStack(err)
	}

	seen := map[string]bool{}
	for _, r := range mc.Source.Fixtures().Results {
		if r.TestID == id && !seen[r.Plant] {
			seen[r.Plant] = true
			apiTest.Plants = append(apiTest.Plants, r.Plant)
		}
	}
	sort.Strings(apiTest.Plants)

	return apiTest, nil
}

func (mc *MockConnector) FetchResults(ctx context.Context, query dbmodel.ResultsQuery) ([]dbmodel.TestResult, error) {
	if err := query.Validate(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
	}
	if _, ok := mc.Source.FindTest(query.TestID); !ok {
		return nil, testNotFound(query.TestID)
	}

	return mc.Source.FetchResults(ctx, query)
}

func (mc *MockConnector) ScheduleFixtureLoad(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}

	id := fmt.Sprintf("load-fixtures.%d", len(mc.ScheduledJobs))
	mc.ScheduledJobs = append(mc.ScheduledJobs, id)

	return id, nil
}

func (mc *MockConnector) ScheduleSnapshotExport(ctx context.Context, testID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	if _, ok := mc.Source.FindTest(testID); !ok {
		return "", testNotFound(testID)
	}

	id := fmt.Sprintf("export-snapshot.%s.%d", testID, len(mc.ScheduledJobs))
	mc.ScheduledJobs = append(mc.ScheduledJobs, id)

	return id, nil
}
