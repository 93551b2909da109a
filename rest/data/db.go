package data

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/evergreen-ci/gimlet"
	"github.com/evergreen-ci/perffarm"
	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/model"
	"github.com/evergreen-ci/perffarm/units"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/amboy"
	"github.com/mongodb/anser/db"
	"github.com/pkg/errors"
)

/////////////////////////////
// DBConnector Implementation
/////////////////////////////

// cached returns the value stored in the environment cache under key,
// populating the cache with fetch when the entry is missing or expired.
func (dbc *DBConnector) cached(key string, fetch func() (interface{}, error)) (interface{}, error) {
	cache, ok := dbc.env.GetCache()
	if ok {
		if val, found := cache.Get(key); found {
			return val, nil
		}
	}

	val, err := fetch()
	if err != nil {
		return nil, err
	}
	if ok {
		cache.Put(key, val)
	}

	return val, nil
}

func (dbc *DBConnector) GetBranches(ctx context.Context) ([]string, error) {
	val, err := dbc.cached(perffarm.BranchesCacheKey, func() (interface{}, error) {
		return dbmodel.FindBranches(ctx, dbc.env)
	})
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrap(err, "problem fetching branches").Error(),
		}
	}

	return append([]string{}, val.([]string)...), nil
}

func (dbc *DBConnector) GetPlants(ctx context.Context) ([]model.APIPlant, error) {
	val, err := dbc.cached(perffarm.PlantsCacheKey, func() (interface{}, error) {
		return dbmodel.FindPlants(ctx, dbc.env)
	})
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrap(err, "problem fetching plants").Error(),
		}
	}

	return importPlants(val.([]dbmodel.Plant))
}

func (dbc *DBConnector) FindPlantByName(ctx context.Context, name string) (*model.APIPlant, error) {
	plant := dbmodel.Plant{Name: name}
	plant.Setup(dbc.env)
	if err := plant.Find(ctx); err != nil {
		if db.ResultsNotFound(errors.Cause(err)) {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusNotFound,
				Message:    fmt.Sprintf("plant '%s' not found", name),
			}
		}
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "problem fetching plant '%s'", name).Error(),
		}
	}

	apiPlant := &model.APIPlant{}
	if err := apiPlant.Import(plant); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "corrupt data for plant '%s'", name).Error(),
		}
	}

	return apiPlant, nil
}

func (dbc *DBConnector) performanceTests(ctx context.Context) ([]dbmodel.PerformanceTest, error) {
	val, err := dbc.cached(perffarm.TestsCacheKey, func() (interface{}, error) {
		return dbmodel.FindPerformanceTests(ctx, dbc.env)
	})
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrap(err, "problem fetching performance tests").Error(),
		}
	}

	return val.([]dbmodel.PerformanceTest), nil
}

func (dbc *DBConnector) GetPerformanceTests(ctx context.Context) ([]model.APIPerformanceTest, error) {
	tests, err := dbc.performanceTests(ctx)
	if err != nil {
		return nil, err
	}

	return importPerformanceTests(tests)
}

func (dbc *DBConnector) FindPerformanceTestByID(ctx context.Context, id string) (*model.APIPerformanceTest, error) {
	test := dbmodel.PerformanceTest{ID: id}
	test.Setup(dbc.env)
	if err := test.Find(ctx); err != nil {
		if db.ResultsNotFound(errors.Cause(err)) {
			return nil, testNotFound(id)
		}
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "problem fetching performance test '%s'", id).Error(),
		}
	}

	plants, err := test.Plants(ctx)
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "problem fetching plants for performance test '%s'", id).Error(),
		}
	}

	apiTest := &model.APIPerformanceTest{}
	if err = apiTest.Import(test); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "corrupt data for performance test '%s'", id).Error(),
		}
	}
	apiTest.Plants = plants

	return apiTest, nil
}

func (dbc *DBConnector) testExists(ctx context.Context, id string) error {
	tests, err := dbc.performanceTests(ctx)
	if err != nil {
		return err
	}
	for _, t := range tests {
		if t.ID == id {
			return nil
		}
	}

	return testNotFound(id)
}

func (dbc *DBConnector) FetchResults(ctx context.Context, query dbmodel.ResultsQuery) ([]dbmodel.TestResult, error) {
	if err := query.Validate(); err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusBadRequest,
			Message:    err.Error(),
		}
	}
	if err := dbc.testExists(ctx, query.TestID); err != nil {
		return nil, err
	}

	results, err := dbmodel.FindTestResults(ctx, dbc.env, query)
	if err != nil {
		return nil, gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "problem fetching results for test '%s'", query.TestID).Error(),
		}
	}

	return results, nil
}

func (dbc *DBConnector) ScheduleFixtureLoad(ctx context.Context, path string) (string, error) {
	return dbc.schedule(ctx, units.NewLoadFixturesJob(dbc.env, path, utility.RandomString()))
}

func (dbc *DBConnector) ScheduleSnapshotExport(ctx context.Context, testID string) (string, error) {
	if err := dbc.testExists(ctx, testID); err != nil {
		return "", err
	}

	return dbc.schedule(ctx, units.NewExportSnapshotJob(dbc.env, testID, time.Now()))
}

func (dbc *DBConnector) schedule(ctx context.Context, j amboy.Job) (string, error) {
	queue := dbc.env.GetQueue()
	if queue == nil {
		return "", gimlet.ErrorResponse{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "no queue available",
		}
	}

	if err := queue.Put(ctx, j); err != nil {
		if amboy.IsDuplicateJobError(err) {
			return "", gimlet.ErrorResponse{
				StatusCode: http.StatusConflict,
				Message:    fmt.Sprintf("job '%s' is already scheduled", j.ID()),
			}
		}
		return "", gimlet.ErrorResponse{
			StatusCode: http.StatusInternalServerError,
			Message:    errors.Wrapf(err, "problem scheduling job '%s'", j.ID()).Error(),
		}
	}

	return j.ID(), nil
}

func testNotFound(id string) error {
	return gimlet.ErrorResponse{
		StatusCode: http.StatusNotFound,
		Message:    fmt.Sprintf("performance test '%s' not found", id),
	}
}

func importPlants(plants []dbmodel.Plant) ([]model.APIPlant, error) {
	apiPlants := make([]model.APIPlant, len(plants))
	for i := range plants {
		if err := apiPlants[i].Import(plants[i]); err != nil {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Message:    errors.Wrap(err, "corrupt data for plants").Error(),
			}
		}
	}

	return apiPlants, nil
}

func importPerformanceTests(tests []dbmodel.PerformanceTest) ([]model.APIPerformanceTest, error) {
	apiTests := make([]model.APIPerformanceTest, len(tests))
	for i := range tests {
		if err := apiTests[i].Import(tests[i]); err != nil {
			return nil, gimlet.ErrorResponse{
				StatusCode: http.StatusInternalServerError,
				Message:    errors.Wrap(err, "corrupt data for performance tests").Error(),
			}
		}
	}

	return apiTests, nil
}
