package data

import (
	"context"

	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/model"
)

// Connector abstracts the link between perffarm's service and API layers,
// allowing for changes in the service architecture without forcing changes to
// the API.
type Connector interface {
	/////////////////
	// Reference Data
	/////////////////
	// GetBranches returns the known branches in display order.
	GetBranches(context.Context) ([]string, error)
	// GetPlants returns every plant of the farm.
	GetPlants(context.Context) ([]model.APIPlant, error)
	// FindPlantByName returns the plant with the given name.
	FindPlantByName(context.Context, string) (*model.APIPlant, error)
	// GetPerformanceTests returns every performance test.
	GetPerformanceTests(context.Context) ([]model.APIPerformanceTest, error)
	// FindPerformanceTestByID returns the performance test with the given
	// id, along with the plants that have results for it.
	FindPerformanceTestByID(context.Context, string) (*model.APIPerformanceTest, error)

	//////////
	// Results
	//////////
	// FetchResults returns the results matching the query in insertion
	// order. Querying an unknown test is an error. Connectors are
	// results sources for the dashboard views.
	FetchResults(context.Context, dbmodel.ResultsQuery) ([]dbmodel.TestResult, error)

	///////
	// Jobs
	///////
	// ScheduleFixtureLoad enqueues a job loading the fixture file at the
	// given path, or the built-in fixtures when the path is empty, and
	// returns the job's id.
	ScheduleFixtureLoad(context.Context, string) (string, error)
	// ScheduleSnapshotExport enqueues a job exporting the given test's
	// results and charts and returns the job's id.
	ScheduleSnapshotExport(context.Context, string) (string, error)
}
