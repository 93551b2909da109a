package model

import (
	"time"

	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/pkg/errors"
)

// APITestResult describes one performance test result.
type APITestResult struct {
	ID          APIString `json:"id"`
	TestID      APIString `json:"test_id"`
	BuildNumber int       `json:"build_number"`
	Plant       APIString `json:"plant"`
	Branch      APIString `json:"branch"`
	Revision    APIString `json:"revision"`
	Metric      float64   `json:"metric"`
	Timestamp   APITime   `json:"timestamp"`
	Description APIString `json:"description"`
}

// Import transforms a TestResult object into an APITestResult object.
func (a *APITestResult) Import(i interface{}) error {
	switch r := i.(type) {
	case dbmodel.TestResult:
		a.importResult(r)
	case *dbmodel.TestResult:
		if r == nil {
			return errors.New("cannot import a nil test result")
		}
		a.importResult(*r)
	default:
		return errors.New("incorrect type when converting to APITestResult type")
	}

	return nil
}

func (a *APITestResult) importResult(r dbmodel.TestResult) {
	a.ID = ToAPIString(r.ID)
	a.TestID = ToAPIString(r.TestID)
	a.BuildNumber = r.BuildNumber
	a.Plant = ToAPIString(r.Plant)
	a.Branch = ToAPIString(r.Branch)
	a.Revision = ToAPIString(r.Revision)
	a.Metric = r.Metric
	a.Timestamp = NewTime(r.Timestamp)
	a.Description = ToAPIString(r.Description)
}

// Export returns the database model of the result.
func (a *APITestResult) Export() (interface{}, error) {
	return a.TestResult()
}

// TestResult converts the API model back into a validated database result.
func (a *APITestResult) TestResult() (*dbmodel.TestResult, error) {
	r, err := dbmodel.CreateTestResult(
		FromAPIString(a.TestID),
		FromAPIString(a.Plant),
		FromAPIString(a.Branch),
		a.BuildNumber,
		FromAPIString(a.Revision),
		a.Metric,
		time.Time(a.Timestamp),
		FromAPIString(a.Description),
	)
	if err != nil {
		return nil, errors.Wrap(err, "invalid test result")
	}

	if id := FromAPIString(a.ID); id != "" && id != r.ID {
		return nil, errors.Errorf("test result id '%s' does not match its content", id)
	}

	return r, nil
}

// ImportTestResults converts a slice of database results.
func ImportTestResults(results []dbmodel.TestResult) ([]APITestResult, error) {
	out := make([]APITestResult, len(results))
	for i := range results {
		if err := out[i].Import(results[i]); err != nil {
			return nil, errors.Wrapf(err, "problem converting result '%s'", results[i].ID)
		}
	}

	return out, nil
}
