package model

import (
	dbmodel "github.com/evergreen-ci/perffarm/model"
	"github.com/pkg/errors"
)

// APIPlant describes a test host of the performance farm.
type APIPlant struct {
	Name        APIString `json:"name"`
	Admin       APIString `json:"admin"`
	Host        APIString `json:"host"`
	ResultCount int       `json:"result_count"`
}

// Import transforms a Plant object into an APIPlant object.
func (a *APIPlant) Import(i interface{}) error {
	var p dbmodel.Plant
	switch v := i.(type) {
	case dbmodel.Plant:
		p = v
	case *dbmodel.Plant:
		if v == nil {
			return errors.New("cannot import a nil plant")
		}
		p = *v
	default:
		return errors.New("incorrect type when converting to APIPlant type")
	}

	a.Name = ToAPIString(p.Name)
	a.Admin = ToAPIString(p.Admin)
	a.Host = ToAPIString(p.Host)
	a.ResultCount = p.ResultCount

	return nil
}

func (a *APIPlant) Export() (interface{}, error) {
	return nil, errors.New("Export is not implemented for APIPlant")
}

// APIPerformanceTest describes a performance test and the plants it ran on.
type APIPerformanceTest struct {
	ID          APIString `json:"id"`
	Name        APIString `json:"name"`
	Description APIString `json:"description"`
	Kind        APIString `json:"kind"`
	Plants      []string  `json:"plants,omitempty"`
}

// Import transforms a PerformanceTest object into an APIPerformanceTest
// object.
func (a *APIPerformanceTest) Import(i interface{}) error {
	var t dbmodel.PerformanceTest
	switch v := i.(type) {
	case dbmodel.PerformanceTest:
		t = v
	case *dbmodel.PerformanceTest:
		if v == nil {
			return errors.New("cannot import a nil performance test")
		}
		t = *v
	default:
		return errors.New("incorrect type when converting to APIPerformanceTest type")
	}

	a.ID = ToAPIString(t.ID)
	a.Name = ToAPIString(t.Name)
	a.Description = ToAPIString(t.Description)
	a.Kind = ToAPIString(string(t.Kind))

	return nil
}

func (a *APIPerformanceTest) Export() (interface{}, error) {
	return nil, errors.New("Export is not implemented for APIPerformanceTest")
}
