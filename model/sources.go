package model

import (
	"context"

	"github.com/evergreen-ci/perffarm"
	"github.com/pkg/errors"
)

// ResultsSource fetches the results of one performance test. It is the only
// data access the derivation and presentation code depends on.
type ResultsSource interface {
	FetchResults(context.Context, ResultsQuery) ([]TestResult, error)
}

// DBResultsSource reads results from the database.
type DBResultsSource struct {
	env perffarm.Environment
}

// NewDBResultsSource returns a source backed by the environment's database.
func NewDBResultsSource(env perffarm.Environment) *DBResultsSource {
	return &DBResultsSource{env: env}
}

func (s *DBResultsSource) FetchResults(ctx context.Context, query ResultsQuery) ([]TestResult, error) {
	if s.env == nil {
		return nil, errors.New("cannot fetch results with a nil environment")
	}

	return FindTestResults(ctx, s.env, query)
}

// FixtureSource serves results from an in-memory fixture set.
type FixtureSource struct {
	set *FixtureSet
}

// NewFixtureSource validates the set and returns a source over it.
func NewFixtureSource(set *FixtureSet) (*FixtureSource, error) {
	if set == nil {
		return nil, errors.New("must specify a fixture set")
	}
	if err := set.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid fixture set")
	}

	return &FixtureSource{set: set}, nil
}

// FetchResults returns copies of the matching results in fixture order.
func (s *FixtureSource) FetchResults(ctx context.Context, query ResultsQuery) ([]TestResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := query.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid results query")
	}

	out := []TestResult{}
	for idx, r := range s.set.Results {
		if query.Matches(r) {
			r.Sequence = int64(idx + 1)
			out = append(out, r)
		}
	}

	return out, nil
}

// Fixtures returns the underlying fixture set.
func (s *FixtureSource) Fixtures() *FixtureSet { return s.set }

// FindTest returns the test with the given ID.
func (s *FixtureSource) FindTest(id string) (PerformanceTest, bool) {
	for _, t := range s.set.Tests {
		if t.ID == id {
			return t, true
		}
	}
	return PerformanceTest{}, false
}

// FindPlant returns the plant with the given name.
func (s *FixtureSource) FindPlant(name string) (Plant, bool) {
	for _, p := range s.set.Plants {
		if p.Name == name {
			return p, true
		}
	}
	return Plant{}, false
}
