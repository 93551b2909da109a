package model

import (
	"context"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/util"
	"github.com/mongodb/anser/db"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// FixtureSet is a self-contained set of reference data and results used to
// seed the database.
type FixtureSet struct {
	Branches []string          `json:"branches" yaml:"branches"`
	Plants   []Plant           `json:"plants" yaml:"plants"`
	Tests    []PerformanceTest `json:"tests" yaml:"tests"`
	Results  []TestResult      `json:"results" yaml:"results"`
}

// FixtureLoadStats reports what a fixture load wrote.
type FixtureLoadStats struct {
	Branches        int `json:"branches" bson:"branches"`
	Plants          int `json:"plants" bson:"plants"`
	Tests           int `json:"tests" bson:"tests"`
	ResultsInserted int `json:"results_inserted" bson:"results_inserted"`
	ResultsSkipped  int `json:"results_skipped" bson:"results_skipped"`
}

func fixtureDay(month time.Month, day int) time.Time {
	return time.Date(2024, month, day, 0, 0, 0, 0, time.UTC)
}

// DefaultFixtures returns the built in sample data set. The returned value is
// a fresh copy on every call.
func DefaultFixtures() *FixtureSet {
	set := &FixtureSet{
		Branches: []string{
			"REL_13_STABLE",
			"REL_14_STABLE",
			"REL_15_STABLE",
			"REL_16_STABLE",
			"REL_17_STABLE",
			"main",
			"DEVEL",
			"TESTING",
			"FEATURE_A",
			"FEATURE_B",
		},
		Plants: []Plant{
			{Name: "Plant A", Admin: "Admin1", Host: "host1.example.com", ResultCount: 156},
			{Name: "Plant B", Admin: "Admin2", Host: "host2.example.com", ResultCount: 234},
			{Name: "Plant C", Admin: "Admin3", Host: "host3.example.com", ResultCount: 189},
		},
		Tests: []PerformanceTest{
			{ID: "dbt2", Name: "Database Test 2", Description: "OLTP workload", Kind: TestKindOLTP},
			{ID: "dbt3", Name: "Database Test 3", Description: "Decision support workload", Kind: TestKindDSS},
			{ID: "dbt5", Name: "Database Test 5", Description: "OLTP brokerage workload", Kind: TestKindOLTP},
			{ID: "dbt7", Name: "Database Test 7", Description: "Decision support workload with data maintenance", Kind: TestKindDSS},
		},
		Results: []TestResult{
			{TestID: "dbt2", BuildNumber: 101, Plant: "Plant A", Branch: "REL_13_STABLE", Revision: "3850fcca69b5", Metric: 564578.0, Timestamp: fixtureDay(time.February, 1), Description: "Improve query performance"},
			{TestID: "dbt2", BuildNumber: 102, Plant: "Plant B", Branch: "REL_13_STABLE", Revision: "9061fd23c28f", Metric: 557362.69, Timestamp: fixtureDay(time.February, 15), Description: "Optimize hash joins"},
			{TestID: "dbt2", BuildNumber: 103, Plant: "Plant C", Branch: "REL_13_STABLE", Revision: "a1234567890b", Metric: 570000, Timestamp: fixtureDay(time.March, 1), Description: "Indexing improvements"},
			{TestID: "dbt2", BuildNumber: 201, Plant: "Plant A", Branch: "REL_14_STABLE", Revision: "a850fcca69b5", Metric: 580000, Timestamp: fixtureDay(time.February, 1), Description: "Enhanced indexing"},
			{TestID: "dbt2", BuildNumber: 202, Plant: "Plant B", Branch: "REL_14_STABLE", Revision: "b061fd23c28f", Metric: 585000, Timestamp: fixtureDay(time.February, 15), Description: "Memory optimization"},
			{TestID: "dbt2", BuildNumber: 203, Plant: "Plant C", Branch: "REL_14_STABLE", Revision: "b1234567890c", Metric: 590000, Timestamp: fixtureDay(time.March, 1), Description: "Query planner updates"},
			{TestID: "dbt2", BuildNumber: 301, Plant: "Plant A", Branch: "REL_15_STABLE", Revision: "c850fcca69b5", Metric: 590000, Timestamp: fixtureDay(time.February, 1), Description: "Parallel query improvements"},
			{TestID: "dbt2", BuildNumber: 302, Plant: "Plant B", Branch: "REL_15_STABLE", Revision: "d061fd23c28f", Metric: 595000, Timestamp: fixtureDay(time.February, 15), Description: "Query planner updates"},
			{TestID: "dbt2", BuildNumber: 303, Plant: "Plant C", Branch: "REL_15_STABLE", Revision: "c1234567890d", Metric: 600000, Timestamp: fixtureDay(time.March, 1), Description: "Optimizer enhancements"},
		},
	}

	if err := set.Validate(); err != nil {
		panic(errors.Wrap(err, "built in fixtures are invalid"))
	}

	return set
}

// LoadFixtureFile reads and validates a fixture set from a YAML file.
func LoadFixtureFile(path string) (*FixtureSet, error) {
	set := &FixtureSet{}
	if err := util.ReadFileYAML(path, set); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := set.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid fixtures in '%s'", path)
	}

	return set, nil
}

// WriteFixtureFile writes the fixture set to path as YAML.
func (f *FixtureSet) WriteFixtureFile(path string) error {
	return errors.Wrapf(util.WriteFileYAML(path, f), "problem writing fixtures to '%s'", path)
}

// Validate checks every record and the references between them. Result IDs
// are computed when missing.
func (f *FixtureSet) Validate() error {
	catcher := grip.NewBasicCatcher()

	branches := map[string]bool{}
	for _, b := range f.Branches {
		catcher.NewWhen(b == "", "branch names must not be empty")
		catcher.ErrorfWhen(branches[b], "duplicate branch '%s'", b)
		branches[b] = true
	}

	plants := map[string]bool{}
	for i := range f.Plants {
		p := &f.Plants[i]
		catcher.NewWhen(p.Name == "", "plant names must not be empty")
		catcher.ErrorfWhen(plants[p.Name], "duplicate plant '%s'", p.Name)
		plants[p.Name] = true
		p.populated = true
	}

	tests := map[string]bool{}
	for i := range f.Tests {
		t := &f.Tests[i]
		catcher.Wrapf(t.Validate(), "invalid test at index %d", i)
		catcher.ErrorfWhen(tests[t.ID], "duplicate test '%s'", t.ID)
		tests[t.ID] = true
		t.populated = true
	}

	ids := map[string]bool{}
	for i := range f.Results {
		r := &f.Results[i]
		if err := r.Validate(); err != nil {
			catcher.Wrapf(err, "invalid result at index %d", i)
			continue
		}
		catcher.ErrorfWhen(!tests[r.TestID], "result %d references unknown test '%s'", i, r.TestID)
		catcher.ErrorfWhen(!plants[r.Plant], "result %d references unknown plant '%s'", i, r.Plant)
		catcher.ErrorfWhen(!branches[r.Branch], "result %d references unknown branch '%s'", i, r.Branch)

		r.Timestamp = r.Timestamp.UTC()
		id := r.computeID()
		catcher.ErrorfWhen(r.ID != "" && r.ID != id, "result %d has id '%s' but should be '%s'", i, r.ID, id)
		catcher.ErrorfWhen(ids[id], "duplicate result for test '%s' plant '%s' branch '%s' build %d", r.TestID, r.Plant, r.Branch, r.BuildNumber)
		ids[id] = true
		r.ID = id
		r.populated = true
	}

	return catcher.Resolve()
}

// Load writes the fixture set to the database. Reference data is upserted;
// results whose IDs already exist are skipped, so loading is idempotent.
func (f *FixtureSet) Load(ctx context.Context, env perffarm.Environment) (FixtureLoadStats, error) {
	stats := FixtureLoadStats{}
	if err := f.Validate(); err != nil {
		return stats, errors.Wrap(err, "invalid fixtures")
	}

	if err := SaveBranches(ctx, env, f.Branches); err != nil {
		return stats, errors.WithStack(err)
	}
	stats.Branches = len(f.Branches)

	for i := range f.Plants {
		p := f.Plants[i]
		p.Setup(env)
		if err := p.Save(ctx); err != nil {
			return stats, errors.WithStack(err)
		}
		stats.Plants++
	}

	for i := range f.Tests {
		t := f.Tests[i]
		t.Setup(env)
		if err := t.Save(ctx); err != nil {
			return stats, errors.WithStack(err)
		}
		stats.Tests++
	}

	for i := range f.Results {
		existing := &TestResult{ID: f.Results[i].ID}
		existing.Setup(env)
		err := existing.Find(ctx)
		if err == nil {
			stats.ResultsSkipped++
			continue
		}
		if !db.ResultsNotFound(errors.Cause(err)) {
			return stats, errors.WithStack(err)
		}

		r := f.Results[i]
		r.Setup(env)
		if err = r.SaveNew(ctx); err != nil {
			return stats, errors.WithStack(err)
		}
		stats.ResultsInserted++
	}

	if cache, ok := env.GetCache(); ok {
		cache.Invalidate()
	}

	grip.Info(message.Fields{
		"message": "loaded fixtures",
		"stats":   stats,
	})

	return stats, nil
}
