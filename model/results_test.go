package model

import (
	"context"
	"testing"
	"time"

	"github.com/evergreen-ci/perffarm/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestResult(t *testing.T) {
	ts := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	for name, test := range map[string]func(*testing.T){
		"Valid": func(t *testing.T) {
			r, err := CreateTestResult("dbt2", "Plant A", "REL_13_STABLE", 101, "3850fcca69b5", 564578, ts, "Improve query performance")
			require.NoError(t, err)
			assert.False(t, r.IsNil())
			assert.Equal(t, TestResultID("dbt2", "Plant A", "REL_13_STABLE", 101), r.ID)
			assert.Equal(t, ts, r.Timestamp)
		},
		"MissingTest": func(t *testing.T) {
			r, err := CreateTestResult("", "Plant A", "REL_13_STABLE", 101, "", 1, ts, "")
			assert.Error(t, err)
			assert.Nil(t, r)
		},
		"MissingPlant": func(t *testing.T) {
			r, err := CreateTestResult("dbt2", "", "REL_13_STABLE", 101, "", 1, ts, "")
			assert.Error(t, err)
			assert.Nil(t, r)
		},
		"MissingBranch": func(t *testing.T) {
			r, err := CreateTestResult("dbt2", "Plant A", "", 101, "", 1, ts, "")
			assert.Error(t, err)
			assert.Nil(t, r)
		},
		"InvalidBuildNumber": func(t *testing.T) {
			r, err := CreateTestResult("dbt2", "Plant A", "REL_13_STABLE", 0, "", 1, ts, "")
			assert.Error(t, err)
			assert.Nil(t, r)
		},
		"ZeroTimestamp": func(t *testing.T) {
			r, err := CreateTestResult("dbt2", "Plant A", "REL_13_STABLE", 101, "", 1, time.Time{}, "")
			assert.Error(t, err)
			assert.Nil(t, r)
		},
	} {
		t.Run(name, test)
	}
}

func TestTestResultID(t *testing.T) {
	id := TestResultID("dbt2", "Plant A", "REL_13_STABLE", 101)
	assert.Equal(t, id, TestResultID("dbt2", "Plant A", "REL_13_STABLE", 101))
	assert.Len(t, id, 40)

	assert.NotEqual(t, id, TestResultID("dbt3", "Plant A", "REL_13_STABLE", 101))
	assert.NotEqual(t, id, TestResultID("dbt2", "Plant B", "REL_13_STABLE", 101))
	assert.NotEqual(t, id, TestResultID("dbt2", "Plant A", "REL_14_STABLE", 101))
	assert.NotEqual(t, id, TestResultID("dbt2", "Plant A", "REL_13_STABLE", 102))

	t.Run("AdjacentFieldsDoNotCollide", func(t *testing.T) {
		assert.NotEqual(t, TestResultID("dbt2", "Plant A", "X1", 23), TestResultID("dbt2", "Plant A", "X12", 3))
		assert.NotEqual(t, TestResultID("dbt2", "Plant A1", "X", 1), TestResultID("dbt2", "Plant A", "1X", 1))
		assert.NotEqual(t, TestResultID("dbt", "2Plant A", "X", 1), TestResultID("dbt2", "Plant A", "X", 1))
	})
	t.Run("FixtureSetAcceptsFormerlyCollidingResults", func(t *testing.T) {
		set := DefaultFixtures()
		set.Branches = append(set.Branches, "X1", "X12")
		ts := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
		set.Results = append(set.Results,
			TestResult{TestID: "dbt2", Plant: "Plant A", Branch: "X1", BuildNumber: 23, Metric: 1, Timestamp: ts},
			TestResult{TestID: "dbt2", Plant: "Plant A", Branch: "X12", BuildNumber: 3, Metric: 2, Timestamp: ts},
		)
		assert.NoError(t, set.Validate())
	})
}

func TestResultsQueryMatches(t *testing.T) {
	r := TestResult{TestID: "dbt2", Plant: "Plant A", Branch: "REL_13_STABLE"}

	for name, test := range map[string]struct {
		query    ResultsQuery
		expected bool
	}{
		"TestOnly":          {query: ResultsQuery{TestID: "dbt2"}, expected: true},
		"OtherTest":         {query: ResultsQuery{TestID: "dbt3"}, expected: false},
		"MatchingPlant":     {query: ResultsQuery{TestID: "dbt2", Plant: "Plant A"}, expected: true},
		"OtherPlant":        {query: ResultsQuery{TestID: "dbt2", Plant: "Plant B"}, expected: false},
		"MatchingBranch":    {query: ResultsQuery{TestID: "dbt2", Branches: []string{"REL_14_STABLE", "REL_13_STABLE"}}, expected: true},
		"OtherBranches":     {query: ResultsQuery{TestID: "dbt2", Branches: []string{"REL_14_STABLE"}}, expected: false},
		"AllConstraintsMet": {query: ResultsQuery{TestID: "dbt2", Plant: "Plant A", Branches: []string{"REL_13_STABLE"}}, expected: true},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.query.Matches(r))
		})
	}

	assert.Error(t, ResultsQuery{}.Validate())
}

func TestTestResultStorage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testutils.NewEnvironment(t, "perffarm_test_model_results")

	ts := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	first, err := CreateTestResult("dbt2", "Plant A", "REL_13_STABLE", 101, "3850fcca69b5", 564578, ts, "Improve query performance")
	require.NoError(t, err)
	second, err := CreateTestResult("dbt2", "Plant B", "REL_14_STABLE", 202, "b061fd23c28f", 585000, ts.Add(-24*time.Hour), "Memory optimization")
	require.NoError(t, err)
	other, err := CreateTestResult("dbt3", "Plant A", "REL_13_STABLE", 101, "3850fcca69b5", 1000, ts, "")
	require.NoError(t, err)

	t.Run("SaveWithoutEnvironmentFails", func(t *testing.T) {
		r := *first
		r.env = nil
		assert.Error(t, r.SaveNew(ctx))
	})
	t.Run("SaveUnpopulatedFails", func(t *testing.T) {
		r := &TestResult{ID: "foo"}
		r.Setup(env)
		assert.Error(t, r.SaveNew(ctx))
	})
	t.Run("SaveAndFind", func(t *testing.T) {
		for _, r := range []*TestResult{first, second, other} {
			r.Setup(env)
			require.NoError(t, r.SaveNew(ctx))
		}
		assert.True(t, first.Sequence < second.Sequence)
		assert.True(t, second.Sequence < other.Sequence)

		found := &TestResult{ID: first.ID}
		found.Setup(env)
		require.NoError(t, found.Find(ctx))
		assert.False(t, found.IsNil())
		assert.Equal(t, first.Metric, found.Metric)
		assert.Equal(t, first.Revision, found.Revision)
		assert.True(t, first.Timestamp.Equal(found.Timestamp))
	})
	t.Run("DuplicateSaveFails", func(t *testing.T) {
		dup, err := CreateTestResult("dbt2", "Plant A", "REL_13_STABLE", 101, "other", 1, ts, "")
		require.NoError(t, err)
		dup.Setup(env)
		assert.Error(t, dup.SaveNew(ctx))
	})
	t.Run("FindTestResultsInInsertionOrder", func(t *testing.T) {
		results, err := FindTestResults(ctx, env, ResultsQuery{TestID: "dbt2"})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, first.ID, results[0].ID)
		assert.Equal(t, second.ID, results[1].ID)
	})
	t.Run("FindTestResultsFiltered", func(t *testing.T) {
		results, err := FindTestResults(ctx, env, ResultsQuery{TestID: "dbt2", Plant: "Plant B"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, second.ID, results[0].ID)

		results, err = FindTestResults(ctx, env, ResultsQuery{TestID: "dbt2", Branches: []string{"REL_13_STABLE"}})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, first.ID, results[0].ID)
	})
	t.Run("FindTestResultsInvalidQuery", func(t *testing.T) {
		_, err := FindTestResults(ctx, env, ResultsQuery{})
		assert.Error(t, err)
	})
	t.Run("CountResultsByPlant", func(t *testing.T) {
		counts, err := CountResultsByPlant(ctx, env)
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"Plant A": 2, "Plant B": 1}, counts)
	})
	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, other.Remove(ctx))
		found := &TestResult{ID: other.ID}
		found.Setup(env)
		assert.Error(t, found.Find(ctx))
		assert.True(t, found.IsNil())
	})
	t.Run("FindWithoutEnvironmentFails", func(t *testing.T) {
		found := &TestResult{ID: first.ID}
		assert.Error(t, found.Find(ctx))
	})
}
