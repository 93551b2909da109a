package dashboard

import (
	"math"
	"testing"
	"time"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureResults(t *testing.T) []model.TestResult {
	set := model.DefaultFixtures()
	require.NoError(t, set.Validate())
	return set.Results
}

func buildNumbers(records []model.TestResult) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.BuildNumber
	}
	return out
}

func TestFilterResults(t *testing.T) {
	records := fixtureResults(t)
	branches := []string{"REL_13_STABLE", "REL_14_STABLE", "REL_15_STABLE", "main"}

	t.Run("EveryBranchSubset", func(t *testing.T) {
		for mask := 0; mask < 1<<len(branches); mask++ {
			selected := []string{}
			for i, b := range branches {
				if mask&(1<<i) != 0 {
					selected = append(selected, b)
				}
			}

			for _, plant := range []string{"", "Plant A", "Plant C"} {
				out := FilterResults(records, ResultFilter{Branches: selected, Plant: plant})
				assert.True(t, len(out) <= len(records))

				last := -1
				for _, r := range out {
					assert.Contains(t, selected, r.Branch)
					if plant != "" {
						assert.Equal(t, plant, r.Plant)
					}

					idx := -1
					for i := range records {
						if records[i].ID == r.ID {
							idx = i
						}
					}
					require.True(t, idx >= 0, "output record must come from the input")
					assert.True(t, idx > last, "input order must be preserved")
					last = idx
				}
			}
		}
	})
	t.Run("NoBranchesMatchesNothing", func(t *testing.T) {
		assert.Empty(t, FilterResults(records, ResultFilter{}))
		assert.Empty(t, FilterResults(records, ResultFilter{Plant: "Plant A"}))
	})
	t.Run("DefaultSelection", func(t *testing.T) {
		out := FilterResults(records, ResultFilter{Branches: DefaultBranches()})
		assert.Equal(t, []int{101, 102, 103, 201, 202, 203}, buildNumbers(out))
	})
	t.Run("PlantAndBranch", func(t *testing.T) {
		out := FilterResults(records, ResultFilter{Branches: []string{"REL_14_STABLE"}, Plant: "Plant B"})
		assert.Equal(t, []int{202}, buildNumbers(out))
	})
	t.Run("EmptyInput", func(t *testing.T) {
		out := FilterResults(nil, ResultFilter{Branches: DefaultBranches()})
		assert.NotNil(t, out)
		assert.Empty(t, out)
	})
}

func TestSortResults(t *testing.T) {
	records := fixtureResults(t)

	for name, test := range map[string]struct {
		key       SortKey
		direction SortDirection
		expected  []int
	}{
		"BuildNumberDescending": {
			key:       SortByBuildNumber,
			direction: SortDescending,
			expected:  []int{303, 302, 301, 203, 202, 201, 103, 102, 101},
		},
		"MetricAscendingKeepsTies": {
			key:       SortByMetric,
			direction: SortAscending,
			expected:  []int{102, 101, 103, 201, 202, 203, 301, 302, 303},
		},
		"MetricDescendingKeepsTies": {
			key:       SortByMetric,
			direction: SortDescending,
			expected:  []int{303, 302, 203, 301, 202, 201, 103, 101, 102},
		},
		"TimestampAscending": {
			key:       SortByTimestamp,
			direction: SortAscending,
			expected:  []int{101, 201, 301, 102, 202, 302, 103, 203, 303},
		},
		"TimestampDescending": {
			key:       SortByTimestamp,
			direction: SortDescending,
			expected:  []int{103, 203, 303, 102, 202, 302, 101, 201, 301},
		},
		"BranchDescending": {
			key:       SortByBranch,
			direction: SortDescending,
			expected:  []int{301, 302, 303, 201, 202, 203, 101, 102, 103},
		},
		"RevisionAscending": {
			key:       SortByRevision,
			direction: SortAscending,
			expected:  []int{101, 102, 103, 201, 202, 203, 303, 301, 302},
		},
		"DescriptionAscending": {
			key:       SortByDescription,
			direction: SortAscending,
			expected:  []int{201, 101, 103, 202, 102, 303, 301, 203, 302},
		},
		"PlantAscending": {
			key:       SortByPlant,
			direction: SortAscending,
			expected:  []int{101, 201, 301, 102, 202, 302, 103, 203, 303},
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, buildNumbers(SortResults(records, test.key, test.direction)))
		})
	}

	t.Run("InputUnchanged", func(t *testing.T) {
		before := buildNumbers(records)
		_ = SortResults(records, SortByMetric, SortDescending)
		assert.Equal(t, before, buildNumbers(records))
	})
	t.Run("Idempotent", func(t *testing.T) {
		for _, key := range []SortKey{SortByTimestamp, SortByBranch, SortByBuildNumber, SortByMetric, SortByRevision, SortByDescription, SortByPlant} {
			for _, dir := range []SortDirection{SortAscending, SortDescending} {
				once := SortResults(records, key, dir)
				twice := SortResults(once, key, dir)
				assert.Equal(t, buildNumbers(once), buildNumbers(twice), "%s %s", key, dir)
			}
		}
	})
	t.Run("ExtremeBuildNumbers", func(t *testing.T) {
		extremes := []model.TestResult{
			{BuildNumber: math.MaxInt},
			{BuildNumber: math.MinInt},
			{BuildNumber: 0},
			{BuildNumber: math.MaxInt - 1},
			{BuildNumber: math.MinInt + 1},
		}
		assert.Equal(t, []int{math.MinInt, math.MinInt + 1, 0, math.MaxInt - 1, math.MaxInt},
			buildNumbers(SortResults(extremes, SortByBuildNumber, SortAscending)))
		assert.Equal(t, []int{math.MaxInt, math.MaxInt - 1, 0, math.MinInt + 1, math.MinInt},
			buildNumbers(SortResults(extremes, SortByBuildNumber, SortDescending)))
	})
	t.Run("NaNMetricsSortBeforeNumbers", func(t *testing.T) {
		withNaN := []model.TestResult{
			{BuildNumber: 1, Metric: 2},
			{BuildNumber: 2, Metric: math.NaN()},
			{BuildNumber: 3, Metric: 1},
			{BuildNumber: 4, Metric: math.NaN()},
			{BuildNumber: 5, Metric: 3},
			{BuildNumber: 6, Metric: math.Inf(-1)},
		}
		assert.Equal(t, []int{2, 4, 6, 3, 1, 5}, buildNumbers(SortResults(withNaN, SortByMetric, SortAscending)))
		assert.Equal(t, []int{5, 1, 3, 6, 2, 4}, buildNumbers(SortResults(withNaN, SortByMetric, SortDescending)))

		once := SortResults(withNaN, SortByMetric, SortAscending)
		assert.Equal(t, buildNumbers(once), buildNumbers(SortResults(once, SortByMetric, SortAscending)))
	})
	t.Run("DoubleToggleRestoresOrder", func(t *testing.T) {
		conf := DefaultSort()
		original := buildNumbers(SortResults(records, conf.Key, conf.Direction))

		conf = conf.Toggle(SortByTimestamp)
		assert.Equal(t, SortDescending, conf.Direction)
		assert.NotEqual(t, original, buildNumbers(SortResults(records, conf.Key, conf.Direction)))

		conf = conf.Toggle(SortByTimestamp)
		assert.Equal(t, SortAscending, conf.Direction)
		assert.Equal(t, original, buildNumbers(SortResults(records, conf.Key, conf.Direction)))
	})
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, SortResults(nil, SortByMetric, SortAscending))
	})
}

func TestSortConfigToggle(t *testing.T) {
	for name, test := range map[string]struct {
		start    SortConfig
		key      SortKey
		expected SortConfig
	}{
		"SameKeyAscending": {
			start:    SortConfig{Key: SortByMetric, Direction: SortAscending},
			key:      SortByMetric,
			expected: SortConfig{Key: SortByMetric, Direction: SortDescending},
		},
		"SameKeyDescending": {
			start:    SortConfig{Key: SortByMetric, Direction: SortDescending},
			key:      SortByMetric,
			expected: SortConfig{Key: SortByMetric, Direction: SortAscending},
		},
		"NewKeyFromDescending": {
			start:    SortConfig{Key: SortByMetric, Direction: SortDescending},
			key:      SortByBranch,
			expected: SortConfig{Key: SortByBranch, Direction: SortAscending},
		},
		"NewKeyFromAscending": {
			start:    SortConfig{Key: SortByMetric, Direction: SortAscending},
			key:      SortByBranch,
			expected: SortConfig{Key: SortByBranch, Direction: SortAscending},
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expected, test.start.Toggle(test.key))
		})
	}

	assert.Error(t, SortConfig{Key: "bogus", Direction: SortAscending}.Validate())
	assert.Error(t, SortConfig{Key: SortByMetric, Direction: "up"}.Validate())
	assert.NoError(t, DefaultSort().Validate())
}

func TestLatestMetric(t *testing.T) {
	day1 := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	t.Run("EmptySetReturnsSentinel", func(t *testing.T) {
		assert.Equal(t, NoMetric, LatestMetric(nil, "X"))
		assert.Equal(t, NoMetric, LatestMetric([]model.TestResult{}, "X"))

		_, ok := LatestResult(nil, "X")
		assert.False(t, ok)
	})
	t.Run("NoMatchingBranch", func(t *testing.T) {
		records := []model.TestResult{{Branch: "Y", Metric: 5, Timestamp: day1}}
		assert.Equal(t, NoMetric, LatestMetric(records, "X"))
	})
	t.Run("LatestDayWins", func(t *testing.T) {
		records := []model.TestResult{
			{Branch: "X", Metric: 100, Timestamp: day1},
			{Branch: "X", Metric: 200, Timestamp: day2},
		}
		assert.Equal(t, 200.0, LatestMetric(records, "X"))

		reversed := []model.TestResult{records[1], records[0]}
		assert.Equal(t, 200.0, LatestMetric(reversed, "X"))
	})
	t.Run("TiesKeepFirst", func(t *testing.T) {
		records := []model.TestResult{
			{Branch: "X", Metric: 100, Timestamp: day2, BuildNumber: 1},
			{Branch: "X", Metric: 300, Timestamp: day2, BuildNumber: 2},
		}
		latest, ok := LatestResult(records, "X")
		require.True(t, ok)
		assert.Equal(t, 1, latest.BuildNumber)
	})
	t.Run("Fixtures", func(t *testing.T) {
		records := fixtureResults(t)
		assert.Equal(t, 570000.0, LatestMetric(records, "REL_13_STABLE"))
		assert.Equal(t, 590000.0, LatestMetric(records, "REL_14_STABLE"))
		assert.Equal(t, 600000.0, LatestMetric(records, "REL_15_STABLE"))
		assert.Equal(t, NoMetric, LatestMetric(records, "main"))
	})
}

func TestUniqueTimestamps(t *testing.T) {
	records := fixtureResults(t)

	labels := UniqueTimestamps(records)
	require.Len(t, labels, 3)
	assert.Equal(t, "2024-02-01", labels[0].Format("2006-01-02"))
	assert.Equal(t, "2024-02-15", labels[1].Format("2006-01-02"))
	assert.Equal(t, "2024-03-01", labels[2].Format("2006-01-02"))

	reordered := SortResults(records, SortByTimestamp, SortDescending)
	labels = UniqueTimestamps(reordered)
	require.Len(t, labels, 3)
	assert.Equal(t, "2024-03-01", labels[0].Format("2006-01-02"))

	assert.Empty(t, UniqueTimestamps(nil))
}
