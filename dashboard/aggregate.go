package dashboard

import (
	"time"

	"github.com/evergreen-ci/perffarm/model"
)

// NoMetric is returned by LatestMetric when no record matches. It is not a
// score; use LatestResult to distinguish missing data.
const NoMetric = 0.0

// LatestResult returns the record for the branch with the greatest
// timestamp. When several records share that timestamp the first in input
// order wins. The boolean is false when no record matches.
func LatestResult(records []model.TestResult, branch string) (model.TestResult, bool) {
	var latest model.TestResult
	found := false
	for _, r := range records {
		if r.Branch != branch {
			continue
		}
		if !found || r.Timestamp.After(latest.Timestamp) {
			latest = r
			found = true
		}
	}

	return latest, found
}

// LatestMetric returns the metric of the latest record for the branch, or
// NoMetric.
func LatestMetric(records []model.TestResult, branch string) float64 {
	latest, ok := LatestResult(records, branch)
	if !ok {
		return NoMetric
	}
	return latest.Metric
}

// UniqueTimestamps returns the distinct timestamps of the records in the
// order they first appear.
func UniqueTimestamps(records []model.TestResult) []time.Time {
	seen := make(map[int64]struct{}, len(records))
	out := []time.Time{}
	for _, r := range records {
		key := r.Timestamp.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r.Timestamp)
	}
	return out
}
