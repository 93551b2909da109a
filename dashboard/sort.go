package dashboard

import (
	"math"
	"sort"
	"strings"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/pkg/errors"
)

// SortKey names the result field used to order table rows.
type SortKey string

const (
	SortByTimestamp   SortKey = "timestamp"
	SortByBranch      SortKey = "branch"
	SortByBuildNumber SortKey = "buildNumber"
	SortByMetric      SortKey = "metric"
	SortByRevision    SortKey = "revision"
	SortByDescription SortKey = "description"
	SortByPlant       SortKey = "plant"
)

func (k SortKey) Validate() error {
	switch k {
	case SortByTimestamp, SortByBranch, SortByBuildNumber, SortByMetric, SortByRevision, SortByDescription, SortByPlant:
		return nil
	default:
		return errors.Errorf("invalid sort key '%s'", k)
	}
}

// SortDirection is either ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

func (d SortDirection) Validate() error {
	switch d {
	case SortAscending, SortDescending:
		return nil
	default:
		return errors.Errorf("invalid sort direction '%s'", d)
	}
}

// SortConfig is the key and direction of the table ordering.
type SortConfig struct {
	Key       SortKey       `json:"key" bson:"key" yaml:"key"`
	Direction SortDirection `json:"direction" bson:"direction" yaml:"direction"`
}

// DefaultSort orders results by timestamp, oldest first.
func DefaultSort() SortConfig {
	return SortConfig{Key: SortByTimestamp, Direction: SortAscending}
}

func (c SortConfig) Validate() error {
	if err := c.Key.Validate(); err != nil {
		return err
	}
	return c.Direction.Validate()
}

// Toggle returns the configuration after a request to sort by key: the same
// key while ascending flips to descending, anything else sorts by the key
// ascending.
func (c SortConfig) Toggle(key SortKey) SortConfig {
	if c.Key == key && c.Direction == SortAscending {
		return SortConfig{Key: key, Direction: SortDescending}
	}
	return SortConfig{Key: key, Direction: SortAscending}
}

// compareResults returns a negative number, zero, or a positive number as a
// orders before, equal to, or after b by the key.
func compareResults(a, b model.TestResult, key SortKey) int {
	switch key {
	case SortByBranch:
		return strings.Compare(a.Branch, b.Branch)
	case SortByRevision:
		return strings.Compare(a.Revision, b.Revision)
	case SortByDescription:
		return strings.Compare(a.Description, b.Description)
	case SortByPlant:
		return strings.Compare(a.Plant, b.Plant)
	case SortByBuildNumber:
		return compareInts(a.BuildNumber, b.BuildNumber)
	case SortByMetric:
		return compareMetrics(a.Metric, b.Metric)
	default:
		return a.Timestamp.Compare(b.Timestamp)
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareMetrics orders NaN before every number, so NaN metrics lead an
// ascending table and trail a descending one.
func compareMetrics(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortResults returns a stably sorted copy of records. Records that compare
// equal keep their input order in both directions. Unknown keys sort by
// timestamp.
func SortResults(records []model.TestResult, key SortKey, direction SortDirection) []model.TestResult {
	out := make([]model.TestResult, len(records))
	copy(out, records)

	sort.SliceStable(out, func(i, j int) bool {
		cmp := compareResults(out[i], out[j], key)
		if direction == SortDescending {
			return cmp > 0
		}
		return cmp < 0
	})

	return out
}
