package dashboard

import (
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/model"
)

var palette = []string{"#4bc0c0", "#ff6384", "#9966ff"}

// BranchColor returns the hex color used to draw a branch's series.
func BranchColor(branch string) string {
	switch branch {
	case "REL_13_STABLE":
		return palette[0]
	case "REL_14_STABLE":
		return palette[1]
	default:
		return palette[2]
	}
}

// ChartPoint is one build on a branch's line.
type ChartPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Metric      float64   `json:"metric"`
	BuildNumber int       `json:"build_number"`
	Plant       string    `json:"plant"`
	Revision    string    `json:"revision"`
	Description string    `json:"description"`
}

// ChartSeries is the line drawn for one branch.
type ChartSeries struct {
	Branch string       `json:"branch"`
	Color  string       `json:"color"`
	Points []ChartPoint `json:"points"`
}

// LineChart is the data behind the results graph.
type LineChart struct {
	Labels []time.Time   `json:"labels"`
	Series []ChartSeries `json:"series"`
}

// BuildLineChart builds one series per branch, in the given order, from
// already filtered records. Labels are the distinct record timestamps.
func BuildLineChart(records []model.TestResult, branches []string) LineChart {
	chart := LineChart{
		Labels: UniqueTimestamps(records),
		Series: make([]ChartSeries, 0, len(branches)),
	}

	for _, branch := range branches {
		series := ChartSeries{
			Branch: branch,
			Color:  BranchColor(branch),
			Points: []ChartPoint{},
		}
		for _, r := range records {
			if r.Branch != branch {
				continue
			}
			series.Points = append(series.Points, ChartPoint{
				Timestamp:   r.Timestamp,
				Metric:      r.Metric,
				BuildNumber: r.BuildNumber,
				Plant:       r.Plant,
				Revision:    r.Revision,
				Description: r.Description,
			})
		}
		chart.Series = append(chart.Series, series)
	}

	return chart
}

// IsEmpty reports whether no series has a point.
func (c LineChart) IsEmpty() bool {
	for _, s := range c.Series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Point returns the point of the series at the label, if any.
func (s ChartSeries) Point(label time.Time) (ChartPoint, bool) {
	for _, p := range s.Points {
		if p.Timestamp.Equal(label) {
			return p, true
		}
	}
	return ChartPoint{}, false
}

// Tooltip returns the detail lines shown when hovering the point.
func (s ChartSeries) Tooltip(p ChartPoint) []string {
	return []string{
		"Branch: " + s.Branch,
		"Commit: " + p.Revision,
		"Description: " + p.Description,
		"Date: " + p.Timestamp.Format(perffarm.ShortDateFormat),
	}
}
