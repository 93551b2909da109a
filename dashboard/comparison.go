package dashboard

import (
	"fmt"
	"strconv"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/model"
)

// ComparisonBar is the latest score of a plant's comparison branch.
type ComparisonBar struct {
	Plant   string  `json:"plant"`
	Branch  string  `json:"branch"`
	Color   string  `json:"color"`
	HasData bool    `json:"has_data"`
	Metric  float64 `json:"metric"`
	Score   string  `json:"score"`

	BuildNumber string `json:"build_number"`
	Revision    string `json:"revision"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// ComparisonChart is the data behind the plant comparison bar chart.
type ComparisonChart struct {
	Bars         []ComparisonBar `json:"bars"`
	SuggestedMin float64         `json:"suggested_min"`
}

// BuildComparison returns a bar per plant, in the given order, holding the
// latest result on the plant's comparison branch across all of the test's
// records, whichever plant ran it. Bars whose branch has no results are
// flagged rather than given a zero score.
func BuildComparison(records []model.TestResult, plants []string, comparison map[string]string) ComparisonChart {
	out := ComparisonChart{Bars: make([]ComparisonBar, 0, len(plants))}

	first := true
	for idx, plant := range plants {
		branch := comparison[plant]
		bar := ComparisonBar{
			Plant:       plant,
			Branch:      branch,
			Color:       palette[idx%len(palette)],
			Metric:      NoMetric,
			Score:       NotAvailable,
			BuildNumber: NotAvailable,
			Revision:    NotAvailable,
			Date:        NotAvailable,
			Description: NotAvailable,
		}

		if latest, ok := LatestResult(records, branch); ok {
			bar.HasData = true
			bar.Metric = latest.Metric
			bar.Score = FormatLatestScore(latest.Metric)
			bar.BuildNumber = strconv.Itoa(latest.BuildNumber)
			bar.Revision = orNotAvailable(latest.Revision)
			bar.Date = latest.Timestamp.Format(perffarm.ShortDateFormat)
			bar.Description = orNotAvailable(latest.Description)

			if first || latest.Metric < out.SuggestedMin {
				out.SuggestedMin = latest.Metric
				first = false
			}
		}

		out.Bars = append(out.Bars, bar)
	}
	out.SuggestedMin *= 0.9

	return out
}

// HasData reports whether any bar has a score.
func (c ComparisonChart) HasData() bool {
	for _, b := range c.Bars {
		if b.HasData {
			return true
		}
	}
	return false
}

// Tooltip returns the detail lines shown when hovering the bar.
func (b ComparisonBar) Tooltip() []string {
	score := NotAvailable
	if b.HasData {
		score = FormatMetric(b.Metric)
	}
	return []string{
		"Score: " + score,
		fmt.Sprintf("Build: #%s", b.BuildNumber),
		"Commit: " + b.Revision,
		"Date: " + b.Date,
		"Description: " + b.Description,
	}
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
