package dashboard

import (
	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/model"
)

// TableRow is one result as shown in the results table.
type TableRow struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Branch      string  `json:"branch"`
	BuildNumber int     `json:"build_number"`
	Plant       string  `json:"plant"`
	Metric      float64 `json:"metric"`
	Score       string  `json:"score"`
	Revision    string  `json:"revision"`
	Description string  `json:"description"`
}

// BuildTableRows returns a row per record, ordered by the sort
// configuration.
func BuildTableRows(records []model.TestResult, sortConf SortConfig) []TableRow {
	sorted := SortResults(records, sortConf.Key, sortConf.Direction)

	rows := make([]TableRow, len(sorted))
	for i, r := range sorted {
		rows[i] = TableRow{
			ID:          r.ID,
			Date:        r.Timestamp.Format(perffarm.ShortDateFormat),
			Branch:      r.Branch,
			BuildNumber: r.BuildNumber,
			Plant:       r.Plant,
			Metric:      r.Metric,
			Score:       FormatMetric(r.Metric),
			Revision:    r.Revision,
			Description: r.Description,
		}
	}

	return rows
}
