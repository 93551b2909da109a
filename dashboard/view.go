package dashboard

import (
	"context"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// Messages shown in place of an empty chart or table.
const (
	EmptyBranchesMessage   = "no results for the selected branches"
	EmptyPlantMessage      = "no results for the selected plant"
	EmptyComparisonMessage = "no results for the comparison branches"
)

// ViewData is everything a client needs to draw the current selection.
type ViewData struct {
	Selection  Selection          `json:"selection"`
	Records    []model.TestResult `json:"records"`
	Line       LineChart          `json:"line"`
	Table      []TableRow         `json:"table"`
	Comparison ComparisonChart    `json:"comparison"`
	Empty      bool               `json:"empty"`
	Message    string             `json:"message,omitempty"`
}

// Derive computes the view data for the selection from every record of the
// selected test. The records are not modified.
func Derive(records []model.TestResult, sel Selection) *ViewData {
	filtered := FilterResults(records, sel.Filter())

	plants := sel.ComparisonPlants()
	data := &ViewData{
		Selection:  sel,
		Records:    filtered,
		Line:       BuildLineChart(filtered, sel.Branches),
		Table:      BuildTableRows(filtered, sel.Sort),
		Comparison: BuildComparison(records, plants, sel.Comparison),
	}

	switch {
	case sel.ViewMode == ViewModeComparison:
		if !data.Comparison.HasData() {
			data.Empty = true
			data.Message = EmptyComparisonMessage
		}
	case len(filtered) == 0 && sel.Plant != "" && len(sel.Branches) > 0:
		data.Empty = true
		data.Message = EmptyPlantMessage
	case len(filtered) == 0:
		data.Empty = true
		data.Message = EmptyBranchesMessage
	}

	return data
}

// View couples a selection with the source of its results. A View is owned
// by one caller and is not safe for concurrent use.
type View struct {
	Selection *Selection
	source    model.ResultsSource
}

// NewView returns a view of the selection backed by source.
func NewView(source model.ResultsSource, sel *Selection) (*View, error) {
	if source == nil {
		return nil, errors.New("must specify a results source")
	}
	if sel == nil {
		return nil, errors.New("must specify a selection")
	}

	return &View{Selection: sel, source: source}, nil
}

// Refresh fetches the selected test's results and derives the view data.
func (v *View) Refresh(ctx context.Context) (*ViewData, error) {
	if err := v.Selection.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid selection")
	}

	records, err := v.source.FetchResults(ctx, model.ResultsQuery{TestID: v.Selection.Test})
	if err != nil {
		return nil, errors.Wrapf(err, "problem fetching results for test '%s'", v.Selection.Test)
	}

	data := Derive(records, *v.Selection)
	grip.Debug(message.Fields{
		"message":  "refreshed results view",
		"test":     v.Selection.Test,
		"plant":    v.Selection.Plant,
		"branches": v.Selection.Branches,
		"records":  len(records),
		"filtered": len(data.Records),
		"empty":    data.Empty,
	})

	return data, nil
}
