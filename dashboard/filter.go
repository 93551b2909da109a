package dashboard

import "github.com/evergreen-ci/perffarm/model"

// ResultFilter selects results by branch and, optionally, by plant.
type ResultFilter struct {
	Branches []string `json:"branches" bson:"branches" yaml:"branches"`
	Plant    string   `json:"plant,omitempty" bson:"plant,omitempty" yaml:"plant,omitempty"`
}

// Match reports whether the result passes the filter. A filter with no
// branches matches nothing.
func (f ResultFilter) Match(r model.TestResult) bool {
	if f.Plant != "" && r.Plant != f.Plant {
		return false
	}
	for _, b := range f.Branches {
		if b == r.Branch {
			return true
		}
	}
	return false
}

// FilterResults returns the records that pass the filter, in input order.
func FilterResults(records []model.TestResult, f ResultFilter) []model.TestResult {
	out := make([]model.TestResult, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
