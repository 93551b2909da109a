package dashboard

import (
	"sort"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// ViewMode is the presentation the user is looking at.
type ViewMode string

const (
	ViewModeGraph      ViewMode = "graph"
	ViewModeTable      ViewMode = "table"
	ViewModeComparison ViewMode = "comparison"
)

func (m ViewMode) Validate() error {
	switch m {
	case ViewModeGraph, ViewModeTable, ViewModeComparison:
		return nil
	default:
		return errors.Errorf("invalid view mode '%s'", m)
	}
}

// DefaultBranches returns the branches selected for a newly chosen test.
func DefaultBranches() []string {
	return []string{"REL_13_STABLE", "REL_14_STABLE"}
}

// DefaultComparison returns the branch compared on each plant for a newly
// chosen test.
func DefaultComparison() map[string]string {
	return map[string]string{
		"Plant A": "REL_13_STABLE",
		"Plant B": "REL_14_STABLE",
		"Plant C": "REL_15_STABLE",
	}
}

// Selection is the complete, serializable state of a results view. It is
// owned by a single caller and is not safe for concurrent use.
type Selection struct {
	Test       string            `json:"test" bson:"test" yaml:"test"`
	Plant      string            `json:"plant,omitempty" bson:"plant,omitempty" yaml:"plant,omitempty"`
	Branches   []string          `json:"branches" bson:"branches" yaml:"branches"`
	Sort       SortConfig        `json:"sort" bson:"sort" yaml:"sort"`
	ViewMode   ViewMode          `json:"view_mode" bson:"view_mode" yaml:"view_mode"`
	Comparison map[string]string `json:"comparison" bson:"comparison" yaml:"comparison"`
}

// NewSelection returns the default selection for the test.
func NewSelection(testID string) *Selection {
	return &Selection{
		Test:       testID,
		Branches:   DefaultBranches(),
		Sort:       DefaultSort(),
		ViewMode:   ViewModeGraph,
		Comparison: DefaultComparison(),
	}
}

// ToggleBranch adds the branch when checked and removes it otherwise.
// Branches keep the order in which they were selected.
func (s *Selection) ToggleBranch(branch string, checked bool) {
	idx := -1
	for i, b := range s.Branches {
		if b == branch {
			idx = i
			break
		}
	}

	switch {
	case checked && idx < 0:
		s.Branches = append(s.Branches, branch)
	case !checked && idx >= 0:
		out := make([]string, 0, len(s.Branches)-1)
		out = append(out, s.Branches[:idx]...)
		s.Branches = append(out, s.Branches[idx+1:]...)
	}
}

// SelectTest switches to another test, resetting every other choice.
func (s *Selection) SelectTest(testID string) {
	*s = *NewSelection(testID)
}

// SelectPlant restricts results to one plant; the empty string clears the
// restriction.
func (s *Selection) SelectPlant(name string) { s.Plant = name }

func (s *Selection) RequestSort(key SortKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	s.Sort = s.Sort.Toggle(key)
	return nil
}

func (s *Selection) SetViewMode(mode ViewMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	s.ViewMode = mode
	return nil
}

// SetComparisonBranch chooses the branch whose latest score is shown for
// the plant.
func (s *Selection) SetComparisonBranch(plant, branch string) error {
	if plant == "" || branch == "" {
		return errors.New("must specify a plant and a branch")
	}
	if s.Comparison == nil {
		s.Comparison = map[string]string{}
	}
	s.Comparison[plant] = branch
	return nil
}

// ComparisonPlants returns the plants in the comparison in name order.
func (s *Selection) ComparisonPlants() []string {
	plants := make([]string, 0, len(s.Comparison))
	for p := range s.Comparison {
		plants = append(plants, p)
	}
	sort.Strings(plants)
	return plants
}

// Filter returns the result filter for the current branches and plant.
func (s *Selection) Filter() ResultFilter {
	return ResultFilter{Branches: s.Branches, Plant: s.Plant}
}

func (s *Selection) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(s.Test == "", "must select a test")
	catcher.Add(s.Sort.Validate())
	catcher.Add(s.ViewMode.Validate())

	seen := map[string]bool{}
	for _, b := range s.Branches {
		catcher.NewWhen(b == "", "branch names must not be empty")
		catcher.ErrorfWhen(seen[b], "branch '%s' is selected more than once", b)
		seen[b] = true
	}
	for plant, branch := range s.Comparison {
		catcher.ErrorfWhen(branch == "", "plant '%s' has no comparison branch", plant)
	}

	return catcher.Resolve()
}
