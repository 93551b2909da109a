package benchmarks

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/model"
)

var seededRand *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

func newRandCharSetString(length int) string {
	charset := "abcdef0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}

// newResults generates a result set of the given size spread over the
// fixture plants and branches, one build per plant and branch per day.
func newResults(testID string, size int) []model.TestResult {
	set := model.DefaultFixtures()
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

	out := make([]model.TestResult, 0, size)
	for i := 0; i < size; i++ {
		plant := set.Plants[i%len(set.Plants)].Name
		branch := set.Branches[(i/len(set.Plants))%len(set.Branches)]
		day := i / (len(set.Plants) * len(set.Branches))

		r, err := model.CreateTestResult(
			testID,
			plant,
			branch,
			i+1,
			newRandCharSetString(12),
			500000+seededRand.Float64()*100000,
			start.AddDate(0, 0, day),
			fmt.Sprintf("synthetic build %d", i+1),
		)
		if err != nil {
			continue
		}
		out = append(out, *r)
	}

	return out
}

func newBenchmarkSelection(testID string) dashboard.Selection {
	sel := dashboard.NewSelection(testID)
	sel.ToggleBranch("REL_15_STABLE", true)
	sel.ToggleBranch("main", true)
	return *sel
}
