package benchmarks

import (
	"testing"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResults(t *testing.T) {
	records := newResults(benchmarkTestID, 100)
	require.Len(t, records, 100)

	set := model.DefaultFixtures()
	set.Results = records
	assert.NoError(t, set.Validate())

	ids := map[string]bool{}
	for _, r := range records {
		assert.False(t, ids[r.ID])
		ids[r.ID] = true
	}
}

func TestDerivationSuite(t *testing.T) {
	suite, err := getDerivationSuite(100)
	require.NoError(t, err)
	require.Len(t, suite, 9)

	names := map[string]bool{}
	for _, c := range suite {
		assert.NotNil(t, c.Bench)
		assert.False(t, names[c.CaseName])
		names[c.CaseName] = true
	}
}
