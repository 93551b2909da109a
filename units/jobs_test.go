package units

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDBName = "perffarm_test_units"

func TestLoadFixturesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testutils.NewEnvironment(t, testDBName)

	t.Run("DefaultFixtures", func(t *testing.T) {
		j := NewLoadFixturesJob(env, "", "default")
		j.Run(ctx)
		require.NoError(t, j.Error())
		assert.True(t, j.Status().Completed)

		stats := j.(*loadFixturesJob).Stats
		assert.Equal(t, 10, stats.Branches)
		assert.Equal(t, 3, stats.Plants)
		assert.Equal(t, 4, stats.Tests)
		assert.Equal(t, 9, stats.ResultsInserted)

		again := NewLoadFixturesJob(env, "", "again")
		again.Run(ctx)
		require.NoError(t, again.Error())
		assert.Zero(t, again.(*loadFixturesJob).Stats.ResultsInserted)
		assert.Equal(t, 9, again.(*loadFixturesJob).Stats.ResultsSkipped)
	})
	t.Run("FixtureFile", func(t *testing.T) {
		set := model.DefaultFixtures()
		set.Results = set.Results[:2]
		path := filepath.Join(t.TempDir(), "fixtures.yaml")
		require.NoError(t, set.WriteFixtureFile(path))

		j := NewLoadFixturesJob(env, path, "file")
		j.Run(ctx)
		require.NoError(t, j.Error())
		assert.Equal(t, 2, j.(*loadFixturesJob).Stats.ResultsSkipped)
	})
	t.Run("MissingFile", func(t *testing.T) {
		j := NewLoadFixturesJob(env, filepath.Join(t.TempDir(), "nope.yaml"), "missing")
		j.Run(ctx)
		assert.Error(t, j.Error())
		assert.True(t, j.Status().Completed)
	})
}

func TestPlantResultCountsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testutils.NewEnvironment(t, testDBName)

	load := NewLoadFixturesJob(env, "", "counts")
	load.Run(ctx)
	require.NoError(t, load.Error())

	j := NewPlantResultCountsJob(env, "counts")
	j.Run(ctx)
	require.NoError(t, j.Error())
	assert.Equal(t, map[string]int{"Plant A": 3, "Plant B": 3, "Plant C": 3}, j.(*plantResultCountsJob).Counts)

	plants, err := model.FindPlants(ctx, env)
	require.NoError(t, err)
	require.Len(t, plants, 3)
	for _, p := range plants {
		assert.Equal(t, 3, p.ResultCount, p.Name)
	}
}

func TestExportSnapshotJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testutils.NewEnvironment(t, testDBName)
	ts := time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)

	t.Run("NoResults", func(t *testing.T) {
		j := NewExportSnapshotJob(env, "dbt2", ts)
		j.Run(ctx)
		assert.Error(t, j.Error())
	})
	t.Run("MissingTest", func(t *testing.T) {
		j := NewExportSnapshotJob(env, "", ts)
		j.Run(ctx)
		assert.Error(t, j.Error())
	})
	t.Run("WritesSnapshot", func(t *testing.T) {
		load := NewLoadFixturesJob(env, "", "export")
		load.Run(ctx)
		require.NoError(t, load.Error())

		j := NewExportSnapshotJob(env, "dbt2", ts)
		assert.Equal(t, "export-snapshot.dbt2.2024-03-02.10-00-00", j.ID())
		j.Run(ctx)
		require.NoError(t, j.Error())

		job := j.(*exportSnapshotJob)
		assert.Equal(t, []string{snapshotResultsKey, snapshotLineKey, snapshotComparisonKey}, job.Files)

		bucket, err := model.SnapshotBucket(ctx, env, job.Prefix)
		require.NoError(t, err)

		r, err := bucket.Get(ctx, snapshotResultsKey)
		require.NoError(t, err)
		data, err := ioutil.ReadAll(r)
		require.NoError(t, r.Close())
		require.NoError(t, err)

		results, err := model.ReadResultsParquet(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Len(t, results, 9)

		for _, key := range []string{snapshotLineKey, snapshotComparisonKey} {
			r, err = bucket.Get(ctx, key)
			require.NoError(t, err)
			data, err = ioutil.ReadAll(r)
			require.NoError(t, r.Close())
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), key)
		}
	})
}

func TestStatsCollector(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := testutils.NewEnvironment(t, testDBName)

	load := NewLoadFixturesJob(env, "", "stats")
	load.Run(ctx)
	require.NoError(t, load.Error())

	j := NewStatsCollector(env, "stats")
	j.Run(ctx)
	assert.NoError(t, j.Error())
	assert.True(t, j.Status().Completed)
}
