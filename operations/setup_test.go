package operations

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newTestContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(set)
	}
	require.NoError(t, set.Parse(args))

	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestBuildConfiguration(t *testing.T) {
	flags := mergeFlags(configFlags(), baseFlags(), dbFlags(), serviceFlags())

	for name, test := range map[string]func(t *testing.T){
		"DefaultsFromFlags": func(t *testing.T) {
			conf, err := buildConfiguration(newTestContext(t, flags))
			require.NoError(t, err)
			assert.Equal(t, "mongodb://localhost:27017", conf.MongoDBURI)
			assert.Equal(t, "perffarm", conf.DatabaseName)
			assert.Equal(t, 2, conf.NumWorkers)
			assert.Equal(t, perffarm.DefaultServicePort, conf.Service.Port)
			assert.Equal(t, perffarm.DefaultRPCAddress, conf.Service.RPCAddress)
			assert.Equal(t, "local", conf.Bucket.Type)
			assert.NotEmpty(t, conf.Bucket.Name)
		},
		"FlagsOverrideDefaults": func(t *testing.T) {
			conf, err := buildConfiguration(newTestContext(t, flags,
				"--dbName", "perffarm_test",
				"--workers", "4",
				"--port", "8080",
				"--corsOrigin", "http://localhost:5173",
				"--disableRPC",
			))
			require.NoError(t, err)
			assert.Equal(t, "perffarm_test", conf.DatabaseName)
			assert.Equal(t, 4, conf.NumWorkers)
			assert.Equal(t, 8080, conf.Service.Port)
			assert.Equal(t, []string{"http://localhost:5173"}, conf.Service.CORSOrigins)
			assert.True(t, conf.Service.DisableRPC)
		},
		"FileValuesWinOverFlagDefaults": func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "perffarm.yaml")
			require.NoError(t, util.WriteFileYAML(path, &perffarm.Configuration{
				MongoDBURI:   "mongodb://db.example.com:27017",
				DatabaseName: "from_file",
				NumWorkers:   8,
			}))

			conf, err := buildConfiguration(newTestContext(t, flags, "--config", path))
			require.NoError(t, err)
			assert.Equal(t, "mongodb://db.example.com:27017", conf.MongoDBURI)
			assert.Equal(t, "from_file", conf.DatabaseName)
			assert.Equal(t, 8, conf.NumWorkers)
		},
		"ExplicitFlagsWinOverFile": func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "perffarm.yaml")
			require.NoError(t, util.WriteFileYAML(path, &perffarm.Configuration{
				MongoDBURI:   "mongodb://db.example.com:27017",
				DatabaseName: "from_file",
				NumWorkers:   8,
			}))

			conf, err := buildConfiguration(newTestContext(t, flags, "--config", path, "--dbName", "from_flag"))
			require.NoError(t, err)
			assert.Equal(t, "from_flag", conf.DatabaseName)
			assert.Equal(t, 8, conf.NumWorkers)
		},
		"MissingFileErrors": func(t *testing.T) {
			_, err := buildConfiguration(newTestContext(t, flags, "--config", filepath.Join(t.TempDir(), "missing.yaml")))
			assert.Error(t, err)
		},
		"ErrorsWithInvalidConfigWorkers": func(t *testing.T) {
			_, err := buildConfiguration(newTestContext(t, flags, "--workers", "-1"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "problem setting up config")
			assert.Contains(t, err.Error(), "workers")
		},
	} {
		t.Run(name, test)
	}
}

func TestSelectionFromFlags(t *testing.T) {
	flags := addResultsFilterFlags(
		cli.StringFlag{Name: viewModeFlag, Value: string(dashboard.ViewModeGraph)},
		cli.StringFlag{Name: sortByFlag},
		cli.StringSliceFlag{Name: comparisonFlag},
	)

	t.Run("Defaults", func(t *testing.T) {
		sel, err := selectionFromFlags(newTestContext(t, flags, "--test", "dbt2"))
		require.NoError(t, err)
		assert.Equal(t, dashboard.NewSelection("dbt2"), sel)
	})
	t.Run("AppliesFlags", func(t *testing.T) {
		sel, err := selectionFromFlags(newTestContext(t, flags,
			"--test", "dbt2",
			"--branch", "REL_15_STABLE",
			"--branch", "REL_13_STABLE",
			"--plant", "Plant B",
			"--mode", "table",
			"--sortBy", "metric",
			"--compare", "Plant A=REL_15_STABLE",
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"REL_15_STABLE", "REL_13_STABLE"}, sel.Branches)
		assert.Equal(t, "Plant B", sel.Plant)
		assert.Equal(t, dashboard.ViewModeTable, sel.ViewMode)
		assert.Equal(t, dashboard.SortConfig{Key: dashboard.SortByMetric, Direction: dashboard.SortAscending}, sel.Sort)
		assert.Equal(t, "REL_15_STABLE", sel.Comparison["Plant A"])
	})
	t.Run("InvalidModeErrors", func(t *testing.T) {
		_, err := selectionFromFlags(newTestContext(t, flags, "--test", "dbt2", "--mode", "pie"))
		assert.Error(t, err)
	})
	t.Run("InvalidComparisonErrors", func(t *testing.T) {
		_, err := parseComparison([]string{"Plant A"})
		assert.Error(t, err)
		_, err = parseComparison([]string{"=main"})
		assert.Error(t, err)

		out, err := parseComparison([]string{"Plant A=main", "Plant B=DEVEL"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Plant A": "main", "Plant B": "DEVEL"}, out)
	})
}
