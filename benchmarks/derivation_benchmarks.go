package benchmarks

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/poplar"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

const benchmarkTestID = "dbt2"

// RunDerivationBenchmark runs a poplar benchmark suite over the filter,
// sort and aggregate operations and the presentation builders, for a range
// of result set sizes. Reports are written under the output directory.
func RunDerivationBenchmark(ctx context.Context, output string) error {
	prefix := filepath.Join(output, fmt.Sprintf("derivation_benchmark_report_%d", time.Now().Unix()))
	if err := os.MkdirAll(prefix, os.ModePerm); err != nil {
		return errors.Wrap(err, "problem creating top level directory")
	}

	sizes := []int{1e3, 1e4, 1e5}
	var combinedReports string
	for _, size := range sizes {
		suitePrefix := filepath.Join(prefix, fmt.Sprintf("%d", size))
		if err := os.Mkdir(suitePrefix, os.ModePerm); err != nil {
			return errors.Wrap(err, "problem creating subdirectory")
		}

		suite, err := getDerivationSuite(size)
		if err != nil {
			return errors.Wrap(err, "problem creating benchmark suite")
		}

		results, err := suite.Run(ctx, suitePrefix)
		if err != nil {
			combinedReports += fmt.Sprintf("Result Count: %d\n===============\nError:\n%s\n", size, err)
			continue
		}
		combinedReports += fmt.Sprintf("Result Count: %d\n===============\n%s\n", size, results.Report())
	}

	path := filepath.Join(prefix, "results.txt")
	if err := ioutil.WriteFile(path, []byte(combinedReports), 0644); err != nil {
		return errors.Wrap(err, "problem writing report")
	}
	grip.Info(message.Fields{
		"message": "derivation benchmarks complete",
		"report":  path,
	})

	return nil
}

func getDerivationSuite(size int) (poplar.BenchmarkSuite, error) {
	records := newResults(benchmarkTestID, size)
	sel := newBenchmarkSelection(benchmarkTestID)
	filtered := dashboard.FilterResults(records, sel.Filter())

	set := model.DefaultFixtures()
	set.Results = records
	source, err := model.NewFixtureSource(set)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return poplar.BenchmarkSuite{
		newDerivationCase("FilterResults", func() int {
			return len(dashboard.FilterResults(records, sel.Filter()))
		}),
		newDerivationCase("SortResultsByMetric", func() int {
			return len(dashboard.SortResults(filtered, dashboard.SortByMetric, dashboard.SortDescending))
		}),
		newDerivationCase("SortResultsByBranch", func() int {
			return len(dashboard.SortResults(filtered, dashboard.SortByBranch, dashboard.SortAscending))
		}),
		newDerivationCase("LatestMetric", func() int {
			_ = dashboard.LatestMetric(records, "REL_15_STABLE")
			return len(records)
		}),
		newDerivationCase("UniqueTimestamps", func() int {
			return len(dashboard.UniqueTimestamps(filtered))
		}),
		newDerivationCase("BuildLineChart", func() int {
			return len(dashboard.BuildLineChart(filtered, sel.Branches).Labels)
		}),
		newDerivationCase("BuildTableRows", func() int {
			return len(dashboard.BuildTableRows(filtered, sel.Sort))
		}),
		newDerivationCase("BuildComparison", func() int {
			return len(dashboard.BuildComparison(records, sel.ComparisonPlants(), sel.Comparison).Bars)
		}),
		{
			CaseName:         "RefreshView",
			Bench:            getViewBenchmark(source, sel),
			MinRuntime:       time.Millisecond,
			MaxRuntime:       time.Minute,
			Timeout:          2 * time.Minute,
			IterationTimeout: time.Minute,
			MinIterations:    2,
			MaxIterations:    10,
			Recorder:         poplar.RecorderPerf,
		},
	}, nil
}

func newDerivationCase(name string, op func() int) *poplar.BenchmarkCase {
	return &poplar.BenchmarkCase{
		CaseName:         name,
		Bench:            getDerivationBenchmark(op),
		MinRuntime:       time.Millisecond,
		MaxRuntime:       time.Minute,
		Timeout:          2 * time.Minute,
		IterationTimeout: time.Minute,
		MinIterations:    2,
		MaxIterations:    10,
		Recorder:         poplar.RecorderPerf,
	}
}

func getDerivationBenchmark(op func() int) poplar.Benchmark {
	return func(ctx context.Context, r poplar.Recorder, _ int) error {
		startAt := time.Now()
		r.Begin()
		n := op()
		r.IncOps(int64(n))
		r.End(time.Since(startAt))

		return ctx.Err()
	}
}

func getViewBenchmark(source model.ResultsSource, sel dashboard.Selection) poplar.Benchmark {
	return func(ctx context.Context, r poplar.Recorder, _ int) error {
		view, err := dashboard.NewView(source, &sel)
		if err != nil {
			return errors.WithStack(err)
		}

		startAt := time.Now()
		r.Begin()
		data, err := view.Refresh(ctx)
		r.End(time.Since(startAt))
		if err != nil {
			return errors.Wrap(err, "problem refreshing view")
		}
		r.IncOps(int64(len(data.Records)))

		return nil
	}
}
