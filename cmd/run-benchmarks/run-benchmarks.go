package main

import (
	"context"
	"flag"

	"github.com/evergreen-ci/perffarm/benchmarks"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
)

func main() {
	output := flag.String("output", "build", "directory for the benchmark reports")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grip.Log(level.Info, "running derivation benchmarks...")
	if err := benchmarks.RunDerivationBenchmark(ctx, *output); err != nil {
		grip.Error(err)
	}
}
