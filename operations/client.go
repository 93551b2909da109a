package operations

import (
	"context"
	"strings"
	"time"

	"github.com/evergreen-ci/perffarm/dashboard"
	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest"
	"github.com/evergreen-ci/perffarm/rpc"
	"github.com/evergreen-ci/perffarm/util"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const (
	viewModeFlag     = "mode"
	rpcClientTimeout = time.Minute
)

// Client returns the ./perffarm client command, which queries a running
// perffarm service over its REST interface.
func Client() cli.Command {
	return cli.Command{
		Name:  "client",
		Usage: "run a simple perffarm client",
		Flags: restServiceFlags(),
		Subcommands: []cli.Command{
			printStatus(),
			printResults(),
			printView(),
			writeChart(),
			scheduleFixtureLoad(),
			scheduleSnapshotExport(),
		},
	}
}

func withClient(c *cli.Context, op func(context.Context, *rest.Client) error) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := rest.NewClient(c.Parent().String(clientHostFlag), c.Parent().Int(clientPortFlag), c.Parent().String(clientPrefixFlag))
	if err != nil {
		return errors.Wrap(err, "problem creating REST client")
	}
	defer client.Close()

	return op(ctx, client)
}

func withRPCClient(addr string, op func(context.Context, *rpc.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcClientTimeout)
	defer cancel()

	client, err := rpc.DialClient(ctx, addr, nil)
	if err != nil {
		return errors.Wrap(err, "problem creating rpc client")
	}
	defer func() {
		grip.Warning(errors.Wrap(client.Close(), "problem closing rpc client"))
	}()

	return op(ctx, client)
}

// fetchRPCResults queries the rpc service and sorts on the client, since the
// rpc service always answers in insertion order.
func fetchRPCResults(ctx context.Context, client *rpc.Client, opts rest.ResultsOptions) ([]model.TestResult, error) {
	if opts.Sort != nil {
		if err := opts.Sort.Validate(); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	results, err := client.FetchResults(ctx, model.ResultsQuery{
		TestID:   opts.TestID,
		Plant:    opts.Plant,
		Branches: opts.Branches,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if opts.Sort != nil {
		results = dashboard.SortResults(results, opts.Sort.Key, opts.Sort.Direction)
	}

	return results, nil
}

func printStatus() cli.Command {
	return cli.Command{
		Name:  "status",
		Usage: "prints json document for the status of the service",
		Flags: addRPCClientFlag(),
		Action: func(c *cli.Context) error {
			if addr := c.String(rpcClientFlag); addr != "" {
				return withRPCClient(addr, func(ctx context.Context, client *rpc.Client) error {
					healthy, err := client.Healthy(ctx)
					if err != nil {
						return errors.WithStack(err)
					}

					return errors.WithStack(util.PrintJSON(map[string]interface{}{
						"rpc_service": addr,
						"serving":     healthy,
					}))
				})
			}

			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				status, err := client.GetStatus(ctx)
				if err != nil {
					return errors.Wrap(err, "problem getting status")
				}

				grip.Debug(status)
				return errors.Wrap(util.PrintJSON(status), "problem rendering status result")
			})
		},
	}
}

func printResults() cli.Command {
	return cli.Command{
		Name:  "results",
		Usage: "prints the results of a test, filtered by plant and branches",
		Flags: addResultsFilterFlags(addRPCClientFlag(
			cli.StringFlag{
				Name:  sortByFlag,
				Usage: "sort by branch, buildNumber, revision, metric, timestamp, description or plant",
			},
			cli.BoolFlag{
				Name:  sortDescFlag,
				Usage: "sort in descending order",
			})...),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(testIDFlag), requireStringFlag(testIDFlag)),
		Action: func(c *cli.Context) error {
			opts := rest.ResultsOptions{
				TestID:   c.String(testIDFlag),
				Plant:    c.String(plantFlag),
				Branches: c.StringSlice(branchFlag),
			}
			if key := c.String(sortByFlag); key != "" {
				opts.Sort = &dashboard.SortConfig{Key: dashboard.SortKey(key), Direction: dashboard.SortAscending}
				if c.Bool(sortDescFlag) {
					opts.Sort.Direction = dashboard.SortDescending
				}
			}

			if addr := c.String(rpcClientFlag); addr != "" {
				return withRPCClient(addr, func(ctx context.Context, client *rpc.Client) error {
					results, err := fetchRPCResults(ctx, client, opts)
					if err != nil {
						return errors.WithStack(err)
					}

					return errors.WithStack(util.PrintJSON(results))
				})
			}

			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				results, err := client.GetResults(ctx, opts)
				if err != nil {
					return errors.WithStack(err)
				}

				return errors.WithStack(util.PrintJSON(results))
			})
		},
	}
}

func printView() cli.Command {
	return cli.Command{
		Name:  "view",
		Usage: "prints the chart, table or comparison data of a selection",
		Flags: addResultsFilterFlags(
			cli.StringFlag{
				Name:  viewModeFlag,
				Usage: "specify the view: graph, table or comparison",
				Value: string(dashboard.ViewModeGraph),
			},
			cli.StringFlag{
				Name:  sortByFlag,
				Usage: "request a table sort on the key",
			},
			cli.StringSliceFlag{
				Name:  comparisonFlag,
				Usage: "compare a plant on a branch, as '<plant>=<branch>', may be repeated",
			}),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(testIDFlag), requireStringFlag(testIDFlag)),
		Action: func(c *cli.Context) error {
			sel, err := selectionFromFlags(c)
			if err != nil {
				return errors.WithStack(err)
			}

			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				data, err := client.View(ctx, *sel)
				if err != nil {
					return errors.WithStack(err)
				}
				grip.InfoWhen(data.Empty, data.Message)

				return errors.WithStack(util.PrintJSON(data))
			})
		},
	}
}

func writeChart() cli.Command {
	return cli.Command{
		Name:  "chart",
		Usage: "renders the line or comparison chart of a test to a file",
		Flags: addOutputPath(addResultsFilterFlags(
			cli.StringFlag{
				Name:  formatFlag,
				Usage: "specify the image format: png or svg",
				Value: string(dashboard.ImageFormatPNG),
			},
			cli.StringSliceFlag{
				Name:  comparisonFlag,
				Usage: "render the comparison chart, comparing a plant on a branch as '<plant>=<branch>'",
			})...),
		Before: mergeBeforeFuncs(
			setFlagOrFirstPositional(testIDFlag),
			requireStringFlag(testIDFlag),
			requireStringFlag(outputFlagName),
		),
		Action: func(c *cli.Context) error {
			format := dashboard.ImageFormat(c.String(formatFlag))
			comparison, err := parseComparison(c.StringSlice(comparisonFlag))
			if err != nil {
				return errors.WithStack(err)
			}

			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				var data []byte
				if len(comparison) > 0 {
					data, err = client.GetComparisonChart(ctx, c.String(testIDFlag), comparison, format)
				} else {
					data, err = client.GetLineChart(ctx, rest.ResultsOptions{
						TestID:   c.String(testIDFlag),
						Plant:    c.String(plantFlag),
						Branches: c.StringSlice(branchFlag),
					}, format)
				}
				if err != nil {
					return errors.WithStack(err)
				}

				path := c.String(outputFlagName)
				if err = util.WriteBytes(path, data); err != nil {
					return errors.WithStack(err)
				}
				grip.Infoln("wrote chart to:", path)
				return nil
			})
		},
	}
}

func scheduleFixtureLoad() cli.Command {
	return cli.Command{
		Name:  "load-fixtures",
		Usage: "enqueue a fixture load on the service",
		Flags: addPathFlag(),
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				id, err := client.LoadFixtures(ctx, c.String(pathFlagName))
				if err != nil {
					return errors.WithStack(err)
				}

				return errors.WithStack(util.PrintJSON(&rest.JobResponse{JobID: id}))
			})
		},
	}
}

func scheduleSnapshotExport() cli.Command {
	return cli.Command{
		Name:   "export",
		Usage:  "enqueue a snapshot export of a test on the service",
		Flags:  addTestIDFlag(),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(testIDFlag), requireStringFlag(testIDFlag)),
		Action: func(c *cli.Context) error {
			return withClient(c, func(ctx context.Context, client *rest.Client) error {
				id, err := client.ExportSnapshot(ctx, c.String(testIDFlag))
				if err != nil {
					return errors.WithStack(err)
				}

				return errors.WithStack(util.PrintJSON(&rest.JobResponse{JobID: id}))
			})
		},
	}
}

// selectionFromFlags builds a selection for the test, applying the branch,
// plant, mode, sort and comparison flags over the defaults.
func selectionFromFlags(c *cli.Context) (*dashboard.Selection, error) {
	sel := dashboard.NewSelection(c.String(testIDFlag))
	if branches := c.StringSlice(branchFlag); len(branches) > 0 {
		sel.Branches = []string{}
		for _, b := range branches {
			sel.ToggleBranch(b, true)
		}
	}
	sel.SelectPlant(c.String(plantFlag))

	catcher := grip.NewBasicCatcher()
	catcher.Add(sel.SetViewMode(dashboard.ViewMode(c.String(viewModeFlag))))
	if key := c.String(sortByFlag); key != "" {
		catcher.Add(sel.RequestSort(dashboard.SortKey(key)))
	}

	comparison, err := parseComparison(c.StringSlice(comparisonFlag))
	catcher.Add(err)
	for plant, branch := range comparison {
		catcher.Add(sel.SetComparisonBranch(plant, branch))
	}
	catcher.Add(sel.Validate())

	if catcher.HasErrors() {
		return nil, errors.Wrap(catcher.Resolve(), "invalid selection")
	}

	return sel, nil
}

func parseComparison(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.Errorf("comparison '%s' is not of the form '<plant>=<branch>'", pair)
		}
		out[parts[0]] = parts[1]
	}

	return out, nil
}
