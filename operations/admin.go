package operations

import (
	"context"
	"time"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/units"
	"github.com/evergreen-ci/perffarm/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Admin returns the ./perffarm admin command, which manages the data of a
// perffarm deployment directly through the database.
func Admin() cli.Command {
	return cli.Command{
		Name:  "admin",
		Usage: "manage a deployed perffarm application",
		Subcommands: []cli.Command{
			{
				Name:  "fixtures",
				Usage: "manage the sample data set",
				Subcommands: []cli.Command{
					loadFixtures(),
					dumpFixtures(),
				},
			},
			ensureIndexes(),
			exportSnapshot(),
		},
	}
}

func loadFixtures() cli.Command {
	return cli.Command{
		Name:  "load",
		Usage: "insert a fixture set into the database, skipping existing results",
		Flags:  mergeFlags(configFlags(), baseFlags(), dbFlags(), addPathFlag()),
		Before: requireFileExists(pathFlagName),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			set := model.DefaultFixtures()
			if path := c.String(pathFlagName); path != "" {
				set, err = model.LoadFixtureFile(path)
				if err != nil {
					return errors.WithStack(err)
				}
			}

			stats, err := set.Load(ctx, env)
			if err != nil {
				return errors.Wrap(err, "problem loading fixtures")
			}

			grip.Info(message.Fields{
				"message":  "loaded fixtures",
				"database": env.GetConf().DatabaseName,
				"stats":    stats,
			})
			return nil
		},
	}
}

func dumpFixtures() cli.Command {
	return cli.Command{
		Name:  "dump",
		Usage: "write the built-in fixture set to a YAML file",
		Flags:  addOutputPath(),
		Before: requireStringFlag(outputFlagName),
		Action: func(c *cli.Context) error {
			path := c.String(outputFlagName)
			if err := model.DefaultFixtures().WriteFixtureFile(path); err != nil {
				return errors.WithStack(err)
			}

			grip.Infoln("wrote fixtures to:", path)
			return nil
		},
	}
}

func ensureIndexes() cli.Command {
	return cli.Command{
		Name:  "indexes",
		Usage: "create the indexes required by the service",
		Flags: mergeFlags(configFlags(), dbFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			if err = model.EnsureIndexes(ctx, env); err != nil {
				return errors.Wrap(err, "problem creating indexes")
			}

			grip.Infoln("created indexes in database:", env.GetConf().DatabaseName)
			return nil
		},
	}
}

func exportSnapshot() cli.Command {
	return cli.Command{
		Name:   "export",
		Usage:  "write the results and charts of a test to the snapshot bucket",
		Flags:  mergeFlags(configFlags(), baseFlags(), dbFlags(), addTestIDFlag()),
		Before: mergeBeforeFuncs(setFlagOrFirstPositional(testIDFlag), requireStringFlag(testIDFlag)),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)

			j := units.NewExportSnapshotJob(env, c.String(testIDFlag), time.Now())
			j.Run(ctx)
			if err = j.Error(); err != nil {
				return errors.Wrapf(err, "problem running job '%s'", j.ID())
			}

			return errors.WithStack(util.PrintJSON(j))
		},
	}
}
