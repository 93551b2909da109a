package operations

import (
	"strings"

	"github.com/evergreen-ci/perffarm"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

////////////////////////////////////////////////////////////////////////
//
// Flag Name Constants

const (
	configFlag     = "config"
	pathFlagName   = "path"
	outputFlagName = "output"

	numWorkersFlag   = "workers"
	disableCacheFlag = "disableCache"

	bucketTypeFlag   = "bucketType"
	bucketNameFlag   = "bucket"
	bucketPrefixFlag = "bucketPrefix"

	dbURIFlag  = "dbUri"
	dbNameFlag = "dbName"

	servicePortFlag = "port"
	corsOriginsFlag = "corsOrigin"
	rpcAddressFlag  = "rpcAddress"
	disableRPCFlag  = "disableRPC"
	rpcCAFlag       = "rpcCA"
	rpcCertFlag     = "rpcCert"
	rpcKeyFlag      = "rpcKey"
	disableCronFlag = "disableCrons"
	fixturesFlag    = "fixtures"
	loadFixtureFlag = "loadFixtures"

	clientHostFlag   = "host"
	clientPortFlag   = "port"
	clientPrefixFlag = "prefix"
	rpcClientFlag    = "rpc"

	testIDFlag     = "test"
	plantFlag      = "plant"
	branchFlag     = "branch"
	sortByFlag     = "sortBy"
	sortDescFlag   = "desc"
	formatFlag     = "format"
	comparisonFlag = "compare"
)

////////////////////////////////////////////////////////////////////////
//
// Utility Functions

func joinFlagNames(ids ...string) string { return strings.Join(ids, ", ") }

func mergeFlags(in ...[]cli.Flag) []cli.Flag {
	out := []cli.Flag{}

	for idx := range in {
		out = append(out, in[idx]...)
	}

	return out
}

func setFlagOrFirstPositional(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		val := c.String(name)
		if val == "" {
			if c.NArg() != 1 {
				return errors.Errorf("must specify exactly one positional argument for '%s'", name)
			}

			val = c.Args().Get(0)
		}

		return c.Set(name, val)
	}
}

////////////////////////////////////////////////////////////////////////
//
// Flag Groups

func addPathFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(pathFlagName, "filename", "file", "f"),
		Usage: "path to a fixture file",
	})
}

func addOutputPath(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(outputFlagName, "o"),
		Usage: "path to the output file, prints to standard output when empty",
	})
}

func addTestIDFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  joinFlagNames(testIDFlag, "t"),
		Usage: "specify the performance test id",
	})
}

func addResultsFilterFlags(flags ...cli.Flag) []cli.Flag {
	return append(addTestIDFlag(flags...),
		cli.StringFlag{
			Name:  plantFlag,
			Usage: "restrict results to a single plant",
		},
		cli.StringSliceFlag{
			Name:  branchFlag,
			Usage: "specify a branch to include, may be repeated",
		},
	)
}

func configFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:   configFlag,
		Usage:  "path to a YAML configuration file, command line flags take precedence",
		EnvVar: "PERFFARM_CONFIG",
	})
}

func restServiceFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   clientHostFlag,
			Usage:  "host for the remote perffarm instance",
			Value:  "http://localhost",
			EnvVar: "PERFFARM_HOST",
		},
		cli.IntFlag{
			Name:   clientPortFlag,
			Usage:  "port for the remote perffarm service",
			Value:  perffarm.DefaultServicePort,
			EnvVar: "PERFFARM_PORT",
		},
		cli.StringFlag{
			Name:  clientPrefixFlag,
			Usage: "path prefix of the remote perffarm service",
			Value: "rest",
		},
	)
}

func addRPCClientFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:   rpcClientFlag,
		Usage:  "query the rpc service at this address instead of the REST interface",
		EnvVar: "PERFFARM_RPC_CLIENT_ADDRESS",
	})
}

func dbFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:   dbURIFlag,
			Usage:  "specify a mongodb connection string",
			Value:  "mongodb://localhost:27017",
			EnvVar: "PERFFARM_MONGODB_URL",
		},
		cli.StringFlag{
			Name:   dbNameFlag,
			Usage:  "specify a database name to use",
			Value:  "perffarm",
			EnvVar: "PERFFARM_DATABASE_NAME",
		})
}

func baseFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:  numWorkersFlag,
			Usage: "specify the number of worker jobs this process will have",
			Value: 2,
		},
		cli.BoolFlag{
			Name:  disableCacheFlag,
			Usage: "disable caching of plants, tests and branches",
		},
		cli.StringFlag{
			Name:   bucketTypeFlag,
			Usage:  "specify the snapshot bucket type: local, s3 or gridfs",
			EnvVar: "PERFFARM_BUCKET_TYPE",
			Value:  "local",
		},
		cli.StringFlag{
			Name:   bucketNameFlag,
			Usage:  "specify a bucket name (or directory for local buckets) for snapshots",
			EnvVar: "PERFFARM_BUCKET_NAME",
		},
		cli.StringFlag{
			Name:   bucketPrefixFlag,
			Usage:  "specify a key prefix for snapshots",
			EnvVar: "PERFFARM_BUCKET_PREFIX",
		})
}

func serviceFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.IntFlag{
			Name:   joinFlagNames(servicePortFlag, "p"),
			Usage:  "specify a port to run the service on",
			Value:  perffarm.DefaultServicePort,
			EnvVar: "PERFFARM_SERVICE_PORT",
		},
		cli.StringSliceFlag{
			Name:   corsOriginsFlag,
			Usage:  "allow browser requests from the origin, may be repeated",
			EnvVar: "PERFFARM_CORS_ORIGINS",
		},
		cli.StringFlag{
			Name:   rpcAddressFlag,
			Usage:  "specify the address of the rpc service",
			Value:  perffarm.DefaultRPCAddress,
			EnvVar: "PERFFARM_RPC_ADDRESS",
		},
		cli.BoolFlag{
			Name:  disableRPCFlag,
			Usage: "do not start the rpc service",
		},
		cli.StringFlag{
			Name:  rpcCAFlag,
			Usage: "path to the certificate authority for the rpc service",
		},
		cli.StringFlag{
			Name:  rpcCertFlag,
			Usage: "path to the server certificate for the rpc service",
		},
		cli.StringFlag{
			Name:  rpcKeyFlag,
			Usage: "path to the server certificate key for the rpc service",
		},
		cli.BoolFlag{
			Name:  disableCronFlag,
			Usage: "do not schedule background jobs",
		},
		cli.StringFlag{
			Name:   fixturesFlag,
			Usage:  "path to the fixture file loaded at startup, the built-in fixtures are used when empty",
			EnvVar: "PERFFARM_FIXTURES",
		},
		cli.BoolFlag{
			Name:  loadFixtureFlag,
			Usage: "enqueue a fixture load when the service starts",
		})
}
