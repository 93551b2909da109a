package operations

import (
	"context"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const closeTimeout = time.Minute

// buildConfiguration reads the configuration file, when one is given, and
// applies the command line flags over it. Flags only override the file
// when they are set explicitly or the file leaves the value empty.
func buildConfiguration(c *cli.Context) (*perffarm.Configuration, error) {
	conf := &perffarm.Configuration{}
	if path := c.String(configFlag); path != "" {
		var err error
		conf, err = perffarm.LoadConfiguration(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	override := func(name string) bool {
		return c.IsSet(name) || c.GlobalIsSet(name)
	}
	setString := func(name string, target *string) {
		if override(name) || *target == "" {
			*target = c.String(name)
		}
	}
	setInt := func(name string, target *int) {
		if override(name) || *target == 0 {
			*target = c.Int(name)
		}
	}
	setBool := func(name string, target *bool) {
		if override(name) {
			*target = c.Bool(name)
		}
	}

	setString(dbURIFlag, &conf.MongoDBURI)
	setString(dbNameFlag, &conf.DatabaseName)
	setInt(numWorkersFlag, &conf.NumWorkers)
	setBool(disableCacheFlag, &conf.DisableCache)
	setString(bucketTypeFlag, &conf.Bucket.Type)
	setString(bucketNameFlag, &conf.Bucket.Name)
	setString(bucketPrefixFlag, &conf.Bucket.Prefix)
	setString(fixturesFlag, &conf.FixturesPath)
	setInt(servicePortFlag, &conf.Service.Port)
	setString(rpcAddressFlag, &conf.Service.RPCAddress)
	setBool(disableRPCFlag, &conf.Service.DisableRPC)
	if origins := c.StringSlice(corsOriginsFlag); override(corsOriginsFlag) || (len(conf.Service.CORSOrigins) == 0 && len(origins) > 0) {
		conf.Service.CORSOrigins = origins
	}

	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "problem setting up config")
	}

	return conf, nil
}

// setupEnvironment builds the configuration from the command line,
// connects to the database and caches the environment for the process.
func setupEnvironment(ctx context.Context, c *cli.Context) (perffarm.Environment, error) {
	conf, err := buildConfiguration(c)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	env, err := perffarm.NewEnvironment(ctx, perffarm.ServiceName, conf)
	if err != nil {
		return nil, errors.Wrap(err, "problem configuring environment")
	}
	perffarm.SetEnvironment(env)

	return env, nil
}

func closeEnvironment(env perffarm.Environment) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	grip.Warning(errors.Wrap(env.Close(ctx), "problem closing environment"))
}
