package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/rest"
	"github.com/evergreen-ci/perffarm/rpc"
	"github.com/evergreen-ci/perffarm/units"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// Service returns the ./perffarm service sub-command object, which is
// responsible for starting the REST and RPC services and the background
// jobs.
func Service() cli.Command {
	return cli.Command{
		Name:  "service",
		Usage: "run the perffarm api service",
		Flags: mergeFlags(configFlags(), baseFlags(), dbFlags(), serviceFlags()),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			env, err := setupEnvironment(ctx, c)
			if err != nil {
				return errors.WithStack(err)
			}
			defer closeEnvironment(env)
			conf := env.GetConf()

			if c.Bool(loadFixtureFlag) {
				if err = env.GetQueue().Put(ctx, units.NewLoadFixturesJob(env, conf.FixturesPath, utility.RandomString())); err != nil {
					return errors.Wrap(err, "problem enqueuing fixture load")
				}
			}

			if !c.Bool(disableCronFlag) {
				if err = units.StartCrons(ctx, env); err != nil {
					return errors.Wrap(err, "problem starting background jobs")
				}
			}

			rpcInfo := []string{}
			var rpcWait rpc.WaitFunc = func(context.Context) {}
			if !conf.Service.DisableRPC {
				srv, err := rpc.GetServer(env, rpc.CertConfig{
					CA:   c.String(rpcCAFlag),
					Cert: c.String(rpcCertFlag),
					Key:  c.String(rpcKeyFlag),
				})
				if err != nil {
					return errors.Wrap(err, "problem building rpc server")
				}

				rpcWait, err = rpc.RunServer(ctx, srv, conf.Service.RPCAddress)
				if err != nil {
					return errors.Wrap(err, "problem starting rpc service")
				}
				rpcInfo = append(rpcInfo, conf.Service.RPCAddress)
			}

			service := &rest.Service{
				Port:        conf.Service.Port,
				Prefix:      conf.Service.Prefix,
				CORSOrigins: conf.Service.CORSOrigins,
				RPCServers:  rpcInfo,
				Environment: env,
			}

			if err = service.Validate(); err != nil {
				return errors.Wrap(err, "problem validating service")
			}

			grip.Notice(message.Fields{
				"message":  fmt.Sprintf("starting %s service", perffarm.ServiceName),
				"port":     conf.Service.Port,
				"rpc":      rpcInfo,
				"revision": perffarm.BuildRevision,
			})
			if err = service.Start(ctx); err != nil {
				return errors.Wrap(err, "problem running service")
			}

			cancel()
			waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Minute)
			defer waitCancel()
			rpcWait(waitCtx)

			grip.Info("completed service, terminating.")
			return nil
		},
	}
}
