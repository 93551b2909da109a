package rpc

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"net"

	"github.com/evergreen-ci/aviation"
	"github.com/evergreen-ci/perffarm"
	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/evergreen-ci/perffarm/rpc/internal"
	"github.com/evergreen-ci/perffarm/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/recovery"
	"github.com/pkg/errors"
	grpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type WaitFunc func(context.Context)

type CertConfig struct {
	CA         string
	Cert       string
	Key        string
	SkipVerify bool
}

func (c *CertConfig) Validate() error {
	catcher := grip.NewBasicCatcher()

	if !util.FileExists(c.CA) {
		catcher.New("must specify a valid certificate authority path")
	}

	if !util.FileExists(c.Cert) {
		catcher.New("must specify a valid server certificate path")
	}

	if !util.FileExists(c.Key) {
		catcher.New("must specify a valid server certificate key path")
	}

	return catcher.Resolve()
}

func (c *CertConfig) Resolve() (*tls.Config, error) {
	certificate, err := tls.LoadX509KeyPair(c.Cert, c.Key)
	if err != nil {
		return nil, errors.Wrap(err, "could not load server key pair")
	}

	certPool := x509.NewCertPool()
	ca, err := ioutil.ReadFile(c.CA)
	if err != nil {
		return nil, errors.Wrap(err, "could not read ca certificate")
	}

	if ok := certPool.AppendCertsFromPEM(ca); !ok {
		return nil, errors.New("failed to append client certs")
	}

	return &tls.Config{
		ClientAuth:         tls.RequireAndVerifyClientCert,
		Certificates:       []tls.Certificate{certificate},
		ClientCAs:          certPool,
		InsecureSkipVerify: c.SkipVerify,
	}, nil
}

// Server wraps the gRPC server together with its health service, so that
// the results service reports not serving once the server stops.
type Server struct {
	*grpc.Server
	health *health.Server
}

// GetServer builds the gRPC server answering results queries from the
// environment's database.
func GetServer(env perffarm.Environment, conf CertConfig) (*Server, error) {
	return NewServer(data.CreateDBConnector(env), conf)
}

// NewServer builds the gRPC server with the results and health services
// attached. Without valid certificates the server runs without TLS.
func NewServer(sc data.Connector, conf CertConfig) (*Server, error) {
	opts := []grpc.ServerOption{
		grpc.UnaryInterceptor(aviation.MakeGripUnaryInterceptor(logging.MakeGrip(grip.GetSender()))),
		grpc.StreamInterceptor(aviation.MakeGripStreamInterceptor(logging.MakeGrip(grip.GetSender()))),
	}

	if err := conf.Validate(); err != nil {
		grip.Warning(errors.Wrap(err, "certificates not defined, rpc service is starting without tls"))
	} else {
		tlsConf, err := conf.Resolve()
		if err != nil {
			return nil, errors.Wrap(err, "problem generating tls config")
		}
		opts = append(opts, grpc.Creds(credentials.NewTLS(tlsConf)))
	}

	srv := &Server{
		Server: grpc.NewServer(opts...),
		health: health.NewServer(),
	}

	internal.AttachResultsService(sc, srv.Server)
	healthpb.RegisterHealthServer(srv.Server, srv.health)
	srv.health.SetServingStatus(internal.ResultsServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv, nil
}

// GracefulStop marks every service as not serving and then stops the
// server, waiting for pending requests.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
}

func RunServer(ctx context.Context, srv *Server, addr string) (WaitFunc, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	go func() {
		defer recovery.LogStackTraceAndExit("running rpc service")
		grip.Warning(srv.Serve(lis))
	}()

	rpcWait := make(chan struct{})
	go func() {
		defer close(rpcWait)
		defer recovery.LogStackTraceAndContinue("waiting for the rpc service")
		<-ctx.Done()
		srv.GracefulStop()
		grip.Info("rpc service terminated")
	}()

	return func(wctx context.Context) {
		select {
		case <-wctx.Done():
		case <-rpcWait:
		}
	}, nil
}

// Client is a client for the results service.
type Client struct {
	conn    *grpc.ClientConn
	results internal.ResultsClient
	health  healthpb.HealthClient
}

// NewClient wraps an existing connection.
func NewClient(conn *grpc.ClientConn) *Client {
	return &Client{
		conn:    conn,
		results: internal.NewResultsClient(conn),
		health:  healthpb.NewHealthClient(conn),
	}
}

// DialClient connects to a results service at the address. The connection
// is insecure when the TLS config is nil.
func DialClient(ctx context.Context, addr string, tlsConf *tls.Config) (*Client, error) {
	creds := grpc.WithTransportCredentials(insecure.NewCredentials())
	if tlsConf != nil {
		creds = grpc.WithTransportCredentials(credentials.NewTLS(tlsConf))
	}

	conn, err := grpc.DialContext(ctx, addr, creds)
	if err != nil {
		return nil, errors.Wrapf(err, "problem dialing rpc server at '%s'", addr)
	}

	return NewClient(conn), nil
}

// FetchResults returns the results of the query in insertion order.
func (c *Client) FetchResults(ctx context.Context, query model.ResultsQuery) ([]model.TestResult, error) {
	return internal.FetchResults(ctx, c.results, query)
}

// Healthy reports whether the results service is serving.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	resp, err := c.health.Check(ctx, &healthpb.HealthCheckRequest{Service: internal.ResultsServiceName})
	if err != nil {
		return false, errors.Wrap(err, "problem checking rpc service health")
	}

	return resp.GetStatus() == healthpb.HealthCheckResponse_SERVING, nil
}

func (c *Client) Close() error { return c.conn.Close() }
