package internal

import (
	"context"

	"github.com/evergreen-ci/perffarm/model"
	"github.com/evergreen-ci/perffarm/rest/data"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ResultsServiceName is the fully qualified name of the results
	// service.
	ResultsServiceName = "perffarm.Results"

	fetchResultsMethod = "/" + ResultsServiceName + "/FetchResults"
)

// ResultsServer is the server API for the results service.
type ResultsServer interface {
	FetchResults(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ResultsClient is the client API for the results service.
type ResultsClient interface {
	FetchResults(context.Context, *structpb.Struct, ...grpc.CallOption) (*structpb.Struct, error)
}

var resultsServiceDesc = grpc.ServiceDesc{
	ServiceName: ResultsServiceName,
	HandlerType: (*ResultsServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "FetchResults",
			Handler:    fetchResultsHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

func fetchResultsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ResultsServer).FetchResults(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: fetchResultsMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ResultsServer).FetchResults(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterResultsServer attaches a results server implementation to the
// gRPC server.
func RegisterResultsServer(s *grpc.Server, srv ResultsServer) {
	s.RegisterService(&resultsServiceDesc, srv)
}

type resultsClient struct {
	cc grpc.ClientConnInterface
}

// NewResultsClient returns a results client using the given connection.
func NewResultsClient(cc grpc.ClientConnInterface) ResultsClient {
	return &resultsClient{cc: cc}
}

func (c *resultsClient) FetchResults(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fetchResultsMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type resultsService struct {
	sc data.Connector
}

// AttachResultsService attaches the results service to the given gRPC
// server, answering queries through the connector.
func AttachResultsService(sc data.Connector, s *grpc.Server) {
	RegisterResultsServer(s, &resultsService{sc: sc})
}

// FetchResults returns the results of a test on a plant and set of
// branches, in insertion order.
func (srv *resultsService) FetchResults(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	query, err := ExportQuery(req)
	if err != nil {
		return nil, newRPCError(codes.InvalidArgument, errors.Wrap(err, "problem decoding request"))
	}

	results, err := srv.sc.FetchResults(ctx, query)
	if err != nil {
		code := rpcCode(err)
		grip.ErrorWhen(code == codes.Internal, message.WrapError(err, message.Fields{
			"message": "problem fetching results",
			"test":    query.TestID,
			"plant":   query.Plant,
		}))
		return nil, newRPCError(code, err)
	}

	resp, err := ResultsStruct(results)
	if err != nil {
		return nil, newRPCError(codes.Internal, err)
	}

	return resp, nil
}

// FetchResults queries a results service through the client and decodes
// the response.
func FetchResults(ctx context.Context, client ResultsClient, query model.ResultsQuery) ([]model.TestResult, error) {
	req, err := QueryStruct(query)
	if err != nil {
		return nil, err
	}

	resp, err := client.FetchResults(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "problem fetching results for test '%s'", query.TestID)
	}

	return ExportResults(resp)
}
