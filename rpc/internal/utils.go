package internal

import (
	"net/http"

	"github.com/evergreen-ci/gimlet"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newRPCError(code codes.Code, err error) error {
	if err == nil {
		return nil
	}
	return status.Errorf(code, "%v", err)
}

// rpcCode maps the status of a service layer error to a gRPC code.
func rpcCode(err error) codes.Code {
	resp, ok := errors.Cause(err).(gimlet.ErrorResponse)
	if !ok {
		return codes.Internal
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
