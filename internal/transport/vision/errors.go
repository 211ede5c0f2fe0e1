package vision

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yow-cloud/shoplens/internal/domain"
)

// classify maps a gRPC error onto the domain error taxonomy. Errors that do
// not carry a gRPC status pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return classifyCode(st.Code(), st.Message())
}

func classifyCode(code codes.Code, msg string) error {
	switch code {
	case codes.OK:
		return nil
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrBadImage, msg)
	case codes.Unavailable, codes.Internal, codes.DeadlineExceeded, codes.Aborted:
		return fmt.Errorf("%w: %s", domain.ErrUnavailable, msg)
	default:
		return fmt.Errorf("vision backend: %s (%s)", msg, code)
	}
}
