package apperr

import (
	"context"
	"errors"
	"net"

	"github.com/IBM/sarama"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Goden-Gun/resilience-lib/pkg/codes"
	"github.com/Goden-Gun/resilience-lib/pkg/logger"
)

var jwtErrors = []error{
	jwt.ErrTokenMalformed,
	jwt.ErrTokenUnverifiable,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrTokenExpired,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenInvalidClaims,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidSubject,
	jwt.ErrTokenInvalidId,
	jwt.ErrTokenRequiredClaimMissing,
}

var brokerErrors = []error{
	sarama.ErrOutOfBrokers,
	sarama.ErrNotConnected,
	sarama.ErrClosedClient,
}

var grpcCodes = map[grpccodes.Code]codes.ErrorCode{
	grpccodes.NotFound:           codes.NotFound,
	grpccodes.Unauthenticated:    codes.Unauthorized,
	grpccodes.PermissionDenied:   codes.Forbidden,
	grpccodes.InvalidArgument:    codes.BadRequest,
	grpccodes.FailedPrecondition: codes.Validation,
	grpccodes.OutOfRange:         codes.Validation,
	grpccodes.DeadlineExceeded:   codes.Timeout,
	grpccodes.Canceled:           codes.Cancelled,
	grpccodes.Unavailable:        codes.Network,
	grpccodes.Internal:           codes.Server,
	grpccodes.DataLoss:           codes.Server,
	grpccodes.Unimplemented:      codes.Server,
	grpccodes.Aborted:            codes.Server,
	grpccodes.ResourceExhausted:  codes.Server,
}

// CreateAppError classifies any raw value into an *Error. An *Error in the
// chain is returned unchanged; nil yields nil.
//
// Unrecognized error values become UNKNOWN_ERROR and stay retryable. Strings
// become UNKNOWN_ERROR with the string as message, not retryable. Any other
// value becomes a non-retryable UNKNOWN_ERROR with the generic message.
func CreateAppError(v any) *Error {
	switch x := v.(type) {
	case nil:
		return nil
	case *Error:
		return x
	case error:
		return classify(x)
	case string:
		return New(codes.Unknown, x).WithRetryable(false)
	default:
		return New(codes.Unknown, codes.Unknown.Message).WithRetryable(false)
	}
}

func classify(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		if inner, ok := pe.Value.(error); ok {
			return classify(inner)
		}
		return CreateAppError(pe.Value)
	}
	var se *StatusError
	if errors.As(err, &se) {
		if se.StatusCode == 0 {
			return newStatusError(codes.Network, se.Message, 0, err)
		}
		return newStatusError(codes.FromHTTPStatus(se.StatusCode), se.Message, se.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(codes.Timeout, "", err)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(codes.Cancelled, "", err)
	}
	if s, ok := status.FromError(err); ok {
		if code, known := grpcCodes[s.Code()]; known {
			return Wrap(code, s.Message(), err)
		}
	}
	for _, target := range jwtErrors {
		if errors.Is(err, target) {
			return Auth("", err)
		}
	}
	if errors.Is(err, redis.Nil) {
		return Wrap(codes.NotFound, "", err)
	}
	for _, target := range brokerErrors {
		if errors.Is(err, target) {
			return Wrap(codes.Network, "", err)
		}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Wrap(codes.Timeout, "", err)
		}
		return Wrap(codes.Network, "", err)
	}
	msg := err.Error()
	if msg == "" {
		msg = codes.Unknown.Message
	}
	return &Error{code: codes.Unknown, message: msg, retryable: true, err: err}
}

// FormatError returns the Details for any raw value. nil yields zero Details.
func FormatError(v any) Details {
	e := CreateAppError(v)
	if e == nil {
		return Details{}
	}
	return e.Details()
}

// IsRetryable reports the retry policy of the classified value.
func IsRetryable(v any) bool {
	e := CreateAppError(v)
	return e != nil && e.Retryable()
}

// Message returns the user-facing message for any raw value.
func Message(v any) string {
	return FormatError(v).Message
}

// Fields returns structured log fields describing v.
func Fields(v any) logger.Fields {
	e := CreateAppError(v)
	if e == nil {
		return logger.Fields{}
	}
	f := logger.Fields{
		"error_code":    e.Symbol(),
		"error_message": e.Message(),
		"retryable":     e.Retryable(),
	}
	if e.status > 0 {
		f["http_status"] = e.status
	}
	if e.err != nil {
		f["cause"] = e.err.Error()
	}
	return f
}
