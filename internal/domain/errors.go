package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidArguments            = errors.New("invalid arguments")
	ErrUnsupportedArtifactType     = errors.New("unsupported artifact type")
	ErrPackageCreationFailed       = errors.New("package creation failed")
	ErrPackageUploadFailed         = errors.New("package upload failed")
	ErrUnauthorized                = errors.New("unauthorized")
	ErrRemoteSystemUnavailable     = errors.New("remote system unavailable")
	ErrDeploymentStartFailed       = errors.New("deployment start failed")
	ErrDeploymentStatusFetchFailed = errors.New("deployment status fetch failed")
	ErrDeploymentPollTimeout       = errors.New("deployment poll timeout")
	ErrDeploymentFailed            = errors.New("deployment failed")
)

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidArguments
	KindUnsupportedArtifactType
	KindPackageCreationFailed
	KindPackageUploadFailed
	KindUnauthorized
	KindRemoteSystemUnavailable
	KindDeploymentStartFailed
	KindDeploymentStatusFetchFailed
	KindDeploymentPollTimeout
	KindDeploymentFailed
	KindCancelled
)

// KindOf classifies err. Unauthorized and cancellation win over any other
// kind found in the chain.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case isCancellation(err):
		return KindCancelled
	case errors.Is(err, ErrInvalidArguments):
		return KindInvalidArguments
	case errors.Is(err, ErrUnsupportedArtifactType):
		return KindUnsupportedArtifactType
	case errors.Is(err, ErrPackageCreationFailed):
		return KindPackageCreationFailed
	case errors.Is(err, ErrPackageUploadFailed):
		return KindPackageUploadFailed
	case errors.Is(err, ErrRemoteSystemUnavailable):
		return KindRemoteSystemUnavailable
	case errors.Is(err, ErrDeploymentStartFailed):
		return KindDeploymentStartFailed
	case errors.Is(err, ErrDeploymentStatusFetchFailed):
		return KindDeploymentStatusFetchFailed
	case errors.Is(err, ErrDeploymentPollTimeout):
		return KindDeploymentPollTimeout
	case errors.Is(err, ErrDeploymentFailed):
		return KindDeploymentFailed
	default:
		return KindUnknown
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
