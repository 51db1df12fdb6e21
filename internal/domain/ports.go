package domain

import (
	"context"
	"time"
)

type PackageBuilder interface {
	CreatePackage(ctx context.Context, cfg Configuration) (CreatedPackage, error)
}

type SourceLookup interface {
	Lookup(ctx context.Context) (SourceMetadata, error)
}

// Gateway talks to the remote deployment management service. Failures wrap
// one of the Err* kinds declared in errors.go.
type Gateway interface {
	UploadPackage(ctx context.Context, pkg CreatedPackage, apiKey string, catalog CatalogData) (UploadedPackage, error)
	DeployPackage(ctx context.Context, pkg UploadedPackage, apiKey string) (DeployingPackage, error)
	GetDeploymentStatus(ctx context.Context, pkg DeployingPackage, apiKey string) (DeployedPackage, error)
}

type Presenter interface {
	InvalidArguments(reasons []error)

	CreatingPackage()
	PackageCreated(pkg CreatedPackage)
	UnsupportedSolution(err error)
	PackageCreationFailed(err error)

	UploadingPackage()
	PackageUploaded(pkg UploadedPackage)
	PackageUploadFailed(err error)

	OutputVariable(name, value string)

	DeploymentStarted(pkg DeployingPackage)
	DmsUnavailable(err error)
	DeploymentStartFailed(err error)

	WaitingForDeployment(elapsed time.Duration)
	WaitingMore(delay time.Duration)
	DeploymentFinished(pkg DeployedPackage)
	DeploymentFailed(pkg DeployedPackage)
	DeploymentTimedOut(timeout time.Duration)

	Unauthorized(err error)
}

type ReportWriter interface {
	Write(ctx context.Context, r RunReport) error
}
