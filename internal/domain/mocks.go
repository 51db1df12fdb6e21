package domain

import (
	"context"
	"fmt"
	"time"
)

type MockBuilder struct {
	Package CreatedPackage
	Err     error
	Called  int
}

func (m *MockBuilder) CreatePackage(ctx context.Context, cfg Configuration) (CreatedPackage, error) {
	m.Called++
	if m.Err != nil {
		return CreatedPackage{}, m.Err
	}
	return m.Package, nil
}

type MockSource struct {
	Meta SourceMetadata
	Err  error
}

func (m *MockSource) Lookup(ctx context.Context) (SourceMetadata, error) {
	return m.Meta, m.Err
}

// MockGateway replays StatusResults/StatusErrs in order; the last entry
// repeats once the slices are exhausted.
type MockGateway struct {
	Uploaded  UploadedPackage
	UploadErr error
	Catalogs  []CatalogData

	Deploying DeployingPackage
	DeployErr error

	StatusResults []DeployedPackage
	StatusErrs    []error

	UploadCalled int
	DeployCalled int
	StatusCalled int
}

func (m *MockGateway) UploadPackage(ctx context.Context, pkg CreatedPackage, apiKey string, catalog CatalogData) (UploadedPackage, error) {
	m.UploadCalled++
	m.Catalogs = append(m.Catalogs, catalog)
	if m.UploadErr != nil {
		return UploadedPackage{}, m.UploadErr
	}
	return m.Uploaded, nil
}

func (m *MockGateway) DeployPackage(ctx context.Context, pkg UploadedPackage, apiKey string) (DeployingPackage, error) {
	m.DeployCalled++
	if m.DeployErr != nil {
		return DeployingPackage{}, m.DeployErr
	}
	d := m.Deploying
	if d.ArtifactID == "" {
		d.ArtifactID = pkg.ArtifactID
	}
	return d, nil
}

func (m *MockGateway) GetDeploymentStatus(ctx context.Context, pkg DeployingPackage, apiKey string) (DeployedPackage, error) {
	i := m.StatusCalled
	m.StatusCalled++
	if n := len(m.StatusErrs); n > 0 {
		if err := m.StatusErrs[min(i, n-1)]; err != nil {
			return DeployedPackage{}, err
		}
	}
	if n := len(m.StatusResults); n > 0 {
		return m.StatusResults[min(i, n-1)], nil
	}
	return DeployedPackage{ArtifactID: pkg.ArtifactID, DeploymentID: pkg.DeploymentID}, nil
}

// MockPresenter records one event string per call.
type MockPresenter struct {
	Events []string
}

func (p *MockPresenter) add(format string, args ...any) {
	p.Events = append(p.Events, fmt.Sprintf(format, args...))
}

func (p *MockPresenter) InvalidArguments(reasons []error) { p.add("invalid-arguments(%d)", len(reasons)) }
func (p *MockPresenter) CreatingPackage()                 { p.add("start-creating") }
func (p *MockPresenter) PackageCreated(pkg CreatedPackage) {
	p.add("creation-succeeded")
}
func (p *MockPresenter) UnsupportedSolution(err error)   { p.add("unsupported-solution") }
func (p *MockPresenter) PackageCreationFailed(err error) { p.add("creation-failed") }
func (p *MockPresenter) UploadingPackage()               { p.add("start-upload") }
func (p *MockPresenter) PackageUploaded(pkg UploadedPackage) {
	p.add("upload-succeeded")
}
func (p *MockPresenter) PackageUploadFailed(err error) { p.add("upload-failed") }
func (p *MockPresenter) OutputVariable(name, value string) {
	p.add("output-variable(%s,%s)", name, value)
}
func (p *MockPresenter) DeploymentStarted(pkg DeployingPackage) { p.add("start-deploying") }
func (p *MockPresenter) DmsUnavailable(err error)               { p.add("dms-unavailable") }
func (p *MockPresenter) DeploymentStartFailed(err error)        { p.add("deploy-start-failed") }
func (p *MockPresenter) WaitingForDeployment(elapsed time.Duration) {
	p.add("waiting(%s)", elapsed)
}
func (p *MockPresenter) WaitingMore(delay time.Duration) { p.add("waiting-more(%s)", delay) }
func (p *MockPresenter) DeploymentFinished(pkg DeployedPackage) {
	p.add("deployment-finished(%s)", pkg.Status)
}
func (p *MockPresenter) DeploymentFailed(pkg DeployedPackage) {
	p.add("deployment-failed(%s)", pkg.Status)
}
func (p *MockPresenter) DeploymentTimedOut(timeout time.Duration) { p.add("timeout") }
func (p *MockPresenter) Unauthorized(err error)                   { p.add("unauthorized") }

type MockReport struct {
	Reports []RunReport
	Err     error
}

func (r *MockReport) Write(ctx context.Context, rep RunReport) error {
	if r.Err != nil {
		return r.Err
	}
	r.Reports = append(r.Reports, rep)
	return nil
}
