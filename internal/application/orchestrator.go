package application

import (
	"context"
	"time"

	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// OutputArtifactID is the output variable carrying the uploaded artifact id.
const OutputArtifactID = "artifact-id"

type phase int

const (
	phaseCreate phase = iota
	phaseUpload
	phaseDeploy
	phaseWait
)

func (p phase) String() string {
	switch p {
	case phaseCreate:
		return "create"
	case phaseUpload:
		return "upload"
	case phaseDeploy:
		return "deploy"
	default:
		return "wait"
	}
}

type Orchestrator struct {
	log       *zap.Logger
	validator *InputValidator
	builder   domain.PackageBuilder
	catalog   *CatalogAssembler
	gw        domain.Gateway
	out       domain.Presenter
	report    domain.ReportWriter
	poll      PollSettings
}

// NewOrchestrator wires a run. report may be nil.
func NewOrchestrator(
	log *zap.Logger,
	validator *InputValidator,
	builder domain.PackageBuilder,
	catalog *CatalogAssembler,
	gw domain.Gateway,
	out domain.Presenter,
	report domain.ReportWriter,
	poll PollSettings,
) *Orchestrator {
	return &Orchestrator{
		log: log, validator: validator, builder: builder, catalog: catalog,
		gw: gw, out: out, report: report, poll: poll,
	}
}

// Run executes one orchestration. The returned error is non-nil only for
// failures that do not belong to any known kind; those are left to the
// caller and reported as OutcomeInternalFailure.
func (o *Orchestrator) Run(ctx context.Context, args []string) (domain.Outcome, error) {
	cfg, err := o.validator.Validate(args)
	if err != nil {
		if domain.KindOf(err) != domain.KindInvalidArguments {
			return domain.OutcomeInternalFailure, errors.Wrap(err, "validate arguments")
		}
		o.log.Warn("invalid arguments", zap.Error(err))
		o.out.InvalidArguments(multierr.Errors(err))
		return domain.OutcomeInvalidArguments, nil
	}

	rep := domain.RunReport{Stage: cfg.Stage, ArtifactID: cfg.ArtifactID}
	outcome, err := o.execute(ctx, cfg, &rep)

	rep.Outcome = outcome
	rep.Finished = time.Now().Unix()
	if o.report != nil {
		if werr := o.report.Write(context.WithoutCancel(ctx), rep); werr != nil {
			o.log.Warn("run report not written", zap.Error(werr))
		}
	}

	o.log.Info("run finished",
		zap.String("stage", string(cfg.Stage)),
		zap.Stringer("outcome", outcome),
		zap.String("artifact_id", rep.ArtifactID),
		zap.String("deployment_id", rep.DeploymentID),
	)
	return outcome, err
}

func (o *Orchestrator) execute(ctx context.Context, cfg domain.Configuration, rep *domain.RunReport) (domain.Outcome, error) {
	var uploaded domain.UploadedPackage

	if cfg.Stage.Builds() {
		created, err := o.createPackage(ctx, cfg)
		if err != nil {
			return o.fail(phaseCreate, err)
		}

		uploaded, err = o.uploadPackage(ctx, cfg, created)
		if err != nil {
			return o.fail(phaseUpload, err)
		}
		rep.ArtifactID = uploaded.ArtifactID
	} else {
		uploaded = domain.UploadedPackage{ArtifactID: cfg.ArtifactID}
	}

	if !cfg.Stage.Deploys() {
		return domain.OutcomeSuccess, nil
	}

	deploying, err := o.deployPackage(ctx, cfg, uploaded)
	if err != nil {
		return o.fail(phaseDeploy, err)
	}
	rep.DeploymentID = deploying.DeploymentID

	deployed, err := o.waitForDeployment(ctx, cfg, deploying)
	if err != nil {
		if domain.KindOf(err) == domain.KindDeploymentPollTimeout {
			o.log.Error("deployment did not finish in time", zap.Duration("timeout", cfg.Timeout), zap.Error(err))
			o.out.DeploymentTimedOut(cfg.Timeout)
			return domain.OutcomePollTimeout, nil
		}
		return o.fail(phaseWait, err)
	}
	rep.Status = deployed.Status

	if err := deploymentResult(deployed); err != nil {
		o.log.Error("deployment failed", zap.String("deployment_id", deployed.DeploymentID), zap.Error(err))
		o.out.DeploymentFailed(deployed)
		return domain.OutcomeDeploymentFailed, nil
	}

	o.out.DeploymentFinished(deployed)
	return domain.OutcomeSuccess, nil
}

// deploymentResult turns a terminal status into ErrDeploymentFailed unless
// it is a success.
func deploymentResult(pkg domain.DeployedPackage) error {
	if pkg.Succeeded() {
		return nil
	}
	return errors.Wrapf(domain.ErrDeploymentFailed, "deployment %s ended with status %q", pkg.DeploymentID, pkg.Status)
}

func (o *Orchestrator) createPackage(ctx context.Context, cfg domain.Configuration) (domain.CreatedPackage, error) {
	o.out.CreatingPackage()

	pkg, err := o.builder.CreatePackage(ctx, cfg)
	if err != nil {
		return domain.CreatedPackage{}, err
	}

	o.log.Info("package created", zap.String("path", pkg.Path), zap.String("content_type", pkg.ContentType))
	o.out.PackageCreated(pkg)
	return pkg, nil
}

func (o *Orchestrator) uploadPackage(ctx context.Context, cfg domain.Configuration, pkg domain.CreatedPackage) (domain.UploadedPackage, error) {
	catalog := o.catalog.Assemble(ctx, cfg, pkg)
	o.log.Debug("catalog assembled", zap.Any("catalog", catalog))

	o.out.UploadingPackage()

	up, err := o.gw.UploadPackage(ctx, pkg, cfg.APIKey, catalog)
	if err != nil {
		return domain.UploadedPackage{}, err
	}

	o.log.Info("package uploaded", zap.String("artifact_id", up.ArtifactID))
	o.out.PackageUploaded(up)
	o.out.OutputVariable(OutputArtifactID, up.ArtifactID)
	return up, nil
}

func (o *Orchestrator) deployPackage(ctx context.Context, cfg domain.Configuration, pkg domain.UploadedPackage) (domain.DeployingPackage, error) {
	dep, err := o.gw.DeployPackage(ctx, pkg, cfg.APIKey)
	if err != nil {
		return domain.DeployingPackage{}, err
	}

	o.log.Info("deployment started",
		zap.String("artifact_id", dep.ArtifactID),
		zap.String("deployment_id", dep.DeploymentID),
	)
	o.out.DeploymentStarted(dep)
	return dep, nil
}

// waitForDeployment polls the deployment status. Status fetch failures are
// retried as "not finished yet"; every other error ends the poll.
func (o *Orchestrator) waitForDeployment(ctx context.Context, cfg domain.Configuration, dep domain.DeployingPackage) (domain.DeployedPackage, error) {
	o.out.WaitingForDeployment(0)

	fetch := func(ctx context.Context) (domain.DeployedPackage, error) {
		st, err := o.gw.GetDeploymentStatus(ctx, dep, cfg.APIKey)
		if err != nil {
			if domain.KindOf(err) == domain.KindDeploymentStatusFetchFailed {
				o.log.Warn("deployment status unavailable, will retry",
					zap.String("deployment_id", dep.DeploymentID), zap.Error(err))
				return domain.DeployedPackage{ArtifactID: dep.ArtifactID, DeploymentID: dep.DeploymentID}, nil
			}
			return domain.DeployedPackage{}, err
		}
		return st, nil
	}

	return Poll(ctx, o.poll, cfg.Timeout, fetch, domain.DeployedPackage.Finished, o.out.WaitingMore)
}

// fail maps a stage error to its terminal notification. Unauthorized and
// cancellation are handled the same way for every phase.
func (o *Orchestrator) fail(p phase, err error) (domain.Outcome, error) {
	kind := domain.KindOf(err)
	log := o.log.With(zap.Stringer("phase", p), zap.Error(err))

	switch kind {
	case domain.KindUnauthorized:
		log.Error("unauthorized")
		o.out.Unauthorized(err)
		return domain.OutcomeUnauthorized, nil
	case domain.KindCancelled:
		log.Warn("run cancelled")
		return domain.OutcomeCancelled, nil
	}

	switch {
	case p == phaseCreate && kind == domain.KindUnsupportedArtifactType:
		log.Error("unsupported solution")
		o.out.UnsupportedSolution(err)
		return domain.OutcomeUnsupportedType, nil
	case p == phaseCreate && kind == domain.KindPackageCreationFailed:
		log.Error("package creation failed")
		o.out.PackageCreationFailed(err)
		return domain.OutcomeCreationFailed, nil
	case p == phaseUpload && kind == domain.KindPackageUploadFailed:
		log.Error("package upload failed")
		o.out.PackageUploadFailed(err)
		return domain.OutcomeUploadFailed, nil
	case p == phaseDeploy && kind == domain.KindRemoteSystemUnavailable:
		log.Error("deployment service unavailable")
		o.out.DmsUnavailable(err)
		return domain.OutcomeDmsUnavailable, nil
	case p == phaseDeploy && kind == domain.KindDeploymentStartFailed:
		log.Error("deployment start failed")
		o.out.DeploymentStartFailed(err)
		return domain.OutcomeDeployStartFailed, nil
	}

	return domain.OutcomeInternalFailure, errors.Wrapf(err, "%s stage", p)
}
