package domain

import "time"

type Stage string

const (
	StageAll    Stage = "All"
	StageUpload Stage = "Upload"
	StageDeploy Stage = "Deploy"
)

func ParseStage(s string) (Stage, bool) {
	switch Stage(s) {
	case StageAll, StageUpload, StageDeploy:
		return Stage(s), true
	default:
		return "", false
	}
}

// Builds reports whether the stage creates and uploads a package.
func (s Stage) Builds() bool { return s == StageAll || s == StageUpload }

// Deploys reports whether the stage triggers and waits for a deployment.
func (s Stage) Deploys() bool { return s == StageAll || s == StageDeploy }

const (
	MinTimeout = time.Minute
	MaxTimeout = 12 * time.Hour
)

// Configuration is the validated input of a single run. Only the fields
// required by Stage are populated.
type Configuration struct {
	APIKey  string
	Stage   Stage
	Timeout time.Duration

	SolutionPath string
	PackageName  string
	Version      string

	ArtifactID string
}

type CreatedPackage struct {
	Path        string
	Name        string
	ContentType string
	Version     string
}

type UploadedPackage struct {
	ArtifactID string
}

type DeployingPackage struct {
	ArtifactID   string
	DeploymentID string
}

const StatusSucceeded = "Succeeded"

// DeployedPackage carries the last observed deployment status. An empty
// Status means the deployment has not finished yet.
type DeployedPackage struct {
	ArtifactID   string
	DeploymentID string
	Status       string
}

func (p DeployedPackage) Finished() bool  { return p.Status != "" }
func (p DeployedPackage) Succeeded() bool { return p.Status == StatusSucceeded }

// CatalogData is attached to an uploaded package. It is a plain comparable
// value: two records are equal iff all fields are equal.
type CatalogData struct {
	Version       string `json:"version"`
	Branch        string `json:"branch"`
	IsPreRelease  bool   `json:"isPreRelease"`
	Identifier    string `json:"identifier"`
	Name          string `json:"name"`
	ContentType   string `json:"contentType"`
	CommitterMail string `json:"committerMail"`
	ReleaseURI    string `json:"releaseUri"`
}

type SourceMetadata struct {
	Branch        string
	CommitterMail string
	SourceURI     string
	ReleaseURI    string
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeInvalidArguments
	OutcomeUnsupportedType
	OutcomeCreationFailed
	OutcomeUploadFailed
	OutcomeUnauthorized
	OutcomeDmsUnavailable
	OutcomeDeployStartFailed
	OutcomeDeploymentFailed
	OutcomePollTimeout
	OutcomeCancelled
	OutcomeInternalFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeInvalidArguments:
		return "invalid_arguments"
	case OutcomeUnsupportedType:
		return "unsupported_type"
	case OutcomeCreationFailed:
		return "creation_failed"
	case OutcomeUploadFailed:
		return "upload_failed"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeDmsUnavailable:
		return "dms_unavailable"
	case OutcomeDeployStartFailed:
		return "deploy_start_failed"
	case OutcomeDeploymentFailed:
		return "deployment_failed"
	case OutcomePollTimeout:
		return "poll_timeout"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeInternalFailure:
		return "internal_failure"
	default:
		return "unknown"
	}
}

// RunReport summarises a finished run for downstream CI steps.
type RunReport struct {
	Stage        Stage
	Outcome      Outcome
	ArtifactID   string
	DeploymentID string
	Status       string
	Finished     int64
}
