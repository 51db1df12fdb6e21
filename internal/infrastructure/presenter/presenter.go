package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/davarch/deploy-pilot/internal/domain"
)

// Host selects how failures and output variables are written.
type Host string

const (
	HostConsole Host = "console"
	HostGitHub  Host = "github"
	HostAzure   Host = "azure"
)

// Resolve maps the configured presenter name to a Host; "auto" looks at
// the CI environment.
func Resolve(name string, getenv func(string) string) Host {
	switch Host(name) {
	case HostConsole, HostGitHub, HostAzure:
		return Host(name)
	}

	switch {
	case getenv("GITHUB_ACTIONS") == "true":
		return HostGitHub
	case getenv("TF_BUILD") != "":
		return HostAzure
	default:
		return HostConsole
	}
}

type Presenter struct {
	w          io.Writer
	host       Host
	outputFile string
}

// New returns a presenter writing to w. outputFile is the GitHub Actions
// output file and is ignored for other hosts.
func New(w io.Writer, host Host, outputFile string) *Presenter {
	return &Presenter{w: w, host: host, outputFile: outputFile}
}

func (p *Presenter) line(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Presenter) fail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch p.host {
	case HostGitHub:
		p.line("::error::%s", escapeGitHub(msg))
	case HostAzure:
		p.line("##vso[task.logissue type=error]%s", strings.ReplaceAll(msg, "\n", " "))
	default:
		p.line("ERROR: %s", msg)
	}
}

func (p *Presenter) InvalidArguments(reasons []error) {
	for _, r := range reasons {
		p.fail("Invalid arguments: %v", r)
	}
	if len(reasons) == 0 {
		p.fail("Invalid arguments")
	}
}

func (p *Presenter) CreatingPackage() { p.line("Creating package...") }

func (p *Presenter) PackageCreated(pkg domain.CreatedPackage) {
	p.line("Package %s %s created: %s", pkg.Name, pkg.Version, pkg.Path)
}

func (p *Presenter) UnsupportedSolution(err error) {
	p.fail("Unsupported solution type: %v", err)
}

func (p *Presenter) PackageCreationFailed(err error) {
	p.fail("Package creation failed: %v", err)
}

func (p *Presenter) UploadingPackage() { p.line("Uploading package...") }

func (p *Presenter) PackageUploaded(pkg domain.UploadedPackage) {
	p.line("Package uploaded, artifact id %s", pkg.ArtifactID)
}

func (p *Presenter) PackageUploadFailed(err error) {
	p.fail("Package upload failed: %v", err)
}

func (p *Presenter) OutputVariable(name, value string) {
	switch p.host {
	case HostGitHub:
		if p.outputFile != "" {
			if err := appendLine(p.outputFile, name+"="+value); err == nil {
				return
			}
		}
		p.line("::set-output name=%s::%s", name, escapeGitHub(value))
	case HostAzure:
		p.line("##vso[task.setvariable variable=%s;isOutput=true]%s", name, value)
	default:
		p.line("%s=%s", name, value)
	}
}

func (p *Presenter) DeploymentStarted(pkg domain.DeployingPackage) {
	p.line("Deploying artifact %s (deployment %s)", pkg.ArtifactID, pkg.DeploymentID)
}

func (p *Presenter) DmsUnavailable(err error) {
	p.fail("Deployment service unavailable: %v", err)
}

func (p *Presenter) DeploymentStartFailed(err error) {
	p.fail("Deployment could not be started: %v", err)
}

func (p *Presenter) WaitingForDeployment(elapsed time.Duration) {
	p.line("Waiting for deployment to complete (%s elapsed)", elapsed)
}

func (p *Presenter) WaitingMore(delay time.Duration) {
	p.line("Deployment still running, checking again in %s", delay)
}

func (p *Presenter) DeploymentFinished(pkg domain.DeployedPackage) {
	p.line("Deployment %s finished: %s", pkg.DeploymentID, pkg.Status)
}

func (p *Presenter) DeploymentFailed(pkg domain.DeployedPackage) {
	p.fail("Deployment %s failed with status %s", pkg.DeploymentID, pkg.Status)
}

func (p *Presenter) DeploymentTimedOut(timeout time.Duration) {
	p.fail("Deployment did not finish within %s", timeout)
}

func (p *Presenter) Unauthorized(err error) {
	p.fail("Unauthorized, check the API key: %v", err)
}

func escapeGitHub(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.WriteString(line + "\n")
	return err
}
