package report_fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/davarch/deploy-pilot/internal/domain"
)

// FSReport writes the run summary as JSON. The file is replaced atomically.
type FSReport struct {
	path string
}

func New(path string) *FSReport { return &FSReport{path: path} }

func (r *FSReport) Write(_ context.Context, rep domain.RunReport) error {
	if r.path == "" {
		return errors.New("report path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}

	type out struct {
		Stage        string `json:"stage"`
		Outcome      string `json:"outcome"`
		ArtifactID   string `json:"artifact_id,omitempty"`
		DeploymentID string `json:"deployment_id,omitempty"`
		Status       string `json:"status,omitempty"`
		Finished     int64  `json:"finished"`
	}

	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")

	if err := enc.Encode(out{
		Stage:        string(rep.Stage),
		Outcome:      rep.Outcome.String(),
		ArtifactID:   rep.ArtifactID,
		DeploymentID: rep.DeploymentID,
		Status:       rep.Status,
		Finished:     rep.Finished,
	}); err != nil {
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
