package domain

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindUnknown},
		{"plain", fmt.Errorf("boom"), KindUnknown},
		{"wrapped upload", errors.Wrap(ErrPackageUploadFailed, "dms responded 500"), KindPackageUploadFailed},
		{"fmt wrapped status", fmt.Errorf("get: %w", ErrDeploymentStatusFetchFailed), KindDeploymentStatusFetchFailed},
		{"cancelled", errors.Wrap(context.Canceled, "upload"), KindCancelled},
		{"invalid arguments", fmt.Errorf("stage: %w", ErrInvalidArguments), KindInvalidArguments},
		{"poll timeout", errors.Wrap(ErrDeploymentPollTimeout, "gave up after 1h"), KindDeploymentPollTimeout},
		{"deployment failed", errors.Wrapf(ErrDeploymentFailed, "status %q", "Error"), KindDeploymentFailed},
		{"unauthorized wins", fmt.Errorf("%w: %w", ErrDeploymentStartFailed, ErrUnauthorized), KindUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestCatalogDataEquality(t *testing.T) {
	a := CatalogData{Version: "1.0.0", Branch: "main", Name: "app"}
	b := CatalogData{Version: "1.0.0", Branch: "main", Name: "app"}
	assert.Equal(t, a, b)
	assert.True(t, a == b)

	b.IsPreRelease = true
	assert.False(t, a == b)
}

func TestParseStage(t *testing.T) {
	s, ok := ParseStage("Deploy")
	assert.True(t, ok)
	assert.Equal(t, StageDeploy, s)
	assert.False(t, s.Builds())
	assert.True(t, s.Deploys())

	_, ok = ParseStage("deploy")
	assert.False(t, ok)
}
