package application

import (
	"context"
	"regexp"
	"strconv"

	"github.com/davarch/deploy-pilot/internal/domain"
	"go.uber.org/zap"
)

const defaultCatalogVersion = "0.0.0"

// digits and dots, a hyphen, then any suffix: 1.2.3-rc1
var preReleaseVersion = regexp.MustCompile(`^[0-9.]+-.+$`)

type CatalogAssembler struct {
	log         *zap.Logger
	src         domain.SourceLookup
	buildNumber string
}

func NewCatalogAssembler(log *zap.Logger, src domain.SourceLookup, buildNumber string) *CatalogAssembler {
	return &CatalogAssembler{log: log, src: src, buildNumber: buildNumber}
}

// Assemble builds the catalog record for pkg. Source lookup failures leave
// the corresponding fields empty.
func (a *CatalogAssembler) Assemble(ctx context.Context, cfg domain.Configuration, pkg domain.CreatedPackage) domain.CatalogData {
	meta, err := a.src.Lookup(ctx)
	if err != nil {
		a.log.Warn("source metadata incomplete", zap.Error(err))
	}

	version, pre := a.resolveVersion(cfg.Version)

	return domain.CatalogData{
		Version:       version,
		Branch:        meta.Branch,
		IsPreRelease:  pre,
		Identifier:    meta.SourceURI,
		Name:          cfg.PackageName,
		ContentType:   pkg.ContentType,
		CommitterMail: meta.CommitterMail,
		ReleaseURI:    meta.ReleaseURI,
	}
}

func (a *CatalogAssembler) resolveVersion(version string) (string, bool) {
	if a.buildNumber != "" {
		if n, err := strconv.ParseUint(a.buildNumber, 10, 64); err == nil {
			return "0.0." + strconv.FormatUint(n, 10), true
		}
		a.log.Warn("ignoring non-numeric build number", zap.String("build_number", a.buildNumber))
	}

	switch {
	case version == "":
		return defaultCatalogVersion, true
	case preReleaseVersion.MatchString(version):
		return version, true
	default:
		return version, false
	}
}
