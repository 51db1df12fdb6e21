package packager

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/ryanuber/go-glob"
	"go.uber.org/zap"
)

const ContentTypeZip = "application/zip"

// Packager turns a solution into a zip package. An optional build command
// runs in the solution directory first. Exclude patterns use '*' wildcards
// and match slash-separated paths relative to the solution.
type Packager struct {
	log       *zap.Logger
	command   []string
	outputDir string
	exclude   []string
}

func New(log *zap.Logger, command []string, outputDir string, exclude []string) *Packager {
	return &Packager{log: log, command: command, outputDir: outputDir, exclude: exclude}
}

func (p *Packager) CreatePackage(ctx context.Context, cfg domain.Configuration) (domain.CreatedPackage, error) {
	info, err := os.Stat(cfg.SolutionPath)
	if err != nil {
		return domain.CreatedPackage{}, errors.Wrapf(domain.ErrPackageCreationFailed, "solution %s: %v", cfg.SolutionPath, err)
	}

	pkg := domain.CreatedPackage{Name: cfg.PackageName, ContentType: ContentTypeZip, Version: cfg.Version}

	if !info.IsDir() {
		mt, err := mimetype.DetectFile(cfg.SolutionPath)
		if err != nil {
			return domain.CreatedPackage{}, errors.Wrapf(domain.ErrPackageCreationFailed, "inspect %s: %v", cfg.SolutionPath, err)
		}
		if !isZip(mt) {
			return domain.CreatedPackage{}, errors.Wrapf(domain.ErrUnsupportedArtifactType, "%s is %s, not a directory or zip package", cfg.SolutionPath, mt.String())
		}
		pkg.Path = cfg.SolutionPath
		p.log.Debug("using prebuilt package", zap.String("path", pkg.Path), zap.String("detected", mt.String()))
		return pkg, nil
	}

	if err := p.runBuild(ctx, cfg.SolutionPath); err != nil {
		return domain.CreatedPackage{}, err
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return domain.CreatedPackage{}, errors.Wrapf(domain.ErrPackageCreationFailed, "output dir: %v", err)
	}

	pkg.Path = filepath.Join(p.outputDir, fmt.Sprintf("%s.%s.zip", cfg.PackageName, cfg.Version))
	if err := p.archive(ctx, cfg.SolutionPath, pkg.Path); err != nil {
		_ = os.Remove(pkg.Path)
		if ctx.Err() != nil {
			return domain.CreatedPackage{}, ctx.Err()
		}
		return domain.CreatedPackage{}, errors.Wrapf(domain.ErrPackageCreationFailed, "archive: %v", err)
	}

	p.log.Debug("solution archived", zap.String("src", cfg.SolutionPath), zap.String("dst", pkg.Path))
	return pkg, nil
}

func (p *Packager) runBuild(ctx context.Context, dir string) error {
	if len(p.command) == 0 {
		return nil
	}

	p.log.Info("running build command", zap.Strings("command", p.command), zap.String("dir", dir))

	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.log.Error("build command failed", zap.ByteString("output", tail(out, 4096)))
		return errors.Wrapf(domain.ErrPackageCreationFailed, "build command: %v", err)
	}
	return nil
}

// isZip reports whether mt is a zip or a zip-based format (nupkg, jar, ...).
func isZip(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(ContentTypeZip) {
			return true
		}
	}
	return false
}

func (p *Packager) excluded(rel string) bool {
	for _, pattern := range p.exclude {
		if glob.Glob(pattern, rel) {
			return true
		}
	}
	return false
}

// archive zips src into dst. The output directory (when it lives inside the
// solution), .git and excluded paths are left out.
func (p *Packager) archive(ctx context.Context, src, dst string) error {
	absSkip, _ := filepath.Abs(p.outputDir)

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)

	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if abs, _ := filepath.Abs(path); abs == absSkip && d.IsDir() {
			return filepath.SkipDir
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && p.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		return addFile(zw, path, rel)
	})
	if err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func addFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
