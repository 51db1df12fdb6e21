package dms_http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrNotConfigured is returned by every call when no base URL is set.
var ErrNotConfigured = errors.New("dms base URL is not configured (dms.base_url or DMS_BASE_URL)")

type Client struct {
	baseURL string
	hc      *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	tr := &http.Transport{
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Transport: tr, Timeout: timeout},
	}
}

type uploadDTO struct {
	ArtifactID string `json:"artifactId"`
}

type deployDTO struct {
	DeploymentID string `json:"deploymentId"`
}

type statusDTO struct {
	Status *string `json:"status"`
}

func (c *Client) UploadPackage(ctx context.Context, pkg domain.CreatedPackage, apiKey string, catalog domain.CatalogData) (domain.UploadedPackage, error) {
	if c.baseURL == "" {
		return domain.UploadedPackage{}, ErrNotConfigured
	}

	f, err := os.Open(pkg.Path)
	if err != nil {
		return domain.UploadedPackage{}, errors.Wrapf(domain.ErrPackageUploadFailed, "open package: %v", err)
	}
	defer func() { _ = f.Close() }()

	meta, err := json.Marshal(catalog)
	if err != nil {
		return domain.UploadedPackage{}, errors.Wrapf(domain.ErrPackageUploadFailed, "encode catalog: %v", err)
	}

	pr, pw := io.Pipe()
	defer func() { _ = pr.Close() }()

	mw := multipart.NewWriter(pw)
	go func() {
		_ = pw.CloseWithError(writeUploadBody(mw, f, pkg, meta))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/packages", pr)
	if err != nil {
		return domain.UploadedPackage{}, errors.Wrapf(domain.ErrPackageUploadFailed, "build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadDTO
	if err := c.do(ctx, req, apiKey, domain.ErrPackageUploadFailed, &out); err != nil {
		return domain.UploadedPackage{}, err
	}
	if out.ArtifactID == "" {
		return domain.UploadedPackage{}, errors.Wrap(domain.ErrPackageUploadFailed, "dms returned no artifact id")
	}

	return domain.UploadedPackage{ArtifactID: out.ArtifactID}, nil
}

func writeUploadBody(mw *multipart.Writer, pkg io.Reader, meta domain.CreatedPackage, catalog []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="package"; filename=%q`, filepath.Base(meta.Path)))
	h.Set("Content-Type", meta.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, pkg); err != nil {
		return err
	}

	h = make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="catalog"`)
	h.Set("Content-Type", "application/json")
	part, err = mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := part.Write(catalog); err != nil {
		return err
	}

	return mw.Close()
}

func (c *Client) DeployPackage(ctx context.Context, pkg domain.UploadedPackage, apiKey string) (domain.DeployingPackage, error) {
	u := fmt.Sprintf("%s/api/v1/packages/%s/deployments", c.baseURL, url.PathEscape(pkg.ArtifactID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, nil)
	if err != nil {
		return domain.DeployingPackage{}, errors.Wrapf(domain.ErrDeploymentStartFailed, "build request: %v", err)
	}

	var out deployDTO
	if err := c.do(ctx, req, apiKey, domain.ErrDeploymentStartFailed, &out); err != nil {
		return domain.DeployingPackage{}, err
	}
	if out.DeploymentID == "" {
		return domain.DeployingPackage{}, errors.Wrap(domain.ErrDeploymentStartFailed, "dms returned no deployment id")
	}

	return domain.DeployingPackage{ArtifactID: pkg.ArtifactID, DeploymentID: out.DeploymentID}, nil
}

func (c *Client) GetDeploymentStatus(ctx context.Context, pkg domain.DeployingPackage, apiKey string) (domain.DeployedPackage, error) {
	u := fmt.Sprintf("%s/api/v1/packages/%s/deployments/%s",
		c.baseURL, url.PathEscape(pkg.ArtifactID), url.PathEscape(pkg.DeploymentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.DeployedPackage{}, errors.Wrapf(domain.ErrDeploymentStatusFetchFailed, "build request: %v", err)
	}

	var out statusDTO
	if err := c.do(ctx, req, apiKey, domain.ErrDeploymentStatusFetchFailed, &out); err != nil {
		return domain.DeployedPackage{}, err
	}

	res := domain.DeployedPackage{ArtifactID: pkg.ArtifactID, DeploymentID: pkg.DeploymentID}
	if out.Status != nil {
		res.Status = *out.Status
	}
	return res, nil
}

// do sends req and decodes a 2xx JSON body into out. Failures wrap kind,
// except 401/403 (ErrUnauthorized), cancellation (passed through) and, for
// deploy calls, unreachable or overloaded servers (ErrRemoteSystemUnavailable).
func (c *Client) do(ctx context.Context, req *http.Request, apiKey string, kind error, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	req.Header.Set("X-Api-Key", apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return errors.Wrap(cerr, req.URL.Path)
		}
		if kind == domain.ErrDeploymentStartFailed {
			return errors.Wrapf(domain.ErrRemoteSystemUnavailable, "%v", err)
		}
		return errors.Wrapf(kind, "%v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(domain.ErrUnauthorized, "dms %s", resp.Status)
	case kind == domain.ErrDeploymentStartFailed && unavailable(resp.StatusCode):
		return errors.Wrapf(domain.ErrRemoteSystemUnavailable, "dms %s", resp.Status)
	case resp.StatusCode >= 300:
		return errors.Wrapf(kind, "dms %s: %s", resp.Status, snippet(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(kind, "decode response: %v", err)
	}
	return nil
}

func unavailable(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return strings.TrimSpace(string(b))
}
